// Package session implements the session / event bus (spec.md C8): a
// per-session bounded, ordered queue of Events with back-pressure dropping
// of non-terminal events, fanned out to any number of subscribers.
package session

import "time"

// Kind is one of spec.md §3's event kinds.
type Kind string

const (
	KindStatus         Kind = "status"
	KindWorkflow       Kind = "workflow"
	KindNodeResult     Kind = "node_result"
	KindExplanation    Kind = "explanation"
	KindAnswer         Kind = "answer"
	KindToolProgress   Kind = "tool_progress"
	KindToolRetry      Kind = "tool_retry"
	KindActionStart    Kind = "action_start"
	KindActionComplete Kind = "action_complete"
	KindAgentStart     Kind = "agent_start"
	KindAgentThinking  Kind = "agent_thinking"
	KindAgentError     Kind = "agent_error"
	KindAgentComplete  Kind = "agent_complete"
	KindComplete       Kind = "complete"
	KindError          Kind = "error"
)

// Terminal kinds end a session: exactly one is ever published per run.
func (k Kind) Terminal() bool { return k == KindComplete || k == KindError }

// Event is one item on a session's ordered stream.
type Event struct {
	Kind      Kind           `json:"kind"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}
