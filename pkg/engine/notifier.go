package engine

import (
	"context"
	"sync"
	"time"
)

// ExecutionNotifier is implemented by anything that wants to observe
// execution lifecycle events (spec.md C9: the callback facade C4/C5/C6/C7
// publish through, never a transport directly).
type ExecutionNotifier interface {
	Notify(ctx context.Context, event ExecutionEvent)
}

// NoOpNotifier discards every event. Useful for tests and standalone runs
// that don't wire up a session bus.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a notifier that ignores every event.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Notify discards event.
func (n *NoOpNotifier) Notify(_ context.Context, _ ExecutionEvent) {}

// Facade narrows an ExecutionNotifier into the three guarantees spec.md
// §4.9 requires of the callback boundary: exactly one terminal event per
// run, monotonically non-retreating per-node status, and non-decreasing
// per-session timestamps. Node executors, the scheduler, the loop
// sub-scheduler, and the agent loop all publish through a Facade rather
// than trusting each other to get these invariants right individually.
type Facade struct {
	inner ExecutionNotifier

	mu           sync.Mutex
	terminalSent map[string]bool      // executionID -> run already terminated
	nodeRank     map[string]int       // executionID+"/"+nodeID -> last status rank
	lastTS       map[string]time.Time // executionID -> last emitted timestamp
}

// statusRank orders node statuses so a later event can never be reported as
// "earlier" than one already emitted for the same node.
var statusRank = map[string]int{
	"pending":   0,
	"ready":     1,
	"running":   2,
	"retrying":  3,
	"completed": 4,
	"failed":    4,
	"skipped":   4,
	"cancelled": 4,
}

// NewFacade wraps inner with the C9 guarantees.
func NewFacade(inner ExecutionNotifier) *Facade {
	return &Facade{
		inner:        inner,
		terminalSent: make(map[string]bool),
		nodeRank:     make(map[string]int),
		lastTS:       make(map[string]time.Time),
	}
}

// terminalEventTypes are the run-scoped (not node-scoped) terminal events;
// only one of these is ever forwarded per execution ID.
var terminalEventTypes = map[string]bool{
	"complete": true,
	"error":    true,
}

func (f *Facade) Notify(ctx context.Context, event ExecutionEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if terminalEventTypes[event.Type] {
		if f.terminalSent[event.ExecutionID] {
			return
		}
		f.terminalSent[event.ExecutionID] = true
	}

	if event.NodeID != "" {
		key := event.ExecutionID + "/" + event.NodeID
		rank, seen := statusRank[event.Status]
		if seen {
			if last, ok := f.nodeRank[key]; ok && rank < last {
				return // stale/out-of-order status for this node, drop it
			}
			f.nodeRank[key] = rank
		}
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if last, ok := f.lastTS[event.ExecutionID]; ok && event.Timestamp.Before(last) {
		event.Timestamp = last
	}
	f.lastTS[event.ExecutionID] = event.Timestamp

	f.inner.Notify(ctx, event)
}
