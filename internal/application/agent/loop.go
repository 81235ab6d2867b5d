// Package agent implements the Agent Loop (spec.md §4.7 / SPEC_FULL.md §9
// [C7]): an LLM planner that iteratively picks a catalog node type as a
// tool, runs it through the Node Executor against a private run, and feeds
// the observation back until the planner emits a final answer.
//
// Grounded on pkg/executor/builtin/tool_calling_registry.go's
// dispatch-by-definition shape and pkg/executor/builtin/llm.go's provider
// abstraction, re-pointed so every catalog.NodeSpec is a callable tool
// instead of a separate FunctionDefinition surface.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smilemakc/mbflow/internal/application/session"
	"github.com/smilemakc/mbflow/pkg/catalog"
	"github.com/smilemakc/mbflow/pkg/engine"
	"github.com/smilemakc/mbflow/pkg/models"
)

// DefaultMaxIterations is the planner/act budget per spec.md §4.7 step 4.
const DefaultMaxIterations = 5

// LLMProvider is the planner boundary the Loop calls through - the same
// shape pkg/executor/builtin.LLMExecutor uses for its leaf-node providers
// (OpenAI via sashabaranov/go-openai, Anthropic via anthropic-sdk-go,
// Gemini via google/generative-ai-go), re-pointed at forced tool-calling
// instead of a single completion.
type LLMProvider interface {
	Execute(ctx context.Context, req *models.LLMRequest) (*models.LLMResponse, error)
}

// Options configures one Loop.Run call.
type Options struct {
	MaxIterations int // 0 => DefaultMaxIterations
	Provider      models.LLMProvider
	Model         string
	Instruction   string // system prompt prefix; the scratch trace is appended automatically
}

func (o Options) maxIterations() int {
	if o.MaxIterations > 0 {
		return o.MaxIterations
	}
	return DefaultMaxIterations
}

// scratchEntry is one (action, input, observation) triple folded back into
// the next planner call, per spec.md §4.7 step 3's closing sentence.
type scratchEntry struct {
	Action      string `json:"action"`
	Input       string `json:"input"`
	Observation string `json:"observation"`
	Failed      bool   `json:"failed"`
}

// Loop runs the planner/act cycle for one query. A Loop is stateless across
// runs; all per-run state lives in the scratch trace built inside Run.
type Loop struct {
	registry *catalog.Registry
	nodeExec *engine.NodeExecutor
	provider LLMProvider
	bus      *session.Bus

	// tools is the catalog's NodeSpecs translated to LLMTool once at
	// construction time (spec.md §4.7 step 2: "generated once per run and
	// cached" - the catalog is frozen at startup, so once per process
	// satisfies the same invariant without rebuilding it every Run).
	tools []models.LLMTool
}

// NewLoop builds a Loop over every tool-eligible entry in registry (one
// catalog.NodeSpec per callable tool), executing actions via nodeExec and
// publishing progress to bus.
func NewLoop(registry *catalog.Registry, nodeExec *engine.NodeExecutor, provider LLMProvider, bus *session.Bus) *Loop {
	return &Loop{
		registry: registry,
		nodeExec: nodeExec,
		provider: provider,
		bus:      bus,
		tools:    toolsFromCatalog(registry),
	}
}

func toolsFromCatalog(registry *catalog.Registry) []models.LLMTool {
	specs := registry.List()
	tools := make([]models.LLMTool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, models.LLMTool{
			Type: "function",
			Function: models.LLMFunctionTool{
				Name:        spec.Type,
				Description: spec.Description,
				Parameters:  paramSpecsToJSONSchema(spec.Params),
			},
		})
	}
	return tools
}

// paramSpecsToJSONSchema renders a catalog.NodeSpec's declared params as the
// JSON-schema object an LLMFunctionTool.Parameters expects.
func paramSpecsToJSONSchema(params []catalog.ParamSpec) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		properties[p.Name] = map[string]interface{}{
			"type":        jsonSchemaType(p.Kind),
			"description": p.Doc,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func jsonSchemaType(kind catalog.ParamKind) string {
	switch kind {
	case catalog.KindString:
		return "string"
	case catalog.KindNumber:
		return "number"
	case catalog.KindBool:
		return "boolean"
	case catalog.KindMapping:
		return "object"
	case catalog.KindSequence:
		return "array"
	default:
		return "object"
	}
}

// Run executes the planner/act cycle for query, publishing every event onto
// sessionID via the bus, and returns the final answer (or the best partial
// answer, with a non-nil error, if the iteration budget is exhausted).
func (l *Loop) Run(ctx context.Context, sessionID, query string, opts Options) (string, error) {
	l.publish(sessionID, session.KindAgentStart, map[string]any{"query": query})

	var trace []scratchEntry
	maxIter := opts.maxIterations()

	for iter := 0; iter < maxIter; iter++ {
		req := &models.LLMRequest{
			Provider:    opts.Provider,
			Model:       opts.Model,
			Instruction: opts.Instruction,
			Prompt:      renderPrompt(query, trace),
			Tools:       l.tools,
		}

		resp, err := l.provider.Execute(ctx, req)
		if err != nil {
			l.publish(sessionID, session.KindAgentError, map[string]any{"error": err.Error()})
			return bestPartialAnswer(trace), fmt.Errorf("agent: planner call failed: %w", err)
		}

		l.publish(sessionID, session.KindAgentThinking, map[string]any{"summary": resp.Content})

		if len(resp.ToolCalls) == 0 || resp.FinishReason != "tool_calls" {
			l.publish(sessionID, session.KindAgentComplete, map[string]any{"answer": resp.Content})
			return resp.Content, nil
		}

		call := resp.ToolCalls[0]
		actionID := uuid.New().String()

		var input map[string]any
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil {
				trace = append(trace, scratchEntry{
					Action:      call.Function.Name,
					Input:       call.Function.Arguments,
					Observation: fmt.Sprintf("invalid tool arguments: %v", err),
					Failed:      true,
				})
				continue
			}
		}

		l.publish(sessionID, session.KindActionStart, map[string]any{
			"action":    call.Function.Name,
			"input":     input,
			"action_id": actionID,
		})

		observation, actErr := l.runAction(ctx, actionID, call.Function.Name, input)

		result := map[string]any{"action_id": actionID, "result": observation}
		if actErr != nil {
			result["error"] = actErr.Error()
		}
		l.publish(sessionID, session.KindActionComplete, result)

		entry := scratchEntry{Action: call.Function.Name, Input: call.Function.Arguments}
		if actErr != nil {
			// Per spec.md §4.7 closing note: the observation becomes the error
			// object verbatim, and the planner is free to pick a different tool
			// next iteration. No special handling here.
			entry.Observation = actErr.Error()
			entry.Failed = true
		} else {
			entry.Observation = stringifyObservation(observation)
		}
		trace = append(trace, entry)
	}

	l.publish(sessionID, session.KindAgentError, map[string]any{"error": "iteration budget exhausted"})
	return bestPartialAnswer(trace), fmt.Errorf("agent: iteration budget of %d exhausted", maxIter)
}

// runAction builds the single-node Workflow{Nodes:[{ID:actionID, Type:action,
// Config:input}]} spec.md §4.7 step 3 describes and runs it through the Node
// Executor (C4) against a private ExecutionState - never shared with any
// concurrently running agent loop or workflow execution.
func (l *Loop) runAction(ctx context.Context, actionID, action string, input map[string]any) (any, error) {
	if !l.registry.Has(action) {
		return nil, fmt.Errorf("agent: unknown tool %q", action)
	}

	node := &models.Node{ID: actionID, Type: action, Config: input}
	workflow := &models.Workflow{ID: uuid.New().String(), Nodes: []*models.Node{node}}
	execState := engine.NewExecutionState(uuid.New().String(), workflow.ID, workflow, input, nil)

	nodeCtx := engine.PrepareNodeContext(execState, node, nil, engine.DefaultExecutionOptions())
	result, err := l.nodeExec.Execute(ctx, nodeCtx)
	if err != nil {
		return nil, err
	}
	return result.Output, nil
}

func (l *Loop) publish(sessionID string, kind session.Kind, data map[string]any) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(context.Background(), sessionID, session.Event{
		Kind:      kind,
		SessionID: sessionID,
		Timestamp: timeNow(),
		Data:      data,
	})
}

// timeNow is a seam so tests can stub the clock; production always uses the
// real wall clock.
var timeNow = time.Now

func renderPrompt(query string, trace []scratchEntry) string {
	if len(trace) == 0 {
		return query
	}
	prompt := query + "\n\nPrevious actions:\n"
	for i, e := range trace {
		prompt += fmt.Sprintf("%d. %s(%s) -> %s\n", i+1, e.Action, e.Input, e.Observation)
	}
	return prompt
}

func bestPartialAnswer(trace []scratchEntry) string {
	for i := len(trace) - 1; i >= 0; i-- {
		if !trace[i].Failed {
			return trace[i].Observation
		}
	}
	return ""
}

func stringifyObservation(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
