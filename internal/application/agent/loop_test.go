package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/mbflow/internal/application/session"
	"github.com/smilemakc/mbflow/pkg/catalog"
	"github.com/smilemakc/mbflow/pkg/engine"
	"github.com/smilemakc/mbflow/pkg/executor"
	"github.com/smilemakc/mbflow/pkg/models"
)

// mockLLMProvider is a mock planner, following
// pkg/executor/builtin.MockLLMProvider's shape.
type mockLLMProvider struct {
	ExecuteFn func(ctx context.Context, req *models.LLMRequest) (*models.LLMResponse, error)
	calls     int
}

func (m *mockLLMProvider) Execute(ctx context.Context, req *models.LLMRequest) (*models.LLMResponse, error) {
	m.calls++
	return m.ExecuteFn(ctx, req)
}

func newTestLoop(t *testing.T, provider LLMProvider) (*Loop, *catalog.Registry) {
	t.Helper()

	registry := catalog.NewRegistry()
	manager := executor.NewManager()

	echoExecutor := &executor.ExecutorFunc{
		ExecuteFn: func(ctx context.Context, config map[string]any, input any) (any, error) {
			return map[string]any{"echoed": config["message"]}, nil
		},
	}
	require.NoError(t, manager.Register("echo", echoExecutor))

	require.NoError(t, registry.Register(catalog.NodeSpec{
		Type:        "echo",
		Name:        "Echo",
		Description: "echoes its message param",
		Params:      []catalog.ParamSpec{{Name: "message", Kind: catalog.KindString, Required: true}},
	}, func(resolvedParams map[string]any) (catalog.Executor, error) {
		return catalog.ExecutorFunc(func(fctx catalog.FactoryContext) (any, error) {
			return echoExecutor.Execute(fctx.Context, resolvedParams, fctx.Input)
		}), nil
	}))
	registry.Freeze()

	nodeExec := engine.NewNodeExecutor(manager)
	bus := session.NewBus()

	return NewLoop(registry, nodeExec, provider, bus), registry
}

func TestLoop_Run_FinalAnswerOnFirstIteration(t *testing.T) {
	provider := &mockLLMProvider{
		ExecuteFn: func(ctx context.Context, req *models.LLMRequest) (*models.LLMResponse, error) {
			assert.NotEmpty(t, req.Tools, "catalog tools should be forwarded to the planner")
			return &models.LLMResponse{Content: "the answer", FinishReason: "stop"}, nil
		},
	}
	loop, _ := newTestLoop(t, provider)

	answer, err := loop.Run(context.Background(), "sess-1", "what is the answer?", Options{})
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)
	assert.Equal(t, 1, provider.calls)
}

func TestLoop_Run_ActsThenFinishes(t *testing.T) {
	iteration := 0
	provider := &mockLLMProvider{
		ExecuteFn: func(ctx context.Context, req *models.LLMRequest) (*models.LLMResponse, error) {
			iteration++
			if iteration == 1 {
				return &models.LLMResponse{
					FinishReason: "tool_calls",
					ToolCalls: []models.LLMToolCall{{
						ID:   "call-1",
						Type: "function",
						Function: models.LLMFunctionCall{
							Name:      "echo",
							Arguments: `{"message":"hi"}`,
						},
					}},
				}, nil
			}
			return &models.LLMResponse{Content: "done", FinishReason: "stop"}, nil
		},
	}
	loop, _ := newTestLoop(t, provider)

	answer, err := loop.Run(context.Background(), "sess-2", "echo hi", Options{MaxIterations: 3})
	require.NoError(t, err)
	assert.Equal(t, "done", answer)
	assert.Equal(t, 2, provider.calls)
}

func TestLoop_Run_UnknownToolBecomesFailedObservation(t *testing.T) {
	iteration := 0
	provider := &mockLLMProvider{
		ExecuteFn: func(ctx context.Context, req *models.LLMRequest) (*models.LLMResponse, error) {
			iteration++
			if iteration == 1 {
				return &models.LLMResponse{
					FinishReason: "tool_calls",
					ToolCalls: []models.LLMToolCall{{
						Function: models.LLMFunctionCall{Name: "does_not_exist", Arguments: `{}`},
					}},
				}, nil
			}
			assert.Contains(t, req.Prompt, "unknown tool")
			return &models.LLMResponse{Content: "recovered", FinishReason: "stop"}, nil
		},
	}
	loop, _ := newTestLoop(t, provider)

	answer, err := loop.Run(context.Background(), "sess-3", "try a bad tool", Options{MaxIterations: 3})
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)
}

func TestLoop_Run_IterationBudgetExhausted(t *testing.T) {
	provider := &mockLLMProvider{
		ExecuteFn: func(ctx context.Context, req *models.LLMRequest) (*models.LLMResponse, error) {
			return &models.LLMResponse{
				FinishReason: "tool_calls",
				ToolCalls: []models.LLMToolCall{{
					Function: models.LLMFunctionCall{Name: "echo", Arguments: `{"message":"x"}`},
				}},
			}, nil
		},
	}
	loop, _ := newTestLoop(t, provider)

	_, err := loop.Run(context.Background(), "sess-4", "loop forever", Options{MaxIterations: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iteration budget")
	assert.Equal(t, 2, provider.calls)
}
