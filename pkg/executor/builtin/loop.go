package builtin

import (
	"context"
	"fmt"
	"reflect"

	"github.com/smilemakc/mbflow/pkg/executor"
)

// LoopExecutor runs a nested workflow once per item of an array, sequentially,
// stopping at the first failure unless continue_on_error is set. The actual
// child run happens through a WorkflowRunner (pkg/engine.DAGExecutor.RunWorkflow)
// so this package never imports pkg/engine back.
type LoopExecutor struct {
	*executor.BaseExecutor
	runner executor.WorkflowRunner
}

// NewLoopExecutor creates a loop_node executor bound to runner.
func NewLoopExecutor(runner executor.WorkflowRunner) *LoopExecutor {
	return &LoopExecutor{
		BaseExecutor: executor.NewBaseExecutor("loop_node"),
		runner:       runner,
	}
}

// Execute runs the configured child workflow once per item in "array".
func (e *LoopExecutor) Execute(ctx context.Context, config map[string]any, input any) (any, error) {
	if err := e.Validate(config); err != nil {
		return nil, err
	}

	items, err := toSlice(config["array"])
	if err != nil {
		return nil, fmt.Errorf("loop_node array: %w", err)
	}

	workflowJSON, _ := config["workflow_json"].(map[string]any)
	continueOnError := e.GetBoolDefault(config, "continue_on_error", false)

	inputMap, _ := input.(map[string]any)

	type iterationResult struct {
		Index  int    `json:"index"`
		Status string `json:"status"`
		Output any    `json:"output,omitempty"`
		Error  string `json:"error,omitempty"`
	}

	results := make([]iterationResult, 0, len(items))
	allSucceeded := true

	for i, item := range items {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		loopCtx := map[string]any{
			"index":  i,
			"item":   item,
			"length": len(items),
			"first":  i == 0,
			"last":   i == len(items)-1,
		}

		out, err := e.runner.RunWorkflow(ctx, workflowJSON, inputMap, loopCtx)
		if err != nil {
			allSucceeded = false
			results = append(results, iterationResult{Index: i, Status: "failed", Error: err.Error()})
			if !continueOnError {
				break
			}
			continue
		}
		results = append(results, iterationResult{Index: i, Status: "completed", Output: out})
	}

	output := map[string]any{
		"results": results,
		"total":   len(items),
		"success": allSucceeded,
	}

	if !allSucceeded && !continueOnError {
		return output, fmt.Errorf("loop_node: iteration failed, stopped early (%d/%d completed)", len(results)-1, len(items))
	}
	return output, nil
}

// Validate checks that array and workflow_json are present.
func (e *LoopExecutor) Validate(config map[string]any) error {
	if _, ok := config["array"]; !ok {
		return fmt.Errorf("array is required")
	}
	if _, ok := config["workflow_json"].(map[string]any); !ok {
		return fmt.Errorf("workflow_json is required")
	}
	return nil
}

// toSlice converts various array types to []any.
func toSlice(val any) ([]any, error) {
	if val == nil {
		return nil, fmt.Errorf("value is nil")
	}
	if s, ok := val.([]any); ok {
		return s, nil
	}
	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		result := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			result[i] = rv.Index(i).Interface()
		}
		return result, nil
	}
	return nil, fmt.Errorf("must be an array, got: %T", val)
}
