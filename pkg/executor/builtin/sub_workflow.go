package builtin

import (
	"context"
	"fmt"

	"github.com/smilemakc/mbflow/pkg/executor"
)

// SubWorkflowExecutor fans out a stored workflow over an array of items in
// parallel, one child execution per item. The fan-out and per-item execution
// live in the SubWorkflowRunner (pkg/engine.DAGExecutor.RunSubWorkflow);
// this type only adapts the executor.Executor boundary.
type SubWorkflowExecutor struct {
	*executor.BaseExecutor
	runner executor.SubWorkflowRunner
}

// NewSubWorkflowExecutor creates a sub_workflow executor bound to runner.
func NewSubWorkflowExecutor(runner executor.SubWorkflowRunner) *SubWorkflowExecutor {
	return &SubWorkflowExecutor{
		BaseExecutor: executor.NewBaseExecutor("sub_workflow"),
		runner:       runner,
	}
}

// Execute delegates to the bound SubWorkflowRunner.
func (e *SubWorkflowExecutor) Execute(ctx context.Context, config map[string]any, input any) (any, error) {
	if err := e.Validate(config); err != nil {
		return nil, err
	}
	inputMap, _ := input.(map[string]any)
	return e.runner.RunSubWorkflow(ctx, config, inputMap)
}

// Validate checks that workflow_id and for_each are present.
func (e *SubWorkflowExecutor) Validate(config map[string]any) error {
	if _, err := e.GetString(config, "workflow_id"); err != nil {
		return fmt.Errorf("workflow_id is required")
	}
	if _, err := e.GetString(config, "for_each"); err != nil {
		return fmt.Errorf("for_each is required")
	}
	return nil
}
