package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/smilemakc/mbflow/pkg/models"
)

// NodeTypeLoop is the sequential, fail-fast-by-default loop node, distinct
// from the pre-existing NodeTypeSubWorkflow (parallel fan-out, by-reference
// child workflow, aggregate-only failure policy, kept in sub_workflow.go).
// It is exercised through the executor.WorkflowRunner boundary: the
// pkg/executor/builtin.LoopExecutor parses the array and per-item
// continuation policy, then calls DAGExecutor.RunWorkflow once per item.
const NodeTypeLoop = "loop_node"

// loopIterationResult is one entry of a loop_node's "results" output.
type loopIterationResult struct {
	Index  int    `json:"index"`
	Status string `json:"status"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RunWorkflow implements executor.WorkflowRunner: it decodes workflowJSON
// into a child workflow, runs it to completion against a fresh
// ExecutionState seeded with input and loopContext, and returns the child's
// terminal output the same way sub_workflow.go's executeSubWorkflowItem does.
func (de *DAGExecutor) RunWorkflow(
	ctx context.Context,
	workflowJSON map[string]any,
	input map[string]any,
	loopContext map[string]any,
) (any, error) {
	childWF, err := workflowFromJSON(workflowJSON)
	if err != nil {
		return nil, fmt.Errorf("loop_node workflow_json: %w", err)
	}

	childExecID := uuid.New().String()
	childState := NewExecutionState(childExecID, childWF.ID, childWF, input, nil)
	childState.LoopContext = loopContext

	if err := de.Execute(ctx, childState, DefaultExecutionOptions()); err != nil {
		return nil, err
	}
	return collectChildOutput(childState), nil
}

// workflowFromJSON decodes a loop_node's inline workflow_json parameter
// into a *models.Workflow, following the same JSON round-trip Workflow.Clone
// already uses elsewhere in this package.
func workflowFromJSON(doc map[string]any) (*models.Workflow, error) {
	wf := &models.Workflow{}
	if err := remarshal(doc, wf); err != nil {
		return nil, err
	}
	if wf.ID == "" {
		wf.ID = uuid.New().String()
	}
	if wf.Name == "" {
		wf.Name = "loop-body"
	}
	if err := wf.Validate(); err != nil {
		return nil, fmt.Errorf("nested workflow: %w", err)
	}
	return wf, nil
}
