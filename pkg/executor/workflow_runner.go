package executor

import "context"

// WorkflowRunner executes a nested workflow document on behalf of a
// composite node (loop_node), without pkg/executor importing pkg/engine
// back (pkg/engine already imports pkg/executor for the Manager/Executor
// types, so the dependency can only run one way).
//
// loopContext, when non-nil, is the synthesized {index,item,length,first,last}
// object the runner should make resolvable under the reserved id "loop"
// inside the child run.
type WorkflowRunner interface {
	RunWorkflow(ctx context.Context, workflowJSON map[string]any, input map[string]any, loopContext map[string]any) (any, error)
}

// SubWorkflowRunner executes a workflow looked up by ID, fanning out over
// an array of items (sub_workflow node). Config and input are the node's
// already-resolved config and its merged parent output, exactly as passed
// to Executor.Execute.
type SubWorkflowRunner interface {
	RunSubWorkflow(ctx context.Context, config map[string]any, input map[string]any) (any, error)
}
