package engine

import (
	"context"
	"fmt"

	"github.com/smilemakc/mbflow/pkg/models"
)

// WorkflowLoader resolves a workflow document by ID. sub_workflow nodes
// (sub_workflow.go) use it to fetch the child workflow they fan out over;
// loop_node nodes carry their child workflow inline instead and never call it.
type WorkflowLoader interface {
	LoadWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error)
}

// NilWorkflowLoader rejects every lookup. It is the default for DAGExecutors
// that never expect to see a sub_workflow node.
type NilWorkflowLoader struct{}

// NewNilWorkflowLoader creates a loader that always errors.
func NewNilWorkflowLoader() *NilWorkflowLoader {
	return &NilWorkflowLoader{}
}

// LoadWorkflow always fails.
func (l *NilWorkflowLoader) LoadWorkflow(_ context.Context, workflowID string) (*models.Workflow, error) {
	return nil, fmt.Errorf("workflow loader not configured: cannot load workflow %s", workflowID)
}

// MockWorkflowLoader serves workflows from a fixed in-memory map, for tests.
type MockWorkflowLoader struct {
	workflows map[string]*models.Workflow
}

// NewMockWorkflowLoader creates a loader backed by the given map.
func NewMockWorkflowLoader(workflows map[string]*models.Workflow) *MockWorkflowLoader {
	return &MockWorkflowLoader{workflows: workflows}
}

// LoadWorkflow returns the workflow registered under workflowID, if any.
func (l *MockWorkflowLoader) LoadWorkflow(_ context.Context, workflowID string) (*models.Workflow, error) {
	wf, ok := l.workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("workflow not found: %s", workflowID)
	}
	return wf, nil
}

// RepositoryWorkflowLoader adapts a storage-backed workflow repository into
// a WorkflowLoader, for a server process that loads sub_workflow children
// from the same store that serves the catalog's CRUD surface.
type RepositoryWorkflowLoader struct {
	get func(ctx context.Context, id string) (*models.Workflow, error)
}

// NewRepositoryWorkflowLoader wraps a get-by-ID function as a WorkflowLoader.
func NewRepositoryWorkflowLoader(get func(ctx context.Context, id string) (*models.Workflow, error)) *RepositoryWorkflowLoader {
	return &RepositoryWorkflowLoader{get: get}
}

// LoadWorkflow delegates to the wrapped function.
func (l *RepositoryWorkflowLoader) LoadWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return l.get(ctx, workflowID)
}
