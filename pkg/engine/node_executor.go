package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/smilemakc/mbflow/internal/infrastructure/logger"
	"github.com/smilemakc/mbflow/internal/infrastructure/tracing"
	"github.com/smilemakc/mbflow/internal/reference"
	"github.com/smilemakc/mbflow/pkg/executor"
	"github.com/smilemakc/mbflow/pkg/models"
)

// NodeExecutor executes a single node: resolve its params against the run's
// OutputStore via internal/reference, then hand the resolved frame to the
// catalog-bound executor.
type NodeExecutor struct {
	executorManager executor.Manager
}

// NewNodeExecutor creates a new node executor.
func NewNodeExecutor(manager executor.Manager) *NodeExecutor {
	return &NodeExecutor{
		executorManager: manager,
	}
}

// NodeExecutionResult contains the result of node execution along with metadata.
type NodeExecutionResult struct {
	Output         interface{}
	Input          interface{}
	Config         map[string]interface{}
	ResolvedConfig map[string]interface{}
}

// NodeContext holds context for single node execution.
type NodeContext struct {
	ExecutionID        string
	NodeID             string
	Node               *models.Node
	WorkflowVariables  map[string]interface{}
	ExecutionVariables map[string]interface{}
	DirectParentOutput map[string]interface{}
	Resources          map[string]interface{}
	StrictMode         bool

	// Store is the OutputStore a "$id.path" reference in Node.Config resolves
	// against (spec.md §4.2); always the run's *ExecutionState.
	Store reference.OutputStore
}

// Execute resolves the node's params via the C2 reference grammar against
// Store, then executes with the resolved frame. Implements spec.md §4.4 step
// 1: a resolution failure is reported to the caller without ever invoking
// the factory. Each call opens its own span (adapting
// internal/infrastructure/tracing the way the rest of the server instruments
// a unit of work) and emits one structured log line per terminal outcome via
// internal/infrastructure/logger.
func (ne *NodeExecutor) Execute(ctx context.Context, nodeCtx *NodeContext) (*NodeExecutionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "node.execute",
		trace.WithAttributes(
			attribute.String("execution.id", nodeCtx.ExecutionID),
			attribute.String("node.id", nodeCtx.NodeID),
			attribute.String("node.type", nodeCtx.Node.Type),
		),
	)
	defer span.End()

	log := logger.Default().With(
		"execution_id", nodeCtx.ExecutionID,
		"node_id", nodeCtx.NodeID,
		"node_type", nodeCtx.Node.Type,
	)

	baseExecutor, err := ne.executorManager.Get(nodeCtx.Node.Type)
	if err != nil {
		err = fmt.Errorf("executor not found for type %s: %w", nodeCtx.Node.Type, err)
		tracing.RecordError(ctx, err)
		log.ErrorContext(ctx, "node execution failed: unknown type", "error", err)
		return nil, err
	}

	resolvedConfig, err := reference.ResolveParams(nodeCtx.Node.Config, nodeCtx.Store)
	if err != nil {
		err = fmt.Errorf("param resolution failed: %w", err)
		tracing.RecordError(ctx, err)
		log.ErrorContext(ctx, "node execution failed: param resolution", "error", err)
		return nil, err
	}

	output, err := baseExecutor.Execute(ctx, resolvedConfig, nodeCtx.DirectParentOutput)

	result := &NodeExecutionResult{
		Output:         output,
		Input:          nodeCtx.DirectParentOutput,
		Config:         nodeCtx.Node.Config,
		ResolvedConfig: resolvedConfig,
	}

	if err != nil {
		err = fmt.Errorf("node execution failed: %w", err)
		tracing.RecordError(ctx, err)
		log.ErrorContext(ctx, "node execution failed", "error", err)
		return result, err
	}

	log.InfoContext(ctx, "node execution completed")
	return result, nil
}

// PrepareNodeContext builds NodeContext from execution state and node.
//
// Input merging strategy (for DirectParentOutput, the convenience value
// handed to executors that read positional input rather than "$parent.field"
// references):
//   - No parents: uses execution input
//   - Single parent: merges execution input with parent output (parent output takes precedence)
//   - Multiple parents: merges outputs namespaced by parent node ID
func PrepareNodeContext(
	execState *ExecutionState,
	node *models.Node,
	parentNodes []*models.Node,
	opts *ExecutionOptions,
) *NodeContext {
	var directParentOutput map[string]interface{}

	if len(parentNodes) == 1 {
		directParentOutput = make(map[string]interface{})

		for k, v := range execState.Input {
			directParentOutput[k] = v
		}

		parentID := parentNodes[0].ID
		if output, ok := execState.GetNodeOutput(parentID); ok {
			if outputMap, ok := output.(map[string]interface{}); ok {
				for k, v := range outputMap {
					directParentOutput[k] = v
				}
			}
		}
	} else if len(parentNodes) > 1 {
		directParentOutput = mergeParentOutputs(execState, parentNodes)
	} else {
		directParentOutput = execState.Input
	}

	return &NodeContext{
		ExecutionID:        execState.ExecutionID,
		NodeID:             node.ID,
		Node:               node,
		WorkflowVariables:  execState.Workflow.Variables,
		ExecutionVariables: execState.Variables,
		DirectParentOutput: directParentOutput,
		Resources:          execState.Resources,
		StrictMode:         opts.StrictMode,
		Store:              execState,
	}
}

// mergeParentOutputs merges outputs from multiple parent nodes.
// Outputs are namespaced by parent node ID to avoid collisions.
func mergeParentOutputs(execState *ExecutionState, parentNodes []*models.Node) map[string]interface{} {
	merged := make(map[string]interface{})

	for _, parent := range parentNodes {
		if output, ok := execState.GetNodeOutput(parent.ID); ok {
			merged[parent.ID] = output
		}
	}

	return merged
}
