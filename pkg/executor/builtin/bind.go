package builtin

import (
	"fmt"

	"github.com/smilemakc/mbflow/pkg/catalog"
	"github.com/smilemakc/mbflow/pkg/executor"
)

// Bind registers one catalog.Factory per spec, each of which looks up the
// matching executor.Executor from manager and runs it against the node's
// already-resolved params. Call this after manager has every built-in
// executor this process needs (RegisterBuiltins, RegisterAdapters,
// RegisterFileStorage, RegisterFileAdapters) registered, and before
// registry.Freeze.
//
// A catalog entry with no matching manager registration (e.g. a node type
// the catalog declares but this process doesn't run, such as python_execute
// on a host with no interpreter configured) is skipped rather than failed,
// so a partial catalog document stays loadable; the gap only surfaces if
// that node type is actually referenced by a workflow.
func Bind(registry *catalog.Registry, manager executor.Manager, specs map[string]catalog.NodeSpec) error {
	for _, spec := range specs {
		if !manager.Has(spec.Type) {
			continue
		}
		factory := factoryFor(manager, spec.Type)
		if err := registry.Register(spec, factory); err != nil {
			return fmt.Errorf("builtin: bind %q: %w", spec.Type, err)
		}
	}
	return nil
}

// factoryFor adapts manager's narrow Executor.Execute(ctx, config, input)
// boundary into a catalog.Factory, which separates "build a runnable" from
// "run it" so FactoryContext can carry per-invocation collaborators the
// underlying Executor never sees directly.
func factoryFor(manager executor.Manager, nodeType string) catalog.Factory {
	return func(resolvedParams map[string]any) (catalog.Executor, error) {
		exec, err := manager.Get(nodeType)
		if err != nil {
			return nil, fmt.Errorf("builtin: no executor registered for %q: %w", nodeType, err)
		}
		return catalog.ExecutorFunc(func(fctx catalog.FactoryContext) (any, error) {
			return exec.Execute(fctx.Context, resolvedParams, fctx.Input)
		}), nil
	}
}
