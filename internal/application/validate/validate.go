// Package validate implements the workflow validator (spec.md C3): shape,
// parameter, and reference checks, implicit edge inference, and cycle
// detection, producing a topological execution order.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/smilemakc/mbflow/internal/reference"
	"github.com/smilemakc/mbflow/pkg/catalog"
	"github.com/smilemakc/mbflow/pkg/engine"
	"github.com/smilemakc/mbflow/pkg/models"
)

// Options tunes validation for contexts beyond a top-level workflow run.
type Options struct {
	// AllowLoopContext permits references to the reserved "loop" id, used
	// when validating a loop_node's nested workflow_json.
	AllowLoopContext bool
}

// Result is the validator's output: the (possibly edge-augmented) workflow
// and its flattened topological order.
type Result struct {
	Workflow  *models.Workflow
	TopoOrder []string
}

// Validate runs the full C3 pipeline against reg, the node catalog.
func Validate(wf *models.Workflow, reg *catalog.Registry, opts Options) (*Result, error) {
	if err := shapeCheck(wf, reg); err != nil {
		return nil, err
	}
	if err := paramCheck(wf, reg); err != nil {
		return nil, err
	}
	if err := referenceCheck(wf, opts); err != nil {
		return nil, err
	}
	inferImplicitEdges(wf)

	dag := engine.BuildDAG(wf)
	waves, err := engine.TopologicalSort(dag)
	if err != nil {
		return nil, err
	}
	return &Result{Workflow: wf, TopoOrder: engine.FlattenWaves(waves)}, nil
}

func shapeCheck(wf *models.Workflow, reg *catalog.Registry) error {
	if err := wf.Validate(); err != nil {
		return fmt.Errorf("validate: shape: %w", err)
	}
	for _, n := range wf.Nodes {
		if !reg.Has(n.Type) {
			return fmt.Errorf("validate: shape: node %q has unknown type %q", n.ID, n.Type)
		}
	}
	return nil
}

func paramCheck(wf *models.Workflow, reg *catalog.Registry) error {
	for _, n := range wf.Nodes {
		spec, _, err := reg.Lookup(n.Type)
		if err != nil {
			return fmt.Errorf("validate: params: %w", err)
		}
		for _, p := range spec.Params {
			val, present := n.Config[p.Name]
			if !present {
				if p.Required {
					return fmt.Errorf("validate: params: node %q missing required param %q", n.ID, p.Name)
				}
				continue
			}
			if err := checkKind(val, p.Kind); err != nil {
				return fmt.Errorf("validate: params: node %q param %q: %w", n.ID, p.Name, err)
			}
		}
	}
	return nil
}

// checkKind coerces/validates val against the declared ParamKind. A
// reference string ("$node.field") always passes: its runtime type is only
// known when the node actually resolves, not at validation time.
func checkKind(val any, kind catalog.ParamKind) error {
	if s, ok := val.(string); ok {
		if _, isRef := reference.Parse(s); isRef {
			return nil
		}
	}
	switch kind {
	case catalog.KindAny, "":
		return nil
	case catalog.KindString:
		if _, ok := val.(string); !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
	case catalog.KindNumber:
		switch val.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("expected number, got %T", val)
		}
	case catalog.KindBool:
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", val)
		}
	case catalog.KindMapping:
		return validateJSONShape(val, mappingSchema)
	case catalog.KindSequence:
		return validateJSONShape(val, sequenceSchema)
	}
	return nil
}

const mappingSchema = `{"type": "object"}`
const sequenceSchema = `{"type": "array"}`

// validateJSONShape validates that val - which may already be a decoded
// map/slice, or a JSON-shaped string that needs parsing first - matches the
// given JSON-Schema document, using xeipuuv/gojsonschema (the same library
// pkg/catalog/load.go uses for its meta-schema check) for the
// mapping/sequence coercion step spec.md §4.3 calls for.
func validateJSONShape(val any, schemaDoc string) error {
	target := val
	if s, ok := val.(string); ok {
		if err := json.Unmarshal([]byte(s), &target); err != nil {
			return fmt.Errorf("not a JSON-shaped string: %w", err)
		}
	}

	targetBytes, err := json.Marshal(target)
	if err != nil {
		return fmt.Errorf("encode value for shape check: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaDoc)
	docLoader := gojsonschema.NewBytesLoader(targetBytes)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("shape validation error: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("shape mismatch: %v", result.Errors())
	}
	return nil
}

func referenceCheck(wf *models.Workflow, opts Options) error {
	ids := make(map[string]bool, len(wf.Nodes))
	for _, n := range wf.Nodes {
		ids[n.ID] = true
	}
	for _, n := range wf.Nodes {
		refs := collectRefs(n.Config)
		for _, r := range refs {
			if r.ID == "loop" && opts.AllowLoopContext {
				continue
			}
			if !ids[r.ID] {
				return fmt.Errorf("validate: reference: node %q references unknown id %q", n.ID, r.ID)
			}
		}
	}
	return nil
}

func collectRefs(v any) []*reference.Ref {
	var out []*reference.Ref
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			if r, ok := reference.Parse(t); ok {
				out = append(out, r)
			}
		case map[string]any:
			for _, val := range t {
				walk(val)
			}
		case []any:
			for _, val := range t {
				walk(val)
			}
		}
	}
	walk(v)
	return out
}

// inferImplicitEdges adds an edge (x -> y) for every reference from node y's
// params to node x that is not already represented by an explicit edge,
// per spec.md §4.3 step 4.
func inferImplicitEdges(wf *models.Workflow) {
	existing := make(map[string]bool, len(wf.Edges))
	for _, e := range wf.Edges {
		existing[e.From+"->"+e.To] = true
	}
	var added []*models.Edge
	for _, n := range wf.Nodes {
		for _, r := range collectRefs(n.Config) {
			if r.ID == "loop" {
				continue
			}
			key := r.ID + "->" + n.ID
			if existing[key] || r.ID == n.ID {
				continue
			}
			existing[key] = true
			added = append(added, &models.Edge{
				ID:   fmt.Sprintf("implicit-%s-%s", r.ID, n.ID),
				From: r.ID,
				To:   n.ID,
			})
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i].ID < added[j].ID })
	wf.Edges = append(wf.Edges, added...)
}
