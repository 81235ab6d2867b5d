package reference

import "encoding/json"

// ResolveValue walks an arbitrary literal parameter value (string, map,
// slice, or scalar) and resolves every reference string found inside it,
// recursively. Non-reference strings and all other literal types pass
// through unchanged. Every resolved value is deep-copied before being
// written into the node's parameter frame, per spec.md §4.2: a node's
// resolved params must never alias the OutputStore's internal state.
func ResolveValue(v any, store OutputStore) (any, error) {
	switch t := v.(type) {
	case string:
		ref, ok := Parse(t)
		if !ok {
			return t, nil
		}
		return Resolve(ref, store)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			rv, err := ResolveValue(val, store)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			rv, err := ResolveValue(val, store)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return t, nil
	}
}

// ResolveParams resolves every value in a node's parameter map.
func ResolveParams(params map[string]any, store OutputStore) (map[string]any, error) {
	resolved, err := ResolveValue(params, store)
	if err != nil {
		return nil, err
	}
	m, _ := resolved.(map[string]any)
	return deepCopyMap(m)
}

// deepCopy makes an independent copy of a resolved value via a JSON
// round-trip, following pkg/models.Workflow.Clone's approach to deep
// copying. Values already produced fresh by resolvePath (new maps/slices)
// are cheap to round-trip since they only ever come from decoded JSON
// output in the first place.
func deepCopy(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func deepCopyMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	v, err := deepCopy(m)
	if err != nil {
		return nil, err
	}
	out, _ := v.(map[string]any)
	return out, nil
}
