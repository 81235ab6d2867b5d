package catalog

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlToJSON re-encodes a YAML document as JSON so it can be validated by a
// JSON-Schema validator. gojsonschema has no native YAML support.
func yamlToJSON(raw []byte) ([]byte, error) {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	generic = normalizeYAML(generic)
	return json.Marshal(generic)
}

// normalizeYAML converts map[string]interface{} keys that yaml.v3 may decode
// as map[interface{}]interface{} in nested structures into JSON-safe
// map[string]any, recursively.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
