package catalog

import (
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// metaSchema validates the shape of the catalog document itself (not a
// node's params at workflow-validation time - that is internal/application/validate's
// job against the already-loaded NodeSpec.Params).
const metaSchema = `{
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "name"],
        "properties": {
          "type": {"type": "string"},
          "name": {"type": "string"},
          "description": {"type": "string"},
          "retriable": {"type": "boolean"},
          "isolation": {"type": "string", "enum": ["none", "worker"]},
          "default_timeout": {"type": "string"},
          "params": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name", "kind"],
              "properties": {
                "name": {"type": "string"},
                "kind": {"type": "string", "enum": ["string", "number", "bool", "mapping", "sequence", "any"]},
                "required": {"type": "boolean"},
                "doc": {"type": "string"}
              }
            }
          },
          "outputs": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name"],
              "properties": {
                "name": {"type": "string"},
                "doc": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

type catalogDoc struct {
	Nodes []catalogNodeDoc `yaml:"nodes" json:"nodes"`
}

type catalogNodeDoc struct {
	Type           string      `yaml:"type" json:"type"`
	Name           string      `yaml:"name" json:"name"`
	Description    string      `yaml:"description,omitempty" json:"description,omitempty"`
	Retriable      bool        `yaml:"retriable,omitempty" json:"retriable,omitempty"`
	Isolation      string      `yaml:"isolation,omitempty" json:"isolation,omitempty"`
	DefaultTimeout string      `yaml:"default_timeout,omitempty" json:"default_timeout,omitempty"`
	Params         []ParamSpec `yaml:"params,omitempty" json:"params,omitempty"`
	Outputs        []OutputSpec `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// LoadFile reads a YAML catalog document from path, validates it against the
// catalog meta-schema, and returns the decoded NodeSpecs keyed by type. It
// does not register factories: callers bind each decoded NodeSpec to a
// built-in factory by type after loading (see pkg/executor/builtin.Bind).
func LoadFile(path string) (map[string]NodeSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return LoadBytes(raw)
}

// LoadBytes parses and validates a YAML catalog document already in memory.
func LoadBytes(raw []byte) (map[string]NodeSpec, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	// yaml.v3 round-trips cleanly through JSON for jsonschema validation,
	// since the catalog file has no YAML-only features (anchors aside).
	jsonBytes, err := yamlToJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog: normalize for validation: %w", err)
	}
	schemaLoader := gojsonschema.NewStringLoader(metaSchema)
	docLoader := gojsonschema.NewBytesLoader(jsonBytes)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("catalog: schema validation error: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("catalog: invalid catalog document: %v", result.Errors())
	}

	out := make(map[string]NodeSpec, len(doc.Nodes))
	for _, n := range doc.Nodes {
		spec := NodeSpec{
			Type:        n.Type,
			Name:        n.Name,
			Description: n.Description,
			Retriable:   n.Retriable,
			Isolation:   Isolation(n.Isolation),
			Params:      n.Params,
			Outputs:     n.Outputs,
		}
		if n.DefaultTimeout != "" {
			d, err := parseDuration(n.DefaultTimeout)
			if err != nil {
				return nil, fmt.Errorf("catalog: node %q default_timeout: %w", n.Type, err)
			}
			spec.DefaultTimeout = d
		}
		if _, dup := out[n.Type]; dup {
			return nil, fmt.Errorf("catalog: duplicate node type %q in catalog file", n.Type)
		}
		out[n.Type] = spec
	}
	return out, nil
}
