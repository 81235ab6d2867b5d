package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/smilemakc/mbflow/pkg/executor"
)

// JSONQueryExecutor projects a value through a gojq query. It is the
// catalog's dedicated json_query node; transform's "jq" transformation type
// shares the same underlying library but stays bundled with transform's
// other modes.
type JSONQueryExecutor struct {
	*executor.BaseExecutor
}

// NewJSONQueryExecutor creates a new json_query executor.
func NewJSONQueryExecutor() *JSONQueryExecutor {
	return &JSONQueryExecutor{
		BaseExecutor: executor.NewBaseExecutor("json_query"),
	}
}

// Execute runs the configured jq query against config["input"], falling back
// to the node's resolved input when config["input"] is absent.
func (e *JSONQueryExecutor) Execute(_ context.Context, config map[string]any, input any) (any, error) {
	queryStr, err := e.GetString(config, "query")
	if err != nil {
		return nil, err
	}

	data := config["input"]
	if data == nil {
		data = input
	}
	data, err = normalizeJSONInput(data)
	if err != nil {
		return nil, err
	}

	query, err := gojq.Parse(queryStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq query: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq query: %w", err)
	}

	iter := code.Run(data)
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("jq query produced no output")
	}
	if err, ok := v.(error); ok {
		return nil, fmt.Errorf("jq query execution error: %w", err)
	}
	return map[string]any{"result": v}, nil
}

// Validate checks that query is present.
func (e *JSONQueryExecutor) Validate(config map[string]any) error {
	if _, err := e.GetString(config, "query"); err != nil {
		return fmt.Errorf("query is required")
	}
	return nil
}

// normalizeJSONInput converts string/[]byte payloads to decoded JSON so gojq
// can walk them; anything already a Go value (map, slice, number) passes through.
func normalizeJSONInput(val any) (any, error) {
	switch v := val.(type) {
	case string:
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return v, nil
		}
		return decoded, nil
	case []byte:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return string(v), nil
		}
		return decoded, nil
	default:
		return v, nil
	}
}
