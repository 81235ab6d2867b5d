package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONQueryExecutor_Execute(t *testing.T) {
	exec := NewJSONQueryExecutor()

	config := map[string]any{
		"query": ".users[0].name",
	}
	input := map[string]any{
		"users": []any{
			map[string]any{"name": "Ada"},
		},
	}

	result, err := exec.Execute(context.Background(), config, input)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": "Ada"}, result)
}

func TestJSONQueryExecutor_Execute_StringInput(t *testing.T) {
	exec := NewJSONQueryExecutor()

	config := map[string]any{
		"query": ".count",
		"input": `{"count": 3}`,
	}

	result, err := exec.Execute(context.Background(), config, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": float64(3)}, result)
}

func TestJSONQueryExecutor_Validate(t *testing.T) {
	exec := NewJSONQueryExecutor()

	require.Error(t, exec.Validate(map[string]any{}))
	require.NoError(t, exec.Validate(map[string]any{"query": "."}))
}
