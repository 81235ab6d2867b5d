package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/mbflow/pkg/catalog"
	"github.com/smilemakc/mbflow/pkg/models"
)

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	reg := catalog.NewRegistry()
	noop := func(map[string]any) (catalog.Executor, error) { return nil, nil }
	require.NoError(t, reg.Register(catalog.NodeSpec{
		Type: "http",
		Params: []catalog.ParamSpec{
			{Name: "url", Kind: catalog.KindString, Required: true},
		},
	}, noop))
	require.NoError(t, reg.Register(catalog.NodeSpec{
		Type: "transform",
		Params: []catalog.ParamSpec{
			{Name: "expression", Kind: catalog.KindString, Required: true},
		},
	}, noop))
	return reg
}

func wf(nodes []*models.Node, edges []*models.Edge) *models.Workflow {
	return &models.Workflow{Name: "w", Nodes: nodes, Edges: edges}
}

func TestValidateUnknownNodeType(t *testing.T) {
	reg := testRegistry(t)
	w := wf([]*models.Node{{ID: "a", Name: "a", Type: "nope", Config: map[string]any{}}}, nil)
	_, err := Validate(w, reg, Options{})
	require.Error(t, err)
}

func TestValidateMissingRequiredParam(t *testing.T) {
	reg := testRegistry(t)
	w := wf([]*models.Node{{ID: "a", Name: "a", Type: "http", Config: map[string]any{}}}, nil)
	_, err := Validate(w, reg, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestValidateUnknownReference(t *testing.T) {
	reg := testRegistry(t)
	w := wf([]*models.Node{
		{ID: "a", Name: "a", Type: "transform", Config: map[string]any{"expression": "$missing.field"}},
	}, nil)
	_, err := Validate(w, reg, Options{})
	require.Error(t, err)
}

func TestValidateInfersImplicitEdge(t *testing.T) {
	reg := testRegistry(t)
	w := wf([]*models.Node{
		{ID: "a", Name: "a", Type: "http", Config: map[string]any{"url": "https://x"}},
		{ID: "b", Name: "b", Type: "transform", Config: map[string]any{"expression": "$a.body"}},
	}, nil)
	res, err := Validate(w, reg, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.TopoOrder)

	found := false
	for _, e := range w.Edges {
		if e.From == "a" && e.To == "b" {
			found = true
		}
	}
	assert.True(t, found, "expected implicit edge a->b")
}

func TestValidateCycleNamesNodes(t *testing.T) {
	reg := testRegistry(t)
	w := wf([]*models.Node{
		{ID: "a", Name: "a", Type: "transform", Config: map[string]any{"expression": "$b.x"}},
		{ID: "b", Name: "b", Type: "transform", Config: map[string]any{"expression": "$a.x"}},
	}, nil)
	_, err := Validate(w, reg, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}

func TestValidateAllowLoopContext(t *testing.T) {
	reg := testRegistry(t)
	w := wf([]*models.Node{
		{ID: "a", Name: "a", Type: "transform", Config: map[string]any{"expression": "$loop.item"}},
	}, nil)
	_, err := Validate(w, reg, Options{AllowLoopContext: true})
	require.NoError(t, err)
}
