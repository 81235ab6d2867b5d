package builtin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebScrapeExecutor_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/a">First</a><a href="/b">Second</a></body></html>`))
	}))
	defer server.Close()

	exec := NewWebScrapeExecutor()
	config := map[string]any{
		"url":      server.URL,
		"selector": "a",
	}

	result, err := exec.Execute(context.Background(), config, nil)
	require.NoError(t, err)

	out, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, out["count"])
}

func TestWebScrapeExecutor_Validate(t *testing.T) {
	exec := NewWebScrapeExecutor()

	require.Error(t, exec.Validate(map[string]any{"url": "http://x"}))
	require.NoError(t, exec.Validate(map[string]any{"url": "http://x", "selector": "a"}))
}
