package builtin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/smilemakc/mbflow/pkg/executor"
)

// WebReadExecutor fetches a page and extracts its readable article text
// using go-readability, the same library html_clean.go runs against
// already-fetched HTML - here applied to a freshly fetched page.
type WebReadExecutor struct {
	*executor.BaseExecutor
	client *http.Client
}

// NewWebReadExecutor creates a new web_read executor.
func NewWebReadExecutor() *WebReadExecutor {
	return &WebReadExecutor{
		BaseExecutor: executor.NewBaseExecutor("web_read"),
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// Execute fetches config["url"] and returns its title and readable text.
func (e *WebReadExecutor) Execute(ctx context.Context, config map[string]any, _ any) (any, error) {
	urlStr, err := e.GetString(config, "url")
	if err != nil {
		return nil, err
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("web_read: invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("web_read: build request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web_read: fetch %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("web_read: %s returned status %d", urlStr, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return nil, fmt.Errorf("web_read: extract article: %w", err)
	}

	return map[string]any{
		"title":     article.Title,
		"text":      strings.TrimSpace(article.TextContent),
		"author":    article.Byline,
		"excerpt":   article.Excerpt,
		"site_name": article.SiteName,
	}, nil
}

// Validate checks that url is present.
func (e *WebReadExecutor) Validate(config map[string]any) error {
	return e.ValidateRequired(config, "url")
}
