package builtin

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/smilemakc/mbflow/pkg/executor"
)

// WebScrapeExecutor fetches a page and extracts structured elements via a
// goquery CSS selector, the same library html_clean.go uses for readability
// preprocessing - here applied directly for structured extraction instead.
type WebScrapeExecutor struct {
	*executor.BaseExecutor
	client *http.Client
}

// NewWebScrapeExecutor creates a new web_scrape executor.
func NewWebScrapeExecutor() *WebScrapeExecutor {
	return &WebScrapeExecutor{
		BaseExecutor: executor.NewBaseExecutor("web_scrape"),
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// Execute fetches config["url"] and returns the text and href of every
// element matching config["selector"].
func (e *WebScrapeExecutor) Execute(ctx context.Context, config map[string]any, _ any) (any, error) {
	urlStr, err := e.GetString(config, "url")
	if err != nil {
		return nil, err
	}
	selector, err := e.GetString(config, "selector")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("web_scrape: build request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web_scrape: fetch %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("web_scrape: %s returned status %d", urlStr, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("web_scrape: parse html: %w", err)
	}

	elements := make([]map[string]any, 0)
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		elements = append(elements, map[string]any{
			"text": strings.TrimSpace(s.Text()),
			"href": href,
		})
	})

	return map[string]any{
		"elements": elements,
		"count":    len(elements),
	}, nil
}

// Validate checks that url and selector are present.
func (e *WebScrapeExecutor) Validate(config map[string]any) error {
	return e.ValidateRequired(config, "url", "selector")
}
