package capability

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/epigenicai/genagent/types"
)

// WebResult is one hit from the web-search capability.
type WebResult struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet"`
}

// WebSearcher is the free-text web search capability.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]WebResult, error)
}

// WebSearchClient queries a JSON web-search endpoint.
type WebSearchClient struct {
	base *baseClient
}

// NewWebSearchClient creates a web search client.
func NewWebSearchClient(cfg ClientConfig, logger *zap.Logger) *WebSearchClient {
	if cfg.Name == "" {
		cfg.Name = "websearch"
	}
	return &WebSearchClient{base: newBaseClient(cfg, logger)}
}

type webSearchResponse struct {
	Results []WebResult `json:"results"`
}

// Search implements WebSearcher.
func (c *WebSearchClient) Search(ctx context.Context, query string) ([]WebResult, error) {
	if query == "" {
		return nil, types.NewError(types.ErrInvalidInput, "empty query")
	}
	var resp webSearchResponse
	if err := c.base.getJSON(ctx, "/search?q="+url.QueryEscape(query), &resp); err != nil {
		return nil, err
	}
	c.base.logger.Debug("web search complete",
		zap.String("query", query),
		zap.Int("results", len(resp.Results)),
	)
	return resp.Results, nil
}
