package capability

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/epigenicai/genagent/types"
)

// LiteratureSearcher is the literature-index capability: ranked citations
// for a gene query.
type LiteratureSearcher interface {
	Search(ctx context.Context, gene string, maxResults int) ([]types.Citation, error)
}

// PubMedClient queries an E-utilities style literature index: an esearch
// call resolves the gene to document ids, an esummary call resolves ids to
// citation records.
type PubMedClient struct {
	base *baseClient
}

// NewPubMedClient creates a literature search client.
func NewPubMedClient(cfg ClientConfig, logger *zap.Logger) *PubMedClient {
	if cfg.Name == "" {
		cfg.Name = "pubmed"
	}
	return &PubMedClient{base: newBaseClient(cfg, logger)}
}

type esearchResponse struct {
	Result struct {
		IDs []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryResponse struct {
	Result map[string]struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Snippet string  `json:"snippet"`
		Score   float64 `json:"score"`
	} `json:"result"`
}

// Search implements LiteratureSearcher. Results come back in the index's
// relevance order.
func (c *PubMedClient) Search(ctx context.Context, gene string, maxResults int) ([]types.Citation, error) {
	if gene == "" {
		return nil, types.NewError(types.ErrInvalidInput, "empty gene")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	var search esearchResponse
	searchPath := fmt.Sprintf("/esearch.fcgi?db=pubmed&retmode=json&retmax=%d&term=%s",
		maxResults, url.QueryEscape(gene))
	if err := c.base.getJSON(ctx, searchPath, &search); err != nil {
		return nil, err
	}
	if len(search.Result.IDs) == 0 {
		c.base.logger.Info("literature search returned no results", zap.String("gene", gene))
		return []types.Citation{}, nil
	}

	ids := search.Result.IDs
	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	var summary esummaryResponse
	summaryPath := "/esummary.fcgi?db=pubmed&retmode=json&id=" + url.QueryEscape(strings.Join(ids, ","))
	if err := c.base.getJSON(ctx, summaryPath, &summary); err != nil {
		return nil, err
	}

	citations := make([]types.Citation, 0, len(ids))
	for _, id := range ids {
		rec, ok := summary.Result[id]
		if !ok {
			continue
		}
		citations = append(citations, types.Citation{
			SourceID:       id,
			Title:          rec.Title,
			URL:            rec.URL,
			Snippet:        rec.Snippet,
			RelevanceScore: rec.Score,
		})
	}
	return citations, nil
}
