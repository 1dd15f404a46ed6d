package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/epigenicai/genagent/capability"
	"github.com/epigenicai/genagent/rag"
	"github.com/epigenicai/genagent/types"
)

// WebAgent gathers open-web context for a gene: recent news, reviews, and
// company announcements the literature index lags behind on.
type WebAgent struct {
	searcher capability.WebSearcher
	tool     *rag.Tool
	logger   *zap.Logger
}

// NewWebAgent creates a web agent.
func NewWebAgent(searcher capability.WebSearcher, tool *rag.Tool, logger *zap.Logger) *WebAgent {
	return &WebAgent{
		searcher: searcher,
		tool:     tool,
		logger:   logger.With(zap.String("component", "web_agent")),
	}
}

// Variant implements types.Agent.
func (a *WebAgent) Variant() types.Variant { return types.VariantWeb }

// Run implements types.Agent. Indexed documents key on the result URL, so
// retries re-register nothing.
func (a *WebAgent) Run(ctx context.Context, rc *types.RunContext, input any) (any, error) {
	in, ok := input.(WebInput)
	if !ok {
		return nil, types.Errorf(types.ErrInvalidInput, "web agent: unexpected input %T", input)
	}
	if in.Gene == "" {
		return nil, types.NewError(types.ErrInvalidInput, "web agent: empty gene")
	}

	rc.ReportProgress(10)
	query := fmt.Sprintf("%s gene target %s", in.Gene, in.Disease)
	results, err := a.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	rc.ReportProgress(60)

	for _, res := range results {
		if res.Snippet == "" {
			continue
		}
		_, err := a.tool.IndexDocument(ctx, rag.Document{
			ID:      "web:" + res.URL,
			Content: res.Title + ". " + res.Snippet,
			Metadata: map[string]string{
				"source": "web",
				"url":    res.URL,
			},
		})
		if err != nil {
			return nil, err
		}
	}
	rc.ReportProgress(100)

	a.logger.Info("web retrieval complete",
		zap.String("job_id", rc.JobID),
		zap.String("gene", in.Gene),
		zap.Int("results", len(results)),
	)
	return WebOutput{Results: results}, nil
}
