package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/epigenicai/genagent/capability"
	"github.com/epigenicai/genagent/rag"
	"github.com/epigenicai/genagent/types"
)

// LiteratureAgent searches the literature index for a gene and registers
// every found passage with the job's retrieval tool so later stages can
// ground claims against it.
type LiteratureAgent struct {
	searcher capability.LiteratureSearcher
	tool     *rag.Tool
	logger   *zap.Logger
}

// NewLiteratureAgent creates a literature agent.
func NewLiteratureAgent(searcher capability.LiteratureSearcher, tool *rag.Tool, logger *zap.Logger) *LiteratureAgent {
	return &LiteratureAgent{
		searcher: searcher,
		tool:     tool,
		logger:   logger.With(zap.String("component", "literature_agent")),
	}
}

// Variant implements types.Agent.
func (a *LiteratureAgent) Variant() types.Variant { return types.VariantLiterature }

// Run implements types.Agent. Indexing keys on the citation source id, so a
// retried run re-registers nothing.
func (a *LiteratureAgent) Run(ctx context.Context, rc *types.RunContext, input any) (any, error) {
	in, ok := input.(LiteratureInput)
	if !ok {
		return nil, types.Errorf(types.ErrInvalidInput, "literature agent: unexpected input %T", input)
	}
	if in.Gene == "" {
		return nil, types.NewError(types.ErrInvalidInput, "literature agent: empty gene")
	}

	rc.ReportProgress(10)
	papers, err := a.searcher.Search(ctx, in.Gene, in.MaxResults)
	if err != nil {
		return nil, err
	}
	rc.ReportProgress(50)

	for i, paper := range papers {
		_, err := a.tool.IndexDocument(ctx, rag.Document{
			ID:      "pubmed:" + paper.SourceID,
			Content: paper.Title + ". " + paper.Snippet,
			Metadata: map[string]string{
				"source": "pubmed",
				"url":    paper.URL,
			},
		})
		if err != nil {
			return nil, err
		}
		rc.ReportProgress(50 + (i+1)*50/len(papers))
	}
	rc.ReportProgress(100)

	a.logger.Info("literature retrieval complete",
		zap.String("job_id", rc.JobID),
		zap.String("gene", in.Gene),
		zap.Int("papers", len(papers)),
	)
	return LiteratureResult{Papers: papers}, nil
}
