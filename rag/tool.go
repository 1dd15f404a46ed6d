package rag

import (
	"context"

	"go.uber.org/zap"
)

// Tool combines an Embedder and an Index into the retrieval surface the
// agents use: index a passage, search for relevant passages.
type Tool struct {
	embedder Embedder
	index    *Index
	logger   *zap.Logger
}

// NewTool creates a retrieval tool over a fresh index.
func NewTool(embedder Embedder, logger *zap.Logger) *Tool {
	return &Tool{
		embedder: embedder,
		index:    NewIndex(logger),
		logger:   logger.With(zap.String("component", "rag_tool")),
	}
}

// IndexDocument embeds and stores a document, returning its id. Documents
// that are already indexed are left untouched.
func (t *Tool) IndexDocument(ctx context.Context, doc Document) (string, error) {
	if len(doc.Embedding) == 0 {
		vectors, err := t.embedder.Embed(ctx, []string{doc.Content})
		if err != nil {
			return "", err
		}
		doc.Embedding = vectors[0]
	}
	if err := t.index.Add(doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

// Search embeds the query and returns at most topK matches scoring at least
// minScore, in descending score order. Search observes every document whose
// IndexDocument call returned before Search was invoked.
func (t *Tool) Search(ctx context.Context, query string, topK int, minScore float64) ([]Match, error) {
	vectors, err := t.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	matches := t.index.Search(vectors[0], topK, minScore)
	t.logger.Debug("retrieval search",
		zap.String("query", query),
		zap.Int("top_k", topK),
		zap.Float64("min_score", minScore),
		zap.Int("matches", len(matches)),
	)
	return matches, nil
}

// Size returns the number of indexed documents.
func (t *Tool) Size() int {
	return t.index.Size()
}
