package rag

import (
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/epigenicai/genagent/types"
)

// Document is one entry of the retrieval index: a passage, its embedding,
// and source metadata.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Embedding []float64        `json:"embedding,omitempty"`
}

// Match is one search hit, ordered by descending score.
type Match struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Index is an in-memory vector index with cosine-similarity search.
// It is append-only: documents are never removed within a job's lifetime.
// All methods are safe for concurrent use; a reader never observes a
// partially-written entry because entries are committed under the write lock.
type Index struct {
	documents []Document
	byID      map[string]struct{}
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewIndex creates an empty index.
func NewIndex(logger *zap.Logger) *Index {
	return &Index{
		byID:   make(map[string]struct{}),
		logger: logger.With(zap.String("component", "rag_index")),
	}
}

// Add appends a document. Adding an ID that already exists is a no-op so
// that agent retries cannot double-register passages.
func (idx *Index) Add(doc Document) error {
	if doc.ID == "" {
		return types.NewError(types.ErrInvalidInput, "document missing id")
	}
	if len(doc.Embedding) == 0 {
		return types.Errorf(types.ErrInvalidInput, "document %s has no embedding", doc.ID)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.byID[doc.ID]; exists {
		idx.logger.Debug("document already indexed", zap.String("id", doc.ID))
		return nil
	}
	idx.documents = append(idx.documents, doc)
	idx.byID[doc.ID] = struct{}{}
	return nil
}

// Search returns at most topK documents with cosine similarity >= minScore,
// sorted by descending score. An empty result is valid, not an error.
func (idx *Index) Search(query []float64, topK int, minScore float64) []Match {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if topK <= 0 || len(idx.documents) == 0 {
		return []Match{}
	}

	matches := make([]Match, 0, len(idx.documents))
	for _, doc := range idx.documents {
		score := cosineSimilarity(query, doc.Embedding)
		if score < minScore {
			continue
		}
		matches = append(matches, Match{Document: doc, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches
}

// Size returns the number of indexed documents.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.documents)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
