package legal

import (
	"context"
	"fmt"
	"maps"

	"github.com/54b3r/lawglance-go/internal/rag"
)

// Retrieval defaults. Scores are cosine similarities in [0,1].
const (
	DefaultTopK           = 10
	DefaultScoreThreshold = 0.3
)

// ContextRetriever selects retrieval parameters and normalises search results
// into Passages. Thresholding is done by the underlying vector store.
type ContextRetriever struct {
	// retriever is the embedding + vector search capability.
	retriever rag.Retriever
	// topK is the maximum number of passages requested.
	topK int
	// scoreThreshold is the minimum similarity for a passage to be returned.
	scoreThreshold float32
}

// NewContextRetriever wraps r. Non-positive topK and negative scoreThreshold
// fall back to DefaultTopK and DefaultScoreThreshold.
func NewContextRetriever(r rag.Retriever, topK int, scoreThreshold float32) (*ContextRetriever, error) {
	if r == nil {
		return nil, fmt.Errorf("legal: retriever must not be nil")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if scoreThreshold < 0 {
		scoreThreshold = DefaultScoreThreshold
	}
	return &ContextRetriever{retriever: r, topK: topK, scoreThreshold: scoreThreshold}, nil
}

// Retrieve returns the passages relevant to query in retrieval order. An
// empty slice means nothing cleared the threshold; search failures are
// returned as errors.
func (c *ContextRetriever) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	docs, err := c.retriever.Retrieve(ctx, query, c.topK, c.scoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("legal: retrieve context: %w", err)
	}

	passages := make([]Passage, 0, len(docs))
	for _, d := range docs {
		meta := make(map[string]string, len(d.Metadata)+1)
		maps.Copy(meta, d.Metadata)
		if d.Source != "" {
			meta[MetaSource] = d.Source
		}
		passages = append(passages, Passage{Text: d.Content, Metadata: meta})
	}
	return passages, nil
}
