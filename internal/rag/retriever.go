package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/54b3r/lawglance-go/internal/logging"
)

// fallbackTopK applies when neither the caller nor the constructor supplies
// a positive result count.
const fallbackTopK = 10

// ErrBlankQuery is returned by Retrieve for queries that are empty after
// trimming whitespace. No embedding request is made for them.
var ErrBlankQuery = errors.New("rag: query is blank")

// DefaultRetriever answers similarity queries over the statute corpus. The
// query is embedded on every call; the cut-off on similarity score is
// applied by the store.
type DefaultRetriever struct {
	embedder    Embedder
	store       VectorStore
	defaultTopK int
}

// NewRetriever wires an Embedder to a VectorStore. defaultTopK is used when
// Retrieve receives a non-positive topK.
func NewRetriever(embedder Embedder, store VectorStore, defaultTopK int) (*DefaultRetriever, error) {
	switch {
	case embedder == nil:
		return nil, fmt.Errorf("rag: embedder must not be nil")
	case store == nil:
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = fallbackTopK
	}
	return &DefaultRetriever{embedder: embedder, store: store, defaultTopK: defaultTopK}, nil
}

// Retrieve returns at most topK passages scoring at or above
// scoreThreshold, best first. An empty slice means nothing relevant was
// found; embedding and search failures are always returned as errors.
func (r *DefaultRetriever) Retrieve(ctx context.Context, query string, topK int, scoreThreshold float32) ([]Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrBlankQuery
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}

	start := time.Now()
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}

	docs, err := r.store.Search(ctx, vecs[0], topK, scoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}
	if len(docs) > topK {
		docs = docs[:topK]
	}

	attrs := []any{
		"hits", len(docs),
		"top_k", topK,
		"threshold", scoreThreshold,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if len(docs) > 0 {
		attrs = append(attrs, "top_score", docs[0].Score)
	}
	logging.FromContext(ctx).Debug("rag: retrieval complete", attrs...)

	return docs, nil
}
