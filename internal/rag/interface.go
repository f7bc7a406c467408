// Package rag holds the retrieval side of lawglance: the passage type, the
// embedding and vector-store contracts, and the Qdrant and pgvector stores
// that satisfy them. The legal pipeline depends only on Retriever.
package rag

import (
	"context"
)

// Document is one chunk of a statute, either on its way into a store or
// coming back from a search.
type Document struct {
	// ID is a UUID. Ingestion derives it from source, page and chunk index
	// so re-ingesting overwrites in place.
	ID      string
	Content string
	// Source is the file name or URL the chunk was read from.
	Source string
	// Metadata carries title, section and page. Non-string payload values
	// are rendered in decimal.
	Metadata map[string]string
	// Score is the cosine similarity from a search; zero on writes.
	Score float32
}

// VectorStore persists chunk embeddings and answers nearest-neighbour
// queries. Implementations are safe for concurrent use.
type VectorStore interface {
	// Upsert writes docs; embeddings[i] is the vector for docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns at most topK documents scoring at least
	// scoreThreshold, best first. A threshold of zero or below disables the
	// cut-off.
	Search(ctx context.Context, queryEmbedding []float32, topK int, scoreThreshold float32) ([]Document, error)

	// DeleteSource removes every chunk read from source. Deleting an unknown
	// source is not an error.
	DeleteSource(ctx context.Context, source string) error

	Close() error
}

// Embedder turns texts into dense vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever fetches passages relevant to a question. An empty result means
// nothing cleared the threshold and is not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, scoreThreshold float32) ([]Document, error)
}
