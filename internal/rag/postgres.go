package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds connection parameters for a Postgres database with the
// pgvector extension installed.
type PostgresConfig struct {
	// DSN is the libpq-style connection string or postgres:// URL.
	DSN string

	// Table is the passage table name (default: legal_passages).
	Table string

	// VectorSize is the dimensionality of the embedding column.
	VectorSize int
}

// tableNamePattern restricts table names to plain SQL identifiers because the
// name is interpolated into DDL and queries.
var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresStore implements VectorStore on Postgres + pgvector. Similarity is
// 1 - cosine distance so scores are comparable with QdrantStore.
type PostgresStore struct {
	// pool is the shared pgx connection pool.
	pool *pgxpool.Pool

	// table is the validated passage table name.
	table string
}

// NewPostgresStore connects to Postgres, verifies connectivity, and creates
// the pgvector extension, passage table, and HNSW index if missing.
func NewPostgresStore(ctx context.Context, cfg *PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	if cfg.Table == "" {
		cfg.Table = "legal_passages"
	}
	if !tableNamePattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("postgres: invalid table name %q", cfg.Table)
	}
	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("postgres: vector size must be positive, got %d", cfg.VectorSize)
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, table: cfg.Table}
	if err := s.migrate(ctx, cfg.VectorSize); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *PostgresStore) migrate(ctx context.Context, dims int) error {
	ddl := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id        TEXT PRIMARY KEY,
    content   TEXT  NOT NULL,
    source    TEXT  NOT NULL DEFAULT '',
    metadata  JSONB NOT NULL DEFAULT '{}'::jsonb,
    embedding vector(%d) NOT NULL
)`, s.table, dims),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (source)`, s.table, s.table),
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

// Upsert stores or updates a batch of documents in a single round trip.
func (s *PostgresStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("postgres: upsert: %d documents but %d embeddings", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}

	q := fmt.Sprintf(`
INSERT INTO %s (id, content, source, metadata, embedding)
VALUES ($1, $2, $3, $4, $5::vector)
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content,
    source = EXCLUDED.source,
    metadata = EXCLUDED.metadata,
    embedding = EXCLUDED.embedding`, s.table)

	batch := &pgx.Batch{}
	for i, doc := range docs {
		meta := doc.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("postgres: marshal metadata for %s: %w", doc.ID, err)
		}
		batch.Queue(q, doc.ID, doc.Content, doc.Source, metaJSON, vectorLiteral(embeddings[i]))
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: upsert failed: %w", err)
	}
	return nil
}

// Search returns the topK passages by cosine similarity, excluding those
// below scoreThreshold. A threshold of zero or below disables the cut-off.
func (s *PostgresStore) Search(ctx context.Context, queryEmbedding []float32, topK int, scoreThreshold float32) ([]Document, error) {
	if topK <= 0 {
		return []Document{}, nil
	}
	q, args := searchQuery(s.table, vectorLiteral(queryEmbedding), topK, scoreThreshold)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: search failed: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			doc      Document
			metaJSON []byte
			score    float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Source, &metaJSON, &score); err != nil {
			return nil, fmt.Errorf("postgres: search scan: %w", err)
		}
		doc.Score = float32(score)
		if doc.Metadata, err = decodeMetadata(metaJSON); err != nil {
			return nil, fmt.Errorf("postgres: decode metadata for %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: search rows: %w", err)
	}
	return docs, nil
}

// searchQuery builds the similarity query and its arguments. The score
// predicate is only added for a positive threshold so a disabled cut-off
// also returns passages with negative similarity, as Qdrant does.
func searchQuery(table, vector string, topK int, scoreThreshold float32) (string, []any) {
	args := []any{vector}
	where := ""
	if scoreThreshold > 0 {
		args = append(args, float64(scoreThreshold))
		where = "\nWHERE  1 - (embedding <=> $1::vector) >= $2"
	}
	args = append(args, topK)
	q := fmt.Sprintf(`
SELECT id, content, source, metadata, 1 - (embedding <=> $1::vector) AS score
FROM   %s%s
ORDER  BY embedding <=> $1::vector
LIMIT  $%d`, table, where, len(args))
	return q, args
}

// decodeMetadata reads a JSONB metadata object. Rows written by other tools
// may hold numbers or booleans (a numeric page, say); scalars are rendered
// as strings the way QdrantStore renders payload values, and nested values
// are dropped.
func decodeMetadata(raw []byte) (map[string]string, error) {
	meta := map[string]string{}
	if len(raw) == 0 {
		return meta, nil
	}
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		switch v := v.(type) {
		case string:
			meta[k] = v
		case json.Number:
			meta[k] = v.String()
		case bool:
			meta[k] = strconv.FormatBool(v)
		}
	}
	return meta, nil
}

// DeleteSource removes every passage read from source.
func (s *PostgresStore) DeleteSource(ctx context.Context, source string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE source = $1`, s.table)
	if _, err := s.pool.Exec(ctx, q, source); err != nil {
		return fmt.Errorf("postgres: delete source %q: %w", source, err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// vectorLiteral renders v in pgvector's text input format, e.g. "[0.1,0.2]".
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
