// Package ingestion loads the legal corpus into the vector store. It reads
// statute PDFs page by page (plain-text files and web pages are also
// accepted), splits each page into overlapping chunks, tags every chunk with
// source, title, page and section metadata, embeds the chunks in batches and
// upserts them. It is invoked by the `lawglance ingest` CLI command.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/54b3r/lawglance-go/internal/legal"
	"github.com/54b3r/lawglance-go/internal/logging"
	"github.com/54b3r/lawglance-go/internal/rag"
)

// chunkNamespace scopes the deterministic UUIDv5 chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://lawglance.com/chunks"))

// Source describes one corpus document to ingest.
type Source struct {
	// Location is a local file path (.pdf, .txt, .md) or an HTTP(S) URL.
	Location string

	// Title overrides the inferred statute title when non-empty.
	Title string
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	// Defaults to 150 if zero.
	ChunkOverlap int

	// BatchSize is the number of chunks embedded and upserted per call.
	// Defaults to 64 if zero.
	BatchSize int

	// HTTPTimeout is the timeout for each URL fetch. Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// Pipeline orchestrates the load → chunk → embed → replace flow.
type Pipeline struct {
	// embedder converts chunk text into dense vectors.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// loader reads pages from files and URLs.
	loader *loader

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// Stats summarises an ingestion run.
type Stats struct {
	Sources int
	Pages   int
	Chunks  int
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 150
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 10
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "lawglance-go/1.0 (legal corpus ingestion)"
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		loader:   newLoader(c.HTTPTimeout, c.UserAgent),
		cfg:      &c,
	}, nil
}

// Ingest loads, chunks, embeds and stores all sources sequentially and
// returns the first error encountered. Progress is reported via the
// optional progress callback.
func (p *Pipeline) Ingest(ctx context.Context, sources []Source, progress func(msg string)) (Stats, error) {
	if progress == nil {
		progress = func(string) {}
	}
	log := logging.FromContext(ctx)
	var stats Stats

	for _, src := range sources {
		progress(fmt.Sprintf("loading %s", src.Location))

		pages, err := p.loader.load(ctx, src.Location)
		if err != nil {
			return stats, fmt.Errorf("ingestion: load failed for %s: %w", src.Location, err)
		}

		title := src.Title
		if title == "" {
			title = InferTitle(src.Location)
		}

		docs := p.documents(src.Location, title, pages)
		progress(fmt.Sprintf("chunked %s (%s) into %d chunks across %d pages", src.Location, title, len(docs), len(pages)))

		// Embedding is the step that fails on quota or network errors, so
		// the whole source is embedded before its old chunks are removed.
		// Chunk IDs are deterministic, but a shorter revision of a statute
		// would leave its old tail chunks behind without the delete.
		embeddings, err := p.embed(ctx, docs)
		if err != nil {
			return stats, fmt.Errorf("ingestion: %s: %w", src.Location, err)
		}
		if err := p.store.DeleteSource(ctx, src.Location); err != nil {
			return stats, fmt.Errorf("ingestion: clearing previous chunks of %s: %w", src.Location, err)
		}
		for start := 0; start < len(docs); start += p.cfg.BatchSize {
			end := min(start+p.cfg.BatchSize, len(docs))
			if err := p.store.Upsert(ctx, docs[start:end], embeddings[start:end]); err != nil {
				return stats, fmt.Errorf("ingestion: %s: upsert failed: %w", src.Location, err)
			}
		}

		stats.Sources++
		stats.Pages += len(pages)
		stats.Chunks += len(docs)
		log.Info("source ingested",
			slog.String("source", src.Location),
			slog.String("title", title),
			slog.Int("pages", len(pages)),
			slog.Int("chunks", len(docs)),
		)
		progress(fmt.Sprintf("ingested %d chunks from %s", len(docs), src.Location))
	}

	return stats, nil
}

// documents turns the pages of one source into tagged chunk documents.
func (p *Pipeline) documents(source, title string, pages []page) []rag.Document {
	var docs []rag.Document
	for _, pg := range pages {
		for i, chunk := range p.chunk(pg.text) {
			meta := map[string]string{
				legal.MetaTitle: title,
				"chunk_index":   strconv.Itoa(i),
			}
			if pg.number > 0 {
				meta[legal.MetaPage] = strconv.Itoa(pg.number)
			}
			if s := DetectSection(chunk); s != "" {
				meta[legal.MetaSection] = s
			}
			docs = append(docs, rag.Document{
				ID:       chunkID(source, pg.number, i),
				Content:  chunk,
				Source:   source,
				Metadata: meta,
			})
		}
	}
	return docs
}

// embed vectorises docs in batches of cfg.BatchSize and returns one
// embedding per document, in order.
func (p *Pipeline) embed(ctx context.Context, docs []rag.Document) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(docs))
	for start := 0; start < len(docs); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(docs))
		texts := make([]string, 0, end-start)
		for _, d := range docs[start:end] {
			texts = append(texts, d.Content)
		}
		vecs, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding failed: %w", err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embedding failed: got %d vectors for %d chunks", len(vecs), len(texts))
		}
		embeddings = append(embeddings, vecs...)
	}
	return embeddings, nil
}

// chunk splits text into chunks of at most cfg.ChunkSize runes with
// cfg.ChunkOverlap runes shared between neighbours. A chunk boundary is
// pulled back to the last whitespace in the final fifth of the window so
// words are not split.
func (p *Pipeline) chunk(text string) []string {
	runes := []rune(normaliseSpace(text))
	if len(runes) == 0 {
		return nil
	}

	size := p.cfg.ChunkSize
	overlap := p.cfg.ChunkOverlap
	var chunks []string

	for start := 0; start < len(runes); {
		end := min(start+size, len(runes))
		if end < len(runes) {
			for j := end; j > end-size/5 && j > start; j-- {
				if unicode.IsSpace(runes[j-1]) {
					end = j
					break
				}
			}
		}
		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// normaliseSpace collapses runs of spaces and tabs and trims the text,
// keeping single newlines so section headings stay on their own line.
func normaliseSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// chunkID generates a deterministic UUIDv5 for a chunk from its source,
// page and index. Qdrant requires point IDs to be UUIDs or integers.
func chunkID(source string, pageNum, index int) string {
	return uuid.NewSHA1(chunkNamespace, fmt.Appendf(nil, "%s#p%d#%d", source, pageNum, index)).String()
}
