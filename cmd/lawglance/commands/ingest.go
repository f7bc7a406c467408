package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/lawglance-go/internal/embedder"
	"github.com/54b3r/lawglance-go/internal/ingestion"
	"github.com/54b3r/lawglance-go/internal/logging"
)

// NewIngestCmd constructs the `lawglance ingest` command, which loads statute
// documents into the vector store.
func NewIngestCmd() *cobra.Command {
	var title string
	var dir string
	var chunkSize int
	var chunkOverlap int

	cmd := &cobra.Command{
		Use:   "ingest [file or URL...]",
		Short: "Ingest statute documents into the vector store",
		Long: `Load PDF, text or markdown files and web pages, split them into
overlapping chunks, embed them and upsert them into the vector store.

Each chunk carries source, title, page and section metadata. The title is
inferred from the file name for known statutes (constitution.pdf becomes
"Constitution of India", bns.pdf "Bharatiya Nyaya Sanhita, 2023") unless
--title is given. Re-ingesting a source overwrites its earlier chunks.

Relevant environment variables:
  VECTOR_STORE          qdrant (default) or postgres
  QDRANT_HOST/PORT      Qdrant gRPC endpoint (default localhost:6334)
  QDRANT_COLLECTION     Collection name (default: lawglance)
  POSTGRES_DSN          Postgres connection string when VECTOR_STORE=postgres
  EMBEDDING_PROVIDER    gemini, ollama, openai or azure (default: MODEL_PROVIDER)

Examples:
  lawglance ingest data/constitution.pdf data/bns.pdf
  lawglance ingest --dir data/
  lawglance ingest --title "Right to Information Act, 2005" https://rti.gov.in/rti-act.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			locations := append([]string(nil), args...)
			if dir != "" {
				found, err := corpusFiles(dir)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				locations = append(locations, found...)
			}
			if len(locations) == 0 {
				return fmt.Errorf("ingest: at least one file, URL or --dir is required")
			}
			if title != "" && len(locations) > 1 {
				return fmt.Errorf("ingest: --title applies to a single source, got %d", len(locations))
			}

			if err := embedder.ValidateForRAG(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("provider", embedder.Backend()))

			vb, err := openVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer vb.store.Close()

			pipeline, err := ingestion.NewPipeline(emb, vb.store, &ingestion.Config{
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			sources := make([]ingestion.Source, 0, len(locations))
			for _, loc := range locations {
				src := ingestion.Source{Location: loc, Title: title}
				if src.Title == "" {
					src.Title = ingestion.InferTitle(loc)
				}
				log.Info("source", slog.String("location", loc), slog.String("title", src.Title))
				sources = append(sources, src)
			}

			stats, err := pipeline.Ingest(ctx, sources, func(msg string) { log.Info(msg) })
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			log.Info("ingestion complete",
				slog.Int("sources", stats.Sources),
				slog.Int("pages", stats.Pages),
				slog.Int("chunks", stats.Chunks),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d sources, %d pages, %d chunks into %s\n",
				stats.Sources, stats.Pages, stats.Chunks, vb.name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (single source only; default: inferred)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Ingest every .pdf, .txt and .md file under this directory")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Characters per chunk (default 1000)")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "Characters shared by consecutive chunks (default 150)")

	return cmd
}

// corpusFiles returns the supported documents under dir in lexical order.
func corpusFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".txt", ".md":
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no .pdf, .txt or .md files under %s", dir)
	}
	return out, nil
}
