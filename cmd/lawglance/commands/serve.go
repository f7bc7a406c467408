package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/lawglance-go/internal/logging"
	"github.com/54b3r/lawglance-go/internal/server"
	"github.com/54b3r/lawglance-go/internal/store"
	"github.com/54b3r/lawglance-go/internal/tracing"
)

// NewServeCmd constructs the `lawglance serve` command, which starts the
// HTTP API server.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the LawGlance HTTP API server",
		Long: `Start the LawGlance HTTP API server.

Endpoints:
  POST /api/chat      {"query": "..."} -> answer with citations
  POST /api/message   JSON {"message": "..."} or plain text -> direct reply
  GET  /api/health    liveness and vector store status
  GET  /api/ready     LLM and vector store readiness probes
  GET  /metrics       Prometheus metrics

Set LAWGLANCE_API_KEY to require a Bearer token on the question endpoints
and CORS_ORIGINS to allow browser clients.

Examples:
  lawglance serve
  lawglance serve --port 9090
  VECTOR_STORE=postgres POSTGRES_DSN=postgres://... lawglance serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Flags beat LAWGLANCE_HOST/LAWGLANCE_PORT, which beat the flag defaults.
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("LAWGLANCE_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("LAWGLANCE_PORT", port)
			}

			flush, _ := tracing.Setup(tracing.ConfigFromEnv(), log)
			defer flush()

			deps, err := buildPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer deps.Close()

			var queryLog store.QueryLog
			if ql := openQueryLog(log); ql != nil {
				queryLog = ql
				defer func() { _ = ql.Close() }()
			}

			srv, err := server.New(deps.pipeline, &server.Config{
				Host:              host,
				Port:              port,
				Logger:            log,
				Pingers:           buildPingers(deps),
				APIKey:            os.Getenv("LAWGLANCE_API_KEY"),
				CORSOrigins:       server.ParseOrigins(os.Getenv("CORS_ORIGINS")),
				VectorStoreLoaded: deps.vector != nil,
				QueryLog:          queryLog,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			log.Info("serve starting",
				slog.String("provider", string(deps.providerCfg.Backend)),
				slog.String("vector_store", deps.vector.name),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
