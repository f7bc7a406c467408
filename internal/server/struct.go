package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/lawglance-go/internal/legal"
	"github.com/54b3r/lawglance-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// It must exceed ChatTimeout so a slow answer can still be delivered.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds one /api/chat or /api/message request end to end,
	// including retrieval and both generation attempts. Defaults to 3 minutes.
	ChatTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on the question endpoints.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// CORSOrigins lists the origins allowed to call the API from a browser.
	// "*" allows any origin. Empty disables CORS headers entirely.
	CORSOrigins []string
	// VectorStoreLoaded is reported by GET /api/health. When false the
	// health endpoint returns 503.
	VectorStoreLoaded bool
	// QueryLog records every answered query. Optional; failures are logged
	// and never surface to the client.
	QueryLog store.QueryLog
	// MetricsRegistry receives the server's Prometheus collectors.
	// Defaults to prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer serves GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// answerer is the interface the question handlers call.
// *legal.Pipeline satisfies it; tests inject a fake.
type answerer interface {
	// Answer runs the full retrieval-augmented pipeline for query.
	Answer(ctx context.Context, query string) (legal.Result, error)
	// Reply answers message without retrieval.
	Reply(ctx context.Context, message string) (legal.Reply, error)
}

// Server is the HTTP server that exposes the legal Q&A pipeline.
type Server struct {
	// answerer handles all questions. A nil answerer makes the question
	// endpoints report 503.
	answerer answerer
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// queryLog records answered queries. May be nil.
	queryLog store.QueryLog
	// metrics holds the Prometheus collectors for this server instance.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Query is the user's legal question.
	Query string `json:"query"`
}

// messageRequest is the JSON body for POST /api/message.
type messageRequest struct {
	// UserID is accepted for compatibility and only logged.
	UserID string `json:"user_id"`
	// Message is the user's question.
	Message string `json:"message"`
}

// healthResponse is the JSON body returned by GET /api/health.
type healthResponse struct {
	Status            string `json:"status"`
	Message           string `json:"message"`
	VectorStoreLoaded bool   `json:"vector_store_loaded"`
}

// detailResponse is the error body for /api/chat.
type detailResponse struct {
	Detail string `json:"detail"`
}

// errorResponse is the error body for /api/message.
type errorResponse struct {
	Error string `json:"error"`
}

// serviceInfo is the JSON body returned by GET /.
type serviceInfo struct {
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}
