// Package server implements the HTTP server that exposes the legal Q&A
// pipeline via a small JSON API. The server is started by the
// `lawglance serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/lawglance-go/internal/legal"
	"github.com/54b3r/lawglance-go/internal/logging"
	"github.com/54b3r/lawglance-go/internal/safety"
	"github.com/54b3r/lawglance-go/internal/store"
	"github.com/54b3r/lawglance-go/internal/version"
)

// Client-facing messages. Internal error detail is logged, never returned.
const (
	msgProcessFailed = "An error occurred while processing your query. Please try again."
	msgEmptyMessage  = "Empty message. Send JSON {\"message\": \"...\"} or plain text body."
	msgInvalidJSON   = "Invalid JSON. Send {\"message\": \"...\"}."
)

// isNil reports whether a is nil or an interface holding a nil pointer.
func isNil(a answerer) bool {
	if a == nil {
		return true
	}
	v := reflect.ValueOf(a)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// maxBodyBytes caps request bodies. Queries are at most a few KB.
const maxBodyBytes = 64 << 10

// New constructs a Server from the provided answerer and config. The
// server only exists once the pipeline is built, so the handlers never see
// a missing answerer.
func New(a answerer, cfg *Config) (*Server, error) {
	if isNil(a) {
		return nil, fmt.Errorf("server: answerer must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.ChatTimeout == 0 {
		cfg.ChatTimeout = 3 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.ChatTimeout + 30*time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	s := &Server{
		answerer: a,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		queryLog: cfg.QueryLog,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}

	if cfg.APIKey == "" {
		log.Warn("server: LAWGLANCE_API_KEY not set, question endpoints are unauthenticated")
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stop

	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(cfg.APIKey, rl.middleware(h))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", s.instrument("root", http.HandlerFunc(s.handleRoot)))
	mux.Handle("POST /api/chat", s.instrument("chat", protect(s.handleChat)))
	mux.Handle("POST /api/message", s.instrument("message", protect(s.handleMessage)))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	handler := corsMiddleware(cfg.CORSOrigins, mux)
	handler = requestLogger(log, handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("lawglance server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.log.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleRoot handles GET / with static service information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, serviceInfo{
		Service:     "LawGlance Legal AI Backend",
		Version:     version.Version,
		Description: "Legal awareness answers grounded in Indian statutes, with citations",
		Endpoints: map[string]string{
			"POST /api/chat":    "Answer a legal query with citations",
			"POST /api/message": "Direct reply without retrieval (JSON or plain text)",
			"GET /api/health":   "Liveness and vector store status",
			"GET /api/ready":    "Dependency readiness probes",
			"GET /metrics":      "Prometheus metrics",
		},
	})
}

// handleChat handles POST /api/chat. Validation failures map to 400, pipeline
// failures to a generic 500, and a missing pipeline to 503.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.observeChat("invalid", start)
		writeJSON(r.Context(), w, http.StatusBadRequest, detailResponse{Detail: "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.chatTimeout())
	defer cancel()

	s.metrics.chatInFlight.Inc()
	res, err := s.answerer.Answer(ctx, req.Query)
	s.metrics.chatInFlight.Dec()

	if err != nil {
		if legal.IsValidationError(err) {
			s.observeChat("invalid", start)
			writeJSON(r.Context(), w, http.StatusBadRequest, detailResponse{Detail: validationMessage(err)})
			return
		}
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		s.observeChat(outcome, start)
		log.Error("chat failed", slog.String("outcome", outcome), slog.Any("error", err))
		s.record(r.Context(), store.Entry{
			Channel:  "chat",
			Query:    strings.TrimSpace(req.Query),
			Safety:   string(safety.LabelOK),
			Path:     "error",
			Duration: time.Since(start),
		})
		writeJSON(r.Context(), w, http.StatusInternalServerError, detailResponse{Detail: msgProcessFailed})
		return
	}

	s.observeChat("ok", start)
	s.metrics.answersTotal.WithLabelValues(string(res.Path)).Inc()
	if res.Safety.Blocked() {
		s.metrics.safetyBlocksTotal.WithLabelValues(string(res.Safety)).Inc()
	}
	s.record(r.Context(), store.Entry{
		Channel:    "chat",
		Query:      strings.TrimSpace(req.Query),
		Safety:     string(res.Safety),
		Path:       string(res.Path),
		HasContext: res.HasContext,
		Citations:  len(res.Citations),
		Duration:   time.Since(start),
	})
	writeJSON(r.Context(), w, http.StatusOK, res)
}

// handleMessage handles POST /api/message. It accepts a JSON body
// {"user_id","message"} or a plain-text body. A plain-text body that looks
// like a JSON object is parsed as JSON first.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logging.FromContext(r.Context())

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.observeMessage("invalid")
		writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: "could not read request body"})
		return
	}

	req, ok := parseMessage(r.Header.Get("Content-Type"), raw)
	if !ok {
		s.observeMessage("invalid")
		writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: msgInvalidJSON})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.observeMessage("invalid")
		writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: msgEmptyMessage})
		return
	}
	if req.UserID != "" {
		log = log.With(slog.String("user_id", req.UserID))
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.chatTimeout())
	defer cancel()

	rep, err := s.answerer.Reply(logging.WithLogger(ctx, log), req.Message)
	if err != nil {
		if legal.IsValidationError(err) {
			s.observeMessage("invalid")
			writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
			return
		}
		s.observeMessage("error")
		log.Error("message failed", slog.Any("error", err))
		writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Error: msgProcessFailed})
		return
	}

	s.observeMessage("ok")
	path := "direct"
	if rep.Safety.Blocked() {
		s.metrics.safetyBlocksTotal.WithLabelValues(string(rep.Safety)).Inc()
		path = string(legal.PathSafetyBlocked)
	}
	s.record(r.Context(), store.Entry{
		Channel:  "message",
		Query:    strings.TrimSpace(req.Message),
		Safety:   string(rep.Safety),
		Path:     path,
		Duration: time.Since(start),
	})
	writeJSON(r.Context(), w, http.StatusOK, rep)
}

// parseMessage extracts a messageRequest from a /api/message body. It
// returns false only when the client declared JSON and the body is invalid.
func parseMessage(contentType string, raw []byte) (messageRequest, bool) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" {
		var req messageRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return messageRequest{}, false
		}
		return req, true
	}

	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		var req messageRequest
		if err := json.Unmarshal([]byte(text), &req); err == nil {
			return req, true
		}
	}
	return messageRequest{Message: text}, true
}

// validationMessage renders a validation error without the package prefix.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), "legal: ")
}

// record writes e to the query log. Failures are logged and swallowed.
func (s *Server) record(ctx context.Context, e store.Entry) {
	if s.queryLog == nil {
		return
	}
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.queryLog.Record(recCtx, e); err != nil {
		logging.FromContext(ctx).Warn("query log write failed", slog.Any("error", err))
	}
}

func (s *Server) chatTimeout() time.Duration {
	if s.cfg == nil || s.cfg.ChatTimeout == 0 {
		return 3 * time.Minute
	}
	return s.cfg.ChatTimeout
}

func (s *Server) observeChat(outcome string, start time.Time) {
	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func (s *Server) observeMessage(outcome string) {
	s.metrics.messageRequestsTotal.WithLabelValues(outcome).Inc()
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(ctx).Error("response encode error", slog.Any("error", err))
	}
}
