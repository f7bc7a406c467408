package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions HTTP metrics by logical endpoint name rather than
// the raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// chatRequestsTotal counts completed /api/chat requests by outcome:
	// "ok", "invalid", "timeout" or "error".
	chatRequestsTotal *prometheus.CounterVec

	// chatDurationSeconds records the wall-clock duration of each /api/chat request.
	chatDurationSeconds *prometheus.HistogramVec

	// chatInFlight is the number of pipeline runs currently executing.
	chatInFlight prometheus.Gauge

	// answersTotal counts successful answers by state machine path.
	answersTotal *prometheus.CounterVec

	// safetyBlocksTotal counts queries answered with a canned safety response.
	safetyBlocksTotal *prometheus.CounterVec

	// messageRequestsTotal counts /api/message requests by outcome.
	messageRequestsTotal *prometheus.CounterVec

	// httpRequestsTotal counts all instrumented HTTP requests.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all instrumented HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lawglance",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of /api/chat requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		chatDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lawglance",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/chat requests.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		chatInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "lawglance",
			Subsystem: "chat",
			Name:      "in_flight",
			Help:      "Number of pipeline runs currently executing.",
		}),

		answersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lawglance",
			Subsystem: "pipeline",
			Name:      "answers_total",
			Help:      "Answers produced, partitioned by state machine path.",
		}, []string{"path"}),

		safetyBlocksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lawglance",
			Subsystem: "safety",
			Name:      "blocks_total",
			Help:      "Queries answered with a canned safety response, partitioned by label.",
		}, []string{"label"}),

		messageRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lawglance",
			Subsystem: "message",
			Name:      "requests_total",
			Help:      "Total number of /api/message requests, partitioned by outcome.",
		}, []string{"outcome"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lawglance",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lawglance",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument wraps next with the per-handler HTTP request counter and
// latency histogram.
func (s *Server) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)
		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}
