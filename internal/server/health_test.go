package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	name  string
	err   error
	delay time.Duration
}

func (f *fakePinger) Name() string { return f.name }

func (f *fakePinger) Ping(ctx context.Context) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func newReadyTestServer(pingers ...Pinger) *Server {
	s := newTestServer(&fakeAnswerer{})
	s.pingers = pingers
	return s
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		loaded     bool
		wantCode   int
		wantStatus string
	}{
		{"vector store connected", true, http.StatusOK, "healthy"},
		{"vector store missing", false, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(&fakeAnswerer{})
			s.cfg.VectorStoreLoaded = tc.loaded
			w := httptest.NewRecorder()
			s.handleHealth(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			require.Equal(t, tc.wantCode, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body healthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tc.wantStatus, body.Status)
			assert.Equal(t, tc.loaded, body.VectorStoreLoaded)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestHandleReady(t *testing.T) {
	t.Parallel()

	refused := errors.New("connection refused")

	tests := []struct {
		name      string
		pingers   []Pinger
		wantCode  int
		wantReady bool
		wantOK    map[string]bool
	}{
		{
			name:      "no pingers",
			wantCode:  http.StatusOK,
			wantReady: true,
			wantOK:    map[string]bool{},
		},
		{
			name:      "all healthy",
			pingers:   []Pinger{&fakePinger{name: "llm"}, &fakePinger{name: "qdrant"}},
			wantCode:  http.StatusOK,
			wantReady: true,
			wantOK:    map[string]bool{"llm": true, "qdrant": true},
		},
		{
			name:      "vector store down",
			pingers:   []Pinger{&fakePinger{name: "llm"}, &fakePinger{name: "qdrant", err: refused}},
			wantCode:  http.StatusServiceUnavailable,
			wantReady: false,
			wantOK:    map[string]bool{"llm": true, "qdrant": false},
		},
		{
			name:      "everything down",
			pingers:   []Pinger{&fakePinger{name: "llm", err: errors.New("timeout")}, &fakePinger{name: "postgres", err: refused}},
			wantCode:  http.StatusServiceUnavailable,
			wantReady: false,
			wantOK:    map[string]bool{"llm": false, "postgres": false},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newReadyTestServer(tc.pingers...)
			w := httptest.NewRecorder()
			s.handleReady(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))

			require.Equal(t, tc.wantCode, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp readyResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tc.wantReady, resp.Ready)

			got := map[string]bool{}
			for _, c := range resp.Checks {
				got[c.Name] = c.OK
				if c.OK {
					assert.Empty(t, c.Error, c.Name)
				} else {
					assert.NotEmpty(t, c.Error, c.Name)
				}
			}
			assert.Equal(t, tc.wantOK, got)
		})
	}
}

func TestHandleReady_ProbesRunConcurrently(t *testing.T) {
	t.Parallel()

	s := newReadyTestServer(
		&fakePinger{name: "llm", delay: 150 * time.Millisecond},
		&fakePinger{name: "qdrant", delay: 150 * time.Millisecond},
		&fakePinger{name: "postgres", delay: 150 * time.Millisecond},
	)
	start := time.Now()
	w := httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}
