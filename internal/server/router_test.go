package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songsim/internal/shared"
)

func TestBasicRouter(t *testing.T) {
	t.Run("middleware runs in order added", func(t *testing.T) {
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(tag("first"), tag("second"))
		router.HandleFunc(http.MethodGet, "/x", func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("one handler per method", func(t *testing.T) {
		router := NewBasicRouter()
		router.HandleFunc(http.MethodGet, "/item", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "get") })
		router.HandleFunc(http.MethodDelete, "/item", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "delete") })

		tests := []struct {
			method string
			status int
			body   string
		}{
			{http.MethodGet, http.StatusOK, "get"},
			{http.MethodDelete, http.StatusOK, "delete"},
			{http.MethodPost, http.StatusMethodNotAllowed, ""},
		}

		for _, tt := range tests {
			t.Run(tt.method, func(t *testing.T) {
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, httptest.NewRequest(tt.method, "/item", nil))
				if rec.Code != tt.status {
					t.Errorf("expected %d, got %d", tt.status, rec.Code)
				}
				if tt.body != "" && rec.Body.String() != tt.body {
					t.Errorf("expected body %q, got %q", tt.body, rec.Body.String())
				}
			})
		}
	})
}

func TestMiddleware(t *testing.T) {
	logger := log.New(io.Discard)

	t.Run("RequestID reuses incoming id", func(t *testing.T) {
		var seen string
		h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFrom(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if seen != "abc" || rec.Header().Get(RequestIDHeader) != "abc" {
			t.Errorf("expected id abc, got context=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("RequestIDFrom without middleware", func(t *testing.T) {
		if id := RequestIDFrom(context.Background()); id != "" {
			t.Errorf("expected empty id, got %q", id)
		}
	})

	t.Run("Recover writes a 500", func(t *testing.T) {
		h := Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"error"`) {
			t.Errorf("expected JSON error body, got %s", rec.Body.String())
		}
	})

	t.Run("Logging keeps the status", func(t *testing.T) {
		h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusTeapot {
			t.Errorf("expected 418, got %d", rec.Code)
		}
	})

	t.Run("RateLimit per client", func(t *testing.T) {
		h := RateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		codes := []int{}
		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}

		if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
			t.Errorf("expected 200,200,429 got %v", codes)
		}
	})

	t.Run("RateLimit disabled", func(t *testing.T) {
		h := RateLimit(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		for range 5 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
		}
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"missing argument", shared.ErrMissingArgument, http.StatusBadRequest},
		{"invalid input", shared.ErrInvalidInput, http.StatusBadRequest},
		{"not authenticated", shared.ErrNotAuthenticated, http.StatusUnauthorized},
		{"unauthorized", fmt.Errorf("%w: bad token", shared.ErrUnauthorized), http.StatusUnauthorized},
		{"seed not found", fmt.Errorf("%w: %w", shared.ErrSeedNotFound, shared.ErrNotFound), http.StatusNotFound},
		{"playlist not found", shared.ErrPlaylistNotFound, http.StatusNotFound},
		{"rate limited", shared.ErrRateLimited, http.StatusTooManyRequests},
		{"unavailable", shared.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"timeout", shared.ErrTimeout, http.StatusGatewayTimeout},
		{"missing credentials", shared.ErrMissingCredentials, http.StatusInternalServerError},
		{
			"rejected app credentials behind a seed lookup",
			fmt.Errorf("failed to fetch seed track x: %w", shared.ErrInvalidCredentials),
			http.StatusInternalServerError,
		},
		{
			"all strategies failed wraps its cause",
			fmt.Errorf("%w: %w", shared.ErrAllStrategiesFailed, shared.ErrRateLimited),
			http.StatusInternalServerError,
		},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := StatusFor(tt.err)
			if status != tt.status {
				t.Errorf("expected %d, got %d", tt.status, status)
			}
			if message == "" {
				t.Error("expected a message")
			}
		})
	}

	t.Run("rejected credentials message", func(t *testing.T) {
		_, message := StatusFor(fmt.Errorf("%w: invalid_client", shared.ErrInvalidCredentials))
		if message != msgCredentialsRejected {
			t.Errorf("unexpected message %q", message)
		}
	})

	t.Run("credentials message", func(t *testing.T) {
		_, message := StatusFor(shared.ErrMissingCredentials)
		if message != "Spotify API credentials not configured" {
			t.Errorf("unexpected message %q", message)
		}
	})
}
