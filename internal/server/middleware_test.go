package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dgellow/authgate/internal/log"
)

func TestNoCacheMiddleware(t *testing.T) {
	tests := []struct {
		path    string
		noCache bool
	}{
		{path: "/api/auth", noCache: true},
		{path: "/api/auth/session", noCache: true},
		{path: "/api/auth/google/callback", noCache: true},
		{path: "/auth", noCache: true},
		{path: "/auth/error", noCache: true},
		{path: "/authors", noCache: false},
		{path: "/api/authz", noCache: false},
		{path: "/health", noCache: false},
		{path: "/", noCache: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var seenCacheControl string
			handler := NewNoCacheMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenCacheControl = w.Header().Get("Cache-Control")
				w.WriteHeader(http.StatusTeapot)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))

			assert.Equal(t, http.StatusTeapot, w.Code)
			if tt.noCache {
				assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate", seenCacheControl, "set before the handler runs")
				assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
				assert.Equal(t, "0", w.Header().Get("Expires"))
			} else {
				assert.Empty(t, w.Header().Get("Cache-Control"))
				assert.Empty(t, w.Header().Get("Pragma"))
				assert.Empty(t, w.Header().Get("Expires"))
			}
		})
	}
}

func TestLoggerMiddleware_OmitsAuthQueries(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	handler := NewLoggerMiddleware("http")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/auth/google/callback?code=secret-code&state=secret-state", nil))
	assert.Contains(t, buf.String(), "/api/auth/google/callback")
	assert.Contains(t, buf.String(), "302")
	assert.NotContains(t, buf.String(), "secret-code")
	assert.NotContains(t, buf.String(), "secret-state")

	buf.Reset()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/docs?page=2", nil))
	assert.Contains(t, buf.String(), "page=2")
}

func TestRecoverMiddleware(t *testing.T) {
	handler := NewRecoverMiddleware("test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
}

func TestChainMiddleware(t *testing.T) {
	var order []string
	mw := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := ChainMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("inner"), mw("outer"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
