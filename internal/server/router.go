package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgellow/authgate/internal/apitoken"
	jsonwriter "github.com/dgellow/authgate/internal/json"
)

// NewRouter mounts every authgate route. The no-cache middleware runs first so
// its headers are present on every auth response, including errors.
func NewRouter(h *AuthHandlers, verifier *apitoken.Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(
		NewNoCacheMiddleware(),
		NewLoggerMiddleware("http"),
		NewRecoverMiddleware("http"),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonwriter.WriteNotFound(w, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonwriter.WriteMethodNotAllowed(w, "Method not allowed")
	})

	r.Method(http.MethodGet, "/health", NewHealthHandler())
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	r.Get(ErrorPagePath, h.ErrorPageHandler)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/session", h.SessionHandler)
		r.Post("/signout", h.SignoutHandler)
		r.Get("/signout", h.SignoutHandler)
		r.Get("/token", h.TokenHandler)
		r.With(NewBearerMiddleware(verifier, h.metrics)).Get("/me", h.MeHandler)

		r.Get("/{provider}", h.InitiateHandler)
		r.Get("/{provider}/callback", h.CallbackHandler)
	})

	return r
}
