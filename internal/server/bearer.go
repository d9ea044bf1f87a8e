package server

import (
	"net/http"
	"strings"

	"github.com/dgellow/authgate/internal/apitoken"
	jsonwriter "github.com/dgellow/authgate/internal/json"
	"github.com/dgellow/authgate/internal/log"
	"github.com/dgellow/authgate/internal/session"
)

// NewBearerMiddleware accepts requests carrying a valid assertion token in the
// Authorization header and puts its user in the request context.
func NewBearerMiddleware(verifier *apitoken.Verifier, metrics *Metrics) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				metrics.tokenVerified("missing")
				w.Header().Set("WWW-Authenticate", `Bearer`)
				jsonwriter.WriteUnauthorized(w, "Not authenticated")
				return
			}

			user, err := verifier.Parse(token)
			if err != nil {
				reason := apitoken.Reason(err)
				metrics.tokenVerified(reason)
				log.LogDebugWithFields("bearer", "Token rejected", map[string]any{
					"reason": reason,
					"path":   r.URL.Path,
				})
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				jsonwriter.WriteUnauthorized(w, "Invalid token")
				return
			}

			metrics.tokenVerified("ok")
			next.ServeHTTP(w, r.WithContext(session.WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
