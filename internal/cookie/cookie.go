package cookie

import (
	"net/http"
	"time"

	"github.com/dgellow/authgate/internal/log"
)

// Cookie names used by authgate
const (
	PendingLogin = "oauth_pending_login"
	Session      = "authgate_session"
)

// Set writes an HttpOnly, SameSite=Lax cookie scoped to the whole site.
// Secure is off only in development, where the server runs on plain http.
func Set(w http.ResponseWriter, name, value string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogTraceWithFields("cookie", "Cookie set", map[string]any{
		"name":     name,
		"maxAge":   maxAge.String(),
		"secure":   secure,
		"sameSite": "Lax",
	})
}

// Clear removes a cookie by setting MaxAge to -1. The attributes match Set so
// browsers treat it as the same cookie.
func Clear(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	log.LogTraceWithFields("cookie", "Cookie cleared", map[string]any{"name": name})
}

// Get retrieves a cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
