package idp

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dgellow/authgate/internal/urlutil"
)

// CallbackPath is the route the provider redirects back to.
func CallbackPath(p Provider) string {
	return "/api/auth/" + string(p) + "/callback"
}

// RedirectURI returns the absolute callback URI for p. One strategy applies to every
// provider: the configured base URL when there is one, otherwise the request origin.
func (r *Registry) RedirectURI(p Provider, req *http.Request) (string, error) {
	return DeriveRedirectURI(p, req, r.baseURL)
}

// DeriveRedirectURI builds {origin}/api/auth/{provider}/callback.
func DeriveRedirectURI(p Provider, req *http.Request, baseURL string) (string, error) {
	origin := baseURL
	if origin == "" {
		origin = RequestOrigin(req)
	}
	if origin == "" {
		return "", fmt.Errorf("cannot determine request origin")
	}
	return urlutil.JoinPath(origin, CallbackPath(p))
}

// RequestOrigin computes scheme://host for req, preferring X-Forwarded-Proto and
// X-Forwarded-Host so the result is the public origin behind a proxy or load balancer.
func RequestOrigin(req *http.Request) string {
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if proto := strings.ToLower(firstHeaderValue(req.Header.Get("X-Forwarded-Proto"))); proto == "http" || proto == "https" {
		scheme = proto
	}

	host := req.Host
	if forwarded := firstHeaderValue(req.Header.Get("X-Forwarded-Host")); validHost(forwarded) {
		host = forwarded
	}
	if !validHost(host) {
		return ""
	}
	return scheme + "://" + host
}

// firstHeaderValue takes the client-most entry of a comma separated proxy chain.
func firstHeaderValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func validHost(host string) bool {
	if host == "" {
		return false
	}
	return !strings.ContainsAny(host, "/\\@?# \t\r\n")
}
