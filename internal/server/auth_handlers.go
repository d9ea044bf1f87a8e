package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgellow/authgate/internal/adminauth"
	"github.com/dgellow/authgate/internal/apitoken"
	"github.com/dgellow/authgate/internal/browserauth"
	"github.com/dgellow/authgate/internal/idp"
	jsonwriter "github.com/dgellow/authgate/internal/json"
	"github.com/dgellow/authgate/internal/log"
	"github.com/dgellow/authgate/internal/session"
)

// Error codes placed on the error page redirect after a failed callback.
const (
	ErrCodeUnknownProvider       = "unknown_provider"
	ErrCodeProviderNotConfigured = "provider_not_configured"
	ErrCodeAccessDenied          = "access_denied"
	ErrCodeProviderError         = "provider_error"
	ErrCodeMissingCode           = "missing_code"
	ErrCodeStateMismatch         = "state_mismatch"
	ErrCodeTokenExchangeFailed   = "token_exchange_failed"
	ErrCodeProfileFetchFailed    = "profile_fetch_failed"
	ErrCodeInvalidProfile        = "invalid_profile"
	ErrCodeSessionError          = "session_error"
)

const loginResultSuccess = "success"

// callbackError is a failed callback: a coarse code for the browser and the
// underlying error for the log.
type callbackError struct {
	code string
	err  error
}

func (e *callbackError) Error() string {
	return e.code + ": " + e.err.Error()
}

func (e *callbackError) Unwrap() error {
	return e.err
}

func fail(code string, err error) *callbackError {
	return &callbackError{code: code, err: err}
}

// AuthDeps are the collaborators of AuthHandlers
type AuthDeps struct {
	Registry        *idp.Registry
	Pending         *browserauth.PendingStore
	Sessions        *session.Store
	Issuer          *apitoken.Issuer
	Metrics         *Metrics
	ErrorPage       string
	AdminEmails     []string
	ProviderTimeout time.Duration
}

// AuthHandlers serves the login flow, the session endpoints and token issuance
type AuthHandlers struct {
	registry        *idp.Registry
	pending         *browserauth.PendingStore
	sessions        *session.Store
	issuer          *apitoken.Issuer
	metrics         *Metrics
	errorPage       string
	adminEmails     []string
	providerTimeout time.Duration
}

// NewAuthHandlers creates new auth handlers with dependency injection
func NewAuthHandlers(deps AuthDeps) *AuthHandlers {
	if deps.ErrorPage == "" {
		deps.ErrorPage = ErrorPagePath
	}
	if deps.ProviderTimeout <= 0 {
		deps.ProviderTimeout = 10 * time.Second
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	return &AuthHandlers{
		registry:        deps.Registry,
		pending:         deps.Pending,
		sessions:        deps.Sessions,
		issuer:          deps.Issuer,
		metrics:         deps.Metrics,
		errorPage:       deps.ErrorPage,
		adminEmails:     deps.AdminEmails,
		providerTimeout: deps.ProviderTimeout,
	}
}

// InitiateHandler starts a login: GET /api/auth/{provider}?callbackUrl=/somewhere
func (h *AuthHandlers) InitiateHandler(w http.ResponseWriter, r *http.Request) {
	p, err := idp.Parse(chi.URLParam(r, "provider"))
	if err != nil {
		jsonwriter.WriteNotFound(w, "Unknown provider")
		return
	}

	connector, err := h.registry.Lookup(p)
	if err != nil {
		log.LogErrorWithFields("auth", "Login requested for unconfigured provider", map[string]any{
			"provider": p,
		})
		jsonwriter.WriteInternalServerError(w, fmt.Sprintf("Provider %s is not configured", p))
		return
	}

	redirectURI, err := h.registry.RedirectURI(p, r)
	if err != nil {
		log.LogErrorWithFields("auth", "Failed to derive redirect URI", map[string]any{
			"provider": p,
			"error":    err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Failed to start login")
		return
	}

	pending, err := h.pending.Begin(w, p, redirectURI, r.URL.Query().Get("callbackUrl"))
	if err != nil {
		log.LogErrorWithFields("auth", "Failed to store pending login", map[string]any{
			"provider": p,
			"error":    err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Failed to start login")
		return
	}

	log.LogDebugWithFields("auth", "Redirecting to provider", map[string]any{
		"provider":     p,
		"redirect_uri": redirectURI,
	})
	http.Redirect(w, r, connector.AuthURL(pending.State, redirectURI), http.StatusFound)
}

// CallbackHandler completes a login: GET /api/auth/{provider}/callback?code&state.
// Every failure ends on the error page without a session.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "provider")

	p, err := idp.Parse(raw)
	if err != nil {
		h.pending.Clear(w)
		h.redirectToError(w, r, "", fail(ErrCodeUnknownProvider, err))
		return
	}

	dest, cbErr := h.completeLogin(w, r, p)
	if cbErr != nil {
		h.redirectToError(w, r, p, cbErr)
		return
	}

	h.metrics.login(p.String(), loginResultSuccess)
	http.Redirect(w, r, dest, http.StatusFound)
}

func (h *AuthHandlers) completeLogin(w http.ResponseWriter, r *http.Request, p idp.Provider) (string, *callbackError) {
	q := r.URL.Query()

	connector, err := h.registry.Lookup(p)
	if err != nil {
		h.pending.Clear(w)
		return "", fail(ErrCodeProviderNotConfigured, err)
	}

	// The provider reports consent refusals and its own failures in the query
	if providerErr := q.Get("error"); providerErr != "" {
		h.pending.Clear(w)
		err := fmt.Errorf("provider returned %q", providerErr)
		if providerErr == ErrCodeAccessDenied {
			return "", fail(ErrCodeAccessDenied, err)
		}
		return "", fail(ErrCodeProviderError, err)
	}

	pending, err := h.pending.Consume(w, r, p, q.Get("state"))
	if err != nil {
		return "", fail(ErrCodeStateMismatch, err)
	}

	code := q.Get("code")
	if code == "" {
		return "", fail(ErrCodeMissingCode, errors.New("callback without code"))
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.providerTimeout)
	defer cancel()

	token, err := connector.ExchangeCode(ctx, code, pending.RedirectURI)
	if err != nil {
		return "", fail(ErrCodeTokenExchangeFailed, err)
	}

	identity, err := connector.UserInfo(ctx, token)
	if err != nil {
		if errors.Is(err, idp.ErrInvalidProfile) {
			return "", fail(ErrCodeInvalidProfile, err)
		}
		return "", fail(ErrCodeProfileFetchFailed, err)
	}

	user := session.User{
		ID:       identity.Subject,
		Email:    identity.Email,
		Name:     identity.Name,
		Image:    identity.Picture,
		Provider: p,
		Role:     adminauth.RoleFor(identity.Email, h.adminEmails),
	}
	if err := h.sessions.Save(w, user); err != nil {
		return "", fail(ErrCodeSessionError, err)
	}

	log.LogInfoWithFields("auth", "User logged in", map[string]any{
		"provider": p,
		"user_id":  user.ID,
		"email":    user.Email,
		"role":     user.Role,
	})
	return pending.CallbackURL, nil
}

func (h *AuthHandlers) redirectToError(w http.ResponseWriter, r *http.Request, p idp.Provider, cbErr *callbackError) {
	log.LogWarnWithFields("auth", "Login failed", map[string]any{
		"provider":   p,
		"error_code": cbErr.code,
		"error":      cbErr.err.Error(),
	})
	h.metrics.login(p.String(), cbErr.code)
	http.Redirect(w, r, errorPageURL(h.errorPage, cbErr.code, p), http.StatusFound)
}

// errorPageURL appends error and provider to the configured error page,
// keeping any query it already has.
func errorPageURL(page, code string, p idp.Provider) string {
	u, err := url.Parse(page)
	if err != nil {
		u = &url.URL{Path: ErrorPagePath}
	}
	q := u.Query()
	q.Set("error", code)
	if p != "" {
		q.Set("provider", p.String())
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SessionHandler reports the current session and slides its expiry forward
func (h *AuthHandlers) SessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(r)
	if err := h.sessions.Refresh(w, sess); err != nil {
		log.LogErrorWithFields("auth", "Failed to refresh session", map[string]any{
			"error": err.Error(),
		})
	}
	_ = jsonwriter.Write(w, sess)
}

// SignoutHandler destroys the session. It succeeds whether or not one existed.
func (h *AuthHandlers) SignoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w); err != nil {
		log.LogErrorWithFields("auth", "Failed to sign out", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Failed to sign out")
		return
	}
	_ = jsonwriter.Write(w, map[string]bool{"success": true})
}

// TokenHandler issues an assertion token for the session user
func (h *AuthHandlers) TokenHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.RequireAuth(r)
	if err != nil {
		jsonwriter.WriteUnauthorized(w, "Not authenticated")
		return
	}

	token, err := h.issuer.Issue(user)
	if err != nil {
		log.LogErrorWithFields("auth", "Failed to issue token", map[string]any{
			"user_id": user.ID,
			"error":   err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Failed to issue token")
		return
	}

	h.metrics.tokenIssued()
	_ = jsonwriter.Write(w, map[string]string{"token": token})
}

// MeHandler returns the user a bearer token was issued for. It runs behind
// NewBearerMiddleware.
func (h *AuthHandlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := session.UserFromContext(r.Context())
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Not authenticated")
		return
	}
	_ = jsonwriter.Write(w, map[string]session.User{"user": user})
}
