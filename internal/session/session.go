package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgellow/authgate/internal/cookie"
	"github.com/dgellow/authgate/internal/crypto"
	"github.com/dgellow/authgate/internal/idp"
	jsonwriter "github.com/dgellow/authgate/internal/json"
	"github.com/dgellow/authgate/internal/log"
)

// ErrNotAuthenticated is returned by RequireAuth when the request carries no valid session.
var ErrNotAuthenticated = errors.New("not authenticated")

// SealPurpose binds session cookies to their own derived key.
const SealPurpose = "authgate-session"

// User is the identity kept in the session and copied into assertion tokens.
type User struct {
	ID       string       `json:"id"`
	Email    string       `json:"email"`
	Name     string       `json:"name"`
	Image    string       `json:"image,omitempty"`
	Provider idp.Provider `json:"provider"`
	Role     string       `json:"role,omitempty"`
}

// Session is what the session endpoint reports to clients.
type Session struct {
	User       *User `json:"user"`
	IsLoggedIn bool  `json:"isLoggedIn"`
}

// Store keeps the session entirely in a sealed cookie. Nothing is stored server-side;
// every request unseals its own cookie.
type Store struct {
	sealer     *crypto.Sealer
	cookieName string
	secure     bool
}

// NewStore creates a session store. The sealer's TTL is the session lifetime.
func NewStore(sealer *crypto.Sealer, cookieName string, secure bool) *Store {
	if cookieName == "" {
		cookieName = cookie.Session
	}
	return &Store{
		sealer:     sealer,
		cookieName: cookieName,
		secure:     secure,
	}
}

// CookieName returns the name of the session cookie
func (s *Store) CookieName() string {
	return s.cookieName
}

// Get reads the session from the request. It never fails: a missing, corrupt,
// tampered or expired cookie yields a logged-out session.
func (s *Store) Get(r *http.Request) Session {
	value, err := cookie.Get(r, s.cookieName)
	if err != nil || value == "" {
		return Session{}
	}

	var user User
	if err := s.sealer.Open(value, &user); err != nil {
		log.LogDebugWithFields("session", "Discarding session cookie", map[string]any{
			"reason": err.Error(),
		})
		return Session{}
	}
	if user.ID == "" {
		log.LogDebugWithFields("session", "Discarding session cookie without user id", nil)
		return Session{}
	}

	return Session{User: &user, IsLoggedIn: true}
}

// Save seals user into the session cookie with a fresh expiry.
func (s *Store) Save(w http.ResponseWriter, user User) error {
	if user.ID == "" {
		return fmt.Errorf("session user id is required")
	}

	value, err := s.sealer.Seal(user)
	if err != nil {
		return fmt.Errorf("failed to seal session: %w", err)
	}

	cookie.Set(w, s.cookieName, value, s.sealer.TTL(), s.secure)
	return nil
}

// Refresh re-seals a logged-in session so the lifetime slides forward.
// A logged-out session is left alone.
func (s *Store) Refresh(w http.ResponseWriter, sess Session) error {
	if !sess.IsLoggedIn || sess.User == nil {
		return nil
	}
	return s.Save(w, *sess.User)
}

// Destroy clears the session cookie. Calling it without a session is not an error.
func (s *Store) Destroy(w http.ResponseWriter) error {
	cookie.Clear(w, s.cookieName, s.secure)
	return nil
}

// RequireAuth returns the session user or ErrNotAuthenticated.
func (s *Store) RequireAuth(r *http.Request) (User, error) {
	sess := s.Get(r)
	if !sess.IsLoggedIn {
		return User{}, ErrNotAuthenticated
	}
	return *sess.User, nil
}

// Middleware rejects requests without a session and puts the user in the context
// for the wrapped handler.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.RequireAuth(r)
		if err != nil {
			jsonwriter.WriteUnauthorized(w, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

type userKey struct{}

// WithUser returns a context carrying user
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user stored by Middleware
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userKey{}).(User)
	return user, ok
}
