package browserauth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dgellow/authgate/internal/cookie"
	"github.com/dgellow/authgate/internal/crypto"
	"github.com/dgellow/authgate/internal/idp"
	"github.com/dgellow/authgate/internal/urlutil"
)

// ErrStateMismatch is returned when a callback cannot be matched to the login that
// started it: no pending cookie, an expired or forged one, another provider or another state.
var ErrStateMismatch = errors.New("state mismatch")

// SealPurpose binds pending-login cookies to their own derived key.
const SealPurpose = "authgate-pending-login"

// PendingLogin carries what the callback needs from the login that started it.
// It lives in a sealed cookie for the duration of the provider round trip; the
// sealed envelope carries its expiry.
type PendingLogin struct {
	State       string       `json:"state"`
	CallbackURL string       `json:"callback_url"`
	Provider    idp.Provider `json:"provider"`
	RedirectURI string       `json:"redirect_uri"`
}

// PendingStore reads and writes the pending-login cookie
type PendingStore struct {
	sealer *crypto.Sealer
	secure bool
}

// NewPendingStore creates a pending-login store. The sealer's TTL bounds how long a
// user may take at the provider.
func NewPendingStore(sealer *crypto.Sealer, secure bool) *PendingStore {
	return &PendingStore{sealer: sealer, secure: secure}
}

// Begin generates a fresh state, stashes the login in the pending cookie and returns it.
// callbackURL is reduced to a same-origin path, "/" when absent or unsafe.
func (s *PendingStore) Begin(w http.ResponseWriter, provider idp.Provider, redirectURI, callbackURL string) (PendingLogin, error) {
	state, err := crypto.GenerateSecureToken()
	if err != nil {
		return PendingLogin{}, fmt.Errorf("failed to generate state: %w", err)
	}

	pending := PendingLogin{
		State:       state,
		CallbackURL: urlutil.LocalPath(callbackURL, "/"),
		Provider:    provider,
		RedirectURI: redirectURI,
	}

	value, err := s.sealer.Seal(pending)
	if err != nil {
		return PendingLogin{}, fmt.Errorf("failed to seal pending login: %w", err)
	}
	cookie.Set(w, cookie.PendingLogin, value, s.sealer.TTL(), s.secure)
	return pending, nil
}

// Consume removes the pending cookie and returns the login it held, provided it was
// started for provider and its state equals state. The cookie is cleared on every
// outcome so a state can be used at most once.
func (s *PendingStore) Consume(w http.ResponseWriter, r *http.Request, provider idp.Provider, state string) (PendingLogin, error) {
	s.Clear(w)

	value, err := cookie.Get(r, cookie.PendingLogin)
	if err != nil || value == "" {
		return PendingLogin{}, fmt.Errorf("%w: no pending login", ErrStateMismatch)
	}

	var pending PendingLogin
	if err := s.sealer.Open(value, &pending); err != nil {
		return PendingLogin{}, fmt.Errorf("%w: %v", ErrStateMismatch, err)
	}
	if pending.Provider != provider {
		return PendingLogin{}, fmt.Errorf("%w: login started for %s", ErrStateMismatch, pending.Provider)
	}
	if !crypto.EqualTokens(pending.State, state) {
		return PendingLogin{}, fmt.Errorf("%w: state does not match", ErrStateMismatch)
	}

	pending.CallbackURL = urlutil.LocalPath(pending.CallbackURL, "/")
	return pending, nil
}

// Clear removes the pending cookie
func (s *PendingStore) Clear(w http.ResponseWriter) {
	cookie.Clear(w, cookie.PendingLogin, s.secure)
}
