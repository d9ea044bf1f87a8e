package apitoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dgellow/authgate/internal/config"
	"github.com/dgellow/authgate/internal/idp"
	"github.com/dgellow/authgate/internal/log"
	"github.com/dgellow/authgate/internal/session"
)

// ErrInvalidToken wraps every verification failure
var ErrInvalidToken = errors.New("invalid token")

// MinSecretLength is the shortest HS256 secret we accept
const MinSecretLength = 32

// Claims is the payload of an assertion token. sub is the session user id.
type Claims struct {
	Email    string       `json:"email"`
	Name     string       `json:"name"`
	Role     string       `json:"role,omitempty"`
	Provider idp.Provider `json:"provider"`
	jwt.RegisteredClaims
}

// Config is shared by Issuer and Verifier
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// FromConfig converts the application token settings
func FromConfig(tc config.TokenConfig) Config {
	return Config{
		Secret:   []byte(tc.Secret.Reveal()),
		Issuer:   tc.Issuer,
		Audience: tc.Audience,
		TTL:      tc.TTL,
	}
}

func (c Config) validate() error {
	if len(c.Secret) < MinSecretLength {
		return fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if c.Issuer == "" {
		return fmt.Errorf("token issuer is required")
	}
	if c.Audience == "" {
		return fmt.Errorf("token audience is required")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	return nil
}

// Option customizes an Issuer or Verifier
type Option func(*clock)

type clock struct {
	now func() time.Time
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *clock) {
		c.now = now
	}
}

func newClock(opts []Option) clock {
	c := clock{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Issuer mints assertion tokens for session users
type Issuer struct {
	cfg   Config
	clock clock
}

// NewIssuer creates a token issuer
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg, clock: newClock(opts)}, nil
}

// Issue signs a token for user valid for the configured TTL
func (i *Issuer) Issue(user session.User) (string, error) {
	if user.ID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := i.clock.now()
	claims := Claims{
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role,
		Provider: user.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.TTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verifier validates assertion tokens. Only signature, issuer, audience and
// expiry are checked; tokens cannot be revoked.
type Verifier struct {
	cfg    Config
	parser *jwt.Parser
}

// NewVerifier creates a token verifier
func NewVerifier(cfg Config, opts ...Option) (*Verifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := newClock(opts)
	return &Verifier{
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(c.now),
		),
	}, nil
}

// Parse validates token and returns the user it was issued for.
// Errors wrap ErrInvalidToken.
func (v *Verifier) Parse(token string) (session.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return session.User{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	})
	if err != nil {
		return session.User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return session.User{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return session.User{
		ID:       claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Role:     claims.Role,
		Provider: claims.Provider,
	}, nil
}

// Verify is Parse for callers that only need a yes or no. The reason for a
// rejection is logged; the token itself never is.
func (v *Verifier) Verify(token string) (session.User, bool) {
	user, err := v.Parse(token)
	if err != nil {
		log.LogDebugWithFields("apitoken", "Token rejected", map[string]any{
			"reason": Reason(err),
		})
		return session.User{}, false
	}
	return user, true
}

// Reason classifies a verification error into a short label safe for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "wrong_issuer"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "wrong_audience"
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued), errors.Is(err, jwt.ErrTokenNotValidYet):
		return "not_yet_valid"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing_claim"
	default:
		return "invalid"
	}
}
