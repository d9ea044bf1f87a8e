package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	// ErrInvalidSeal covers every way a sealed value can fail to open: bad encoding,
	// truncation, tampering, a different key or a different purpose.
	ErrInvalidSeal = errors.New("invalid sealed value")

	// ErrSealExpired is returned for an authentic value whose embedded expiry has passed.
	ErrSealExpired = errors.New("sealed value expired")
)

const sealKeySalt = "authgate/seal/v1"

// Sealer encrypts and authenticates small JSON payloads for storage in client-held cookies.
// The key is derived from a password with HKDF-SHA256; the purpose string is mixed into the
// key derivation and bound as associated data, so a value sealed for one cookie cannot be
// replayed as another.
type Sealer struct {
	aead    cipher.AEAD
	purpose []byte
	ttl     time.Duration
	now     func() time.Time
}

// SealerOption customizes a Sealer
type SealerOption func(*Sealer)

// WithClock replaces time.Now, for tests that need to move past an expiry.
func WithClock(now func() time.Time) SealerOption {
	return func(s *Sealer) {
		s.now = now
	}
}

// envelope wraps sealed data with its expiry
type envelope struct {
	Data      json.RawMessage `json:"d"`
	ExpiresAt int64           `json:"exp,omitempty"`
}

// NewSealer derives a sealing key from password for the given purpose.
// A zero ttl produces values that never expire on their own.
func NewSealer(password []byte, purpose string, ttl time.Duration, opts ...SealerOption) (*Sealer, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("seal password is required")
	}
	if purpose == "" {
		return nil, fmt.Errorf("seal purpose is required")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, password, []byte(sealKeySalt), []byte(purpose))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving seal key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	s := &Sealer{
		aead:    aead,
		purpose: []byte(purpose),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime embedded in values sealed by s
func (s *Sealer) TTL() time.Duration {
	return s.ttl
}

// Seal marshals v to JSON, stamps the expiry and returns a URL-safe encrypted string.
func (s *Sealer) Seal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal data: %w", err)
	}

	env := envelope{Data: data}
	if s.ttl > 0 {
		env.ExpiresAt = s.now().Add(s.ttl).Unix()
	}
	plaintext, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Output layout is nonce || ciphertext.
	sealed := s.aead.Seal(nonce, nonce, plaintext, s.purpose)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open authenticates and decrypts a value produced by Seal, checks its expiry and
// unmarshals the payload into v.
func (s *Sealer) Open(value string, v any) error {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("%w: decode: %v", ErrInvalidSeal, err)
	}
	if len(raw) < s.aead.NonceSize()+s.aead.Overhead() {
		return fmt.Errorf("%w: too short", ErrInvalidSeal)
	}

	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, s.purpose)
	if err != nil {
		return fmt.Errorf("%w: authentication failed", ErrInvalidSeal)
	}

	var env envelope
	if err := json.Unmarshal(plaintext, &env); err != nil {
		return fmt.Errorf("%w: envelope: %v", ErrInvalidSeal, err)
	}
	if env.ExpiresAt != 0 && !s.now().Before(time.Unix(env.ExpiresAt, 0)) {
		return ErrSealExpired
	}

	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrInvalidSeal, err)
	}
	return nil
}
