package crypto

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "a-session-password-that-is-long-enough"

type payload struct {
	Email string `json:"email"`
	Count int    `json:"count"`
}

func newTestSealer(t *testing.T, purpose string, ttl time.Duration, opts ...SealerOption) *Sealer {
	t.Helper()
	s, err := NewSealer([]byte(testPassword), purpose, ttl, opts...)
	require.NoError(t, err)
	return s
}

func TestSealer_RoundTrip(t *testing.T) {
	s := newTestSealer(t, "session", time.Hour)

	sealed, err := s.Seal(payload{Email: "a@b.com", Count: 3})
	require.NoError(t, err)
	assert.NotContains(t, sealed, "a@b.com")
	assert.NotContains(t, sealed, "=", "value must be cookie safe without padding")

	var got payload
	require.NoError(t, s.Open(sealed, &got))
	assert.Equal(t, payload{Email: "a@b.com", Count: 3}, got)
}

func TestSealer_NonceIsRandom(t *testing.T) {
	s := newTestSealer(t, "session", 0)

	first, err := s.Seal(payload{Email: "a@b.com"})
	require.NoError(t, err)
	second, err := s.Seal(payload{Email: "a@b.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestSealer_Rejects(t *testing.T) {
	s := newTestSealer(t, "session", time.Hour)
	sealed, err := s.Seal(payload{Email: "a@b.com"})
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	flipped := base64.RawURLEncoding.EncodeToString(raw)

	otherKey, err := NewSealer([]byte(testPassword+"-rotated"), "session", time.Hour)
	require.NoError(t, err)
	otherPurpose := newTestSealer(t, "pending-login", time.Hour)

	tests := []struct {
		name   string
		sealer *Sealer
		value  string
	}{
		{name: "tampered ciphertext", sealer: s, value: flipped},
		{name: "not base64", sealer: s, value: "%%%"},
		{name: "truncated", sealer: s, value: sealed[:10]},
		{name: "empty", sealer: s, value: ""},
		{name: "different password", sealer: otherKey, value: sealed},
		{name: "different purpose", sealer: otherPurpose, value: sealed},
		{name: "garbage", sealer: s, value: strings.Repeat("A", 120)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			err := tt.sealer.Open(tt.value, &got)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSeal)
			assert.Empty(t, got.Email)
		})
	}
}

func TestSealer_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := newTestSealer(t, "pending-login", 10*time.Minute, WithClock(clock))

	sealed, err := s.Seal(payload{Email: "a@b.com"})
	require.NoError(t, err)

	now = now.Add(9 * time.Minute)
	var got payload
	require.NoError(t, s.Open(sealed, &got))

	now = now.Add(2 * time.Minute)
	err = s.Open(sealed, &got)
	assert.ErrorIs(t, err, ErrSealExpired)
}

func TestNewSealer_Validation(t *testing.T) {
	_, err := NewSealer(nil, "session", time.Hour)
	assert.Error(t, err)

	_, err = NewSealer([]byte(testPassword), "", time.Hour)
	assert.Error(t, err)
}
