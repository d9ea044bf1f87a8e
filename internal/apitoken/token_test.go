package apitoken

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgellow/authgate/internal/idp"
	"github.com/dgellow/authgate/internal/session"
)

var (
	testSecret = []byte("test-signing-key-that-is-at-least-32-bytes-long!!")

	testUser = session.User{
		ID:       "123",
		Email:    "a@b.com",
		Name:     "A B",
		Provider: idp.Google,
		Role:     "admin",
	}
)

func testConfig() Config {
	return Config{
		Secret:   testSecret,
		Issuer:   "authgate",
		Audience: "api",
		TTL:      time.Hour,
	}
}

func newPair(t *testing.T, cfg Config, now func() time.Time) (*Issuer, *Verifier) {
	t.Helper()
	issuer, err := NewIssuer(cfg, WithClock(now))
	require.NoError(t, err)
	verifier, err := NewVerifier(cfg, WithClock(now))
	require.NoError(t, err)
	return issuer, verifier
}

func TestIssueThenVerify(t *testing.T) {
	issuer, verifier := newPair(t, testConfig(), time.Now)

	token, err := issuer.Issue(testUser)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	user, ok := verifier.Verify(token)
	require.True(t, ok)
	assert.Equal(t, testUser, user)
}

func TestIssue_Claims(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer, _ := newPair(t, testConfig(), func() time.Time { return now })

	token, err := issuer.Issue(testUser)
	require.NoError(t, err)

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return testSecret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)

	assert.Equal(t, "HS256", parsed.Method.Alg())
	assert.Equal(t, "123", claims.Subject)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "A B", claims.Name)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, idp.Google, claims.Provider)
	assert.Equal(t, "authgate", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"api"}, claims.Audience)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestIssue_UniqueIDs(t *testing.T) {
	issuer, _ := newPair(t, testConfig(), time.Now)

	first, err := issuer.Issue(testUser)
	require.NoError(t, err)
	second, err := issuer.Issue(testUser)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestIssue_RequiresUserID(t *testing.T) {
	issuer, _ := newPair(t, testConfig(), time.Now)
	_, err := issuer.Issue(session.User{Email: "a@b.com"})
	assert.Error(t, err)
}

func TestVerify_Rejects(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	issuer, verifier := newPair(t, testConfig(), clock)
	token, err := issuer.Issue(testUser)
	require.NoError(t, err)

	otherIssuerCfg := testConfig()
	otherIssuerCfg.Issuer = "someone-else"
	wrongIssuer, _ := newPair(t, otherIssuerCfg, clock)
	wrongIss, err := wrongIssuer.Issue(testUser)
	require.NoError(t, err)

	otherAudienceCfg := testConfig()
	otherAudienceCfg.Audience = "other-api"
	wrongAudience, _ := newPair(t, otherAudienceCfg, clock)
	wrongAud, err := wrongAudience.Issue(testUser)
	require.NoError(t, err)

	otherSecretCfg := testConfig()
	otherSecretCfg.Secret = []byte("another-signing-key-that-is-32-bytes-or-more")
	wrongSecret, _ := newPair(t, otherSecretCfg, clock)
	wrongSig, err := wrongSecret.Issue(testUser)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	alteredSig := parts[0] + "." + parts[1] + "." + string(sig)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "123", "iss": "authgate", "aud": "api", "exp": now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "123", "iss": "authgate", "aud": "api", "exp": now.Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "123", "iss": "authgate", "aud": "api",
	}).SignedString(testSecret)
	require.NoError(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "authgate", "aud": "api", "exp": now.Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		reason string
	}{
		{name: "empty", token: "", reason: "invalid"},
		{name: "garbage", token: "not.a.jwt", reason: "malformed"},
		{name: "altered signature", token: alteredSig, reason: "bad_signature"},
		{name: "different secret", token: wrongSig, reason: "bad_signature"},
		{name: "wrong issuer", token: wrongIss, reason: "wrong_issuer"},
		{name: "wrong audience", token: wrongAud, reason: "wrong_audience"},
		{name: "alg none", token: none, reason: "bad_signature"},
		{name: "other hmac", token: hs512, reason: "bad_signature"},
		{name: "no expiry", token: noExp, reason: "missing_claim"},
		{name: "no subject", token: noSub, reason: "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, ok := verifier.Verify(tt.token)
			assert.False(t, ok)
			assert.Equal(t, session.User{}, user)

			_, err := verifier.Parse(tt.token)
			require.ErrorIs(t, err, ErrInvalidToken)
			assert.Equal(t, tt.reason, Reason(err))
		})
	}
}

func TestVerify_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer, verifier := newPair(t, testConfig(), func() time.Time { return now })

	token, err := issuer.Issue(testUser)
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, ok := verifier.Verify(token)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, err = verifier.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, "expired", Reason(err))
}

func TestNewIssuer_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "short secret", mutate: func(c *Config) { c.Secret = []byte("short") }},
		{name: "no issuer", mutate: func(c *Config) { c.Issuer = "" }},
		{name: "no audience", mutate: func(c *Config) { c.Audience = "" }},
		{name: "no ttl", mutate: func(c *Config) { c.TTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			_, err := NewIssuer(cfg)
			assert.Error(t, err)
			_, err = NewVerifier(cfg)
			assert.Error(t, err)
		})
	}
}
