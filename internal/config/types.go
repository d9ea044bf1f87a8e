package config

import (
	"encoding/json"
	"strings"
	"time"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// GoString covers %#v so struct dumps stay redacted too
func (s Secret) GoString() string {
	return s.String()
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// Reveal returns the raw secret value. Call sites should be limited to the
// places that hand the value to a cipher, signer or token endpoint.
func (s Secret) Reveal() string {
	return string(s)
}

// ProviderCredentials holds the OAuth client registration for one identity provider.
type ProviderCredentials struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret Secret `env:"CLIENT_SECRET"`

	// Tenant is only meaningful for Microsoft (Azure AD tenant id or "common").
	Tenant string `env:"TENANT"`

	// Endpoint overrides, used to point a provider at a local fake.
	AuthURL     string `env:"AUTH_URL"`
	TokenURL    string `env:"TOKEN_URL"`
	UserInfoURL string `env:"USERINFO_URL"`
}

// Configured reports whether both halves of the client registration are present.
func (p ProviderCredentials) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// partial reports a registration where exactly one of id/secret was provided.
func (p ProviderCredentials) partial() bool {
	return (p.ClientID == "") != (p.ClientSecret == "")
}

// SessionConfig configures the sealed session cookie
type SessionConfig struct {
	Password   Secret        `env:"PASSWORD"`
	TTL        time.Duration `env:"TTL"         envDefault:"720h"`
	CookieName string        `env:"COOKIE_NAME" envDefault:"authgate_session"`
}

// TokenConfig configures the assertion token handed to the API backend
type TokenConfig struct {
	Secret   Secret        `env:"SECRET"`
	Issuer   string        `env:"ISSUER"   envDefault:"authgate"`
	Audience string        `env:"AUDIENCE" envDefault:"api"`
	TTL      time.Duration `env:"TTL"      envDefault:"1h"`
}

// Config is built once at startup and shared read-only by every component.
type Config struct {
	Env             string        `env:"ENV"              envDefault:"production"`
	Addr            string        `env:"ADDR"             envDefault:":8080"`
	BaseURL         string        `env:"BASE_URL"`
	ErrorPage       string        `env:"ERROR_PAGE"       envDefault:"/auth/error"`
	AdminEmails     []string      `env:"ADMIN_EMAILS"     envSeparator:","`
	PendingTTL      time.Duration `env:"PENDING_TTL"      envDefault:"10m"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	Session SessionConfig `envPrefix:"SESSION_"`
	Token   TokenConfig   `envPrefix:"JWT_"`

	Google    ProviderCredentials `envPrefix:"GOOGLE_"`
	Microsoft ProviderCredentials `envPrefix:"MICROSOFT_"`
	Facebook  ProviderCredentials `envPrefix:"FACEBOOK_"`
}

// IsDev reports whether we are running in development mode,
// where cookies are issued without the Secure attribute.
func (c *Config) IsDev() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "development", "dev", "test", "local":
		return true
	}
	return false
}

// SecureCookies is the value of the Secure attribute for every cookie we set.
func (c *Config) SecureCookies() bool {
	return !c.IsDev()
}
