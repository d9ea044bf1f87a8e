package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dgellow/authgate/internal/config"
	"github.com/dgellow/authgate/internal/ioutil"
)

const maxProfileSize = 1 << 20

var (
	// ErrUnknownProvider is returned when a provider name is not one of All.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrProviderNotConfigured is returned for a supported provider that has no
	// client registration in this deployment.
	ErrProviderNotConfigured = errors.New("provider not configured")

	// ErrInvalidProfile is returned when the userinfo response cannot be normalized.
	ErrInvalidProfile = errors.New("invalid user profile")
)

// Provider identifies one of the supported identity providers.
// The set is closed: every switch over Provider must handle each member of All.
type Provider string

const (
	Google    Provider = "google"
	Microsoft Provider = "microsoft"
	Facebook  Provider = "facebook"
)

// All lists every supported provider in display order.
var All = []Provider{Google, Microsoft, Facebook}

// Parse maps a path segment to a Provider.
func Parse(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Google, Microsoft, Facebook:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

func (p Provider) String() string {
	return string(p)
}

// Identity is a user profile normalized across providers.
type Identity struct {
	Provider Provider `json:"provider"`
	Subject  string   `json:"sub"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Picture  string   `json:"picture,omitempty"`
}

// ProviderConfig is the static OAuth registration of one provider.
// The redirect URI is not part of it: it is derived per login.
type ProviderConfig struct {
	Provider              Provider
	ClientID              string
	ClientSecret          config.Secret
	AuthorizationEndpoint string
	TokenEndpoint         string
	UserInfoEndpoint      string
	Scopes                []string
}

// Scope returns the space-delimited scope parameter
func (c ProviderConfig) Scope() string {
	return strings.Join(c.Scopes, " ")
}

// oauth2Config binds the registration to one redirect URI. Client credentials are sent in
// the token request body (client_id, client_secret), never in an Authorization header.
func (c ProviderConfig) oauth2Config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret.Reveal(),
		RedirectURL:  redirectURI,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthorizationEndpoint,
			TokenURL:  c.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Connector performs the Authorization Code flow against one provider.
type Connector interface {
	// Config returns the static registration for this provider.
	Config() ProviderConfig

	// AuthURL builds the authorization URL the browser is redirected to.
	AuthURL(state, redirectURI string) string

	// ExchangeCode trades an authorization code for tokens at the token endpoint.
	// redirectURI must be the one used to build the authorization URL.
	ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)

	// UserInfo fetches the profile with the access token and normalizes it.
	UserInfo(ctx context.Context, token *oauth2.Token) (*Identity, error)
}

// connector carries the parts shared by every provider. Provider files embed it
// and add their own profile shape and authorization extras.
type connector struct {
	cfg       ProviderConfig
	authOpts  []oauth2.AuthCodeOption
	normalize func([]byte) (*Identity, error)
}

func (c *connector) Config() ProviderConfig {
	return c.cfg
}

func (c *connector) AuthURL(state, redirectURI string) string {
	return c.cfg.oauth2Config(redirectURI).AuthCodeURL(state, c.authOpts...)
}

func (c *connector) ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	token, err := c.cfg.oauth2Config(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s token exchange: %w", c.cfg.Provider, sanitizeExchangeError(err))
	}
	return token, nil
}

func (c *connector) UserInfo(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	client := c.cfg.oauth2Config("").Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user info request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user info: status %d", resp.StatusCode)
	}

	body, err := ioutil.ReadLimited(resp.Body, maxProfileSize)
	if errors.Is(err, ioutil.ErrTooLarge) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user info: %w", err)
	}

	identity, err := c.normalize(body)
	if err != nil {
		return nil, err
	}
	identity.Provider = c.cfg.Provider
	if identity.Subject == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidProfile)
	}
	if identity.Name == "" {
		identity.Name = identity.Email
	}
	return identity, nil
}

func decodeProfile(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}

// sanitizeExchangeError keeps the provider's error code but drops the raw response body,
// which may echo request parameters.
func sanitizeExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		if retrieveErr.ErrorCode != "" {
			return fmt.Errorf("status %d: %s", status, retrieveErr.ErrorCode)
		}
		return fmt.Errorf("status %d", status)
	}
	return err
}
