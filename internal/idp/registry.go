package idp

import (
	"fmt"

	"github.com/dgellow/authgate/internal/config"
)

// Registry holds one Connector per configured provider. It is built once at startup
// and never mutated afterwards.
type Registry struct {
	connectors map[Provider]Connector
	baseURL    string
}

// NewRegistry builds connectors for every provider with a complete client registration.
// A partial registration is a startup error.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	r := &Registry{
		connectors: make(map[Provider]Connector, len(All)),
		baseURL:    cfg.BaseURL,
	}

	for _, p := range All {
		creds, err := credentialsFor(cfg, p)
		if err != nil {
			return nil, err
		}
		if !creds.Configured() {
			if creds.ClientID != "" || creds.ClientSecret != "" {
				return nil, fmt.Errorf("%s: client id and client secret must both be set", p)
			}
			continue
		}
		c, err := newConnector(p, creds)
		if err != nil {
			return nil, err
		}
		r.connectors[p] = c
	}

	if len(r.connectors) == 0 {
		return nil, fmt.Errorf("no identity provider configured")
	}
	return r, nil
}

// NewRegistryFromConnectors assembles a registry from prebuilt connectors.
func NewRegistryFromConnectors(baseURL string, connectors ...Connector) *Registry {
	r := &Registry{
		connectors: make(map[Provider]Connector, len(connectors)),
		baseURL:    baseURL,
	}
	for _, c := range connectors {
		r.connectors[c.Config().Provider] = c
	}
	return r
}

func credentialsFor(cfg *config.Config, p Provider) (config.ProviderCredentials, error) {
	switch p {
	case Google:
		return cfg.Google, nil
	case Microsoft:
		return cfg.Microsoft, nil
	case Facebook:
		return cfg.Facebook, nil
	default:
		return config.ProviderCredentials{}, fmt.Errorf("%w: %q", ErrUnknownProvider, p)
	}
}

func newConnector(p Provider, creds config.ProviderCredentials) (Connector, error) {
	switch p {
	case Google:
		return newGoogleConnector(creds), nil
	case Microsoft:
		return newMicrosoftConnector(creds), nil
	case Facebook:
		return newFacebookConnector(creds), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, p)
	}
}

// Lookup returns the connector for p, or ErrProviderNotConfigured.
func (r *Registry) Lookup(p Provider) (Connector, error) {
	c, ok := r.connectors[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, p)
	}
	return c, nil
}

// Configured lists the providers available for login, in All order.
func (r *Registry) Configured() []Provider {
	out := make([]Provider, 0, len(r.connectors))
	for _, p := range All {
		if _, ok := r.connectors[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// BaseURL is the statically configured public origin, empty when derived per request.
func (r *Registry) BaseURL() string {
	return r.baseURL
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
