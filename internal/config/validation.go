package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const minSecretLength = 32

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

func (v ValidationError) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

// Err folds all errors into one, or returns nil when the config is valid.
func (v *ValidationResult) Err() error {
	if v.IsValid() {
		return nil
	}
	errs := make([]error, 0, len(v.Errors))
	for _, e := range v.Errors {
		errs = append(errs, errors.New(e.String()))
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

func (v *ValidationResult) addError(path, format string, args ...any) {
	v.Errors = append(v.Errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *ValidationResult) addWarning(path, format string, args ...any) {
	v.Warnings = append(v.Warnings, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a parsed config. Secrets and provider registrations are checked here so a
// misconfiguration stops the process at startup instead of failing individual requests.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	if cfg.Addr == "" {
		result.addError(EnvPrefix+"ADDR", "listen address is required")
	}

	if len(cfg.Session.Password) < minSecretLength {
		result.addError(EnvPrefix+"SESSION_PASSWORD",
			"must be at least %d characters (got %d). Generate with: openssl rand -base64 32",
			minSecretLength, len(cfg.Session.Password))
	}
	if cfg.Session.CookieName == "" {
		result.addError(EnvPrefix+"SESSION_COOKIE_NAME", "cookie name is required")
	}
	if cfg.Session.TTL <= 0 {
		result.addError(EnvPrefix+"SESSION_TTL", "must be positive")
	}

	if len(cfg.Token.Secret) < minSecretLength {
		result.addError(EnvPrefix+"JWT_SECRET",
			"must be at least %d characters (got %d). Generate with: openssl rand -base64 32",
			minSecretLength, len(cfg.Token.Secret))
	}
	if cfg.Token.Secret != "" && cfg.Token.Secret == cfg.Session.Password {
		result.addWarning(EnvPrefix+"JWT_SECRET", "reuses the session password; use independent secrets")
	}
	if cfg.Token.Issuer == "" {
		result.addError(EnvPrefix+"JWT_ISSUER", "issuer is required")
	}
	if cfg.Token.Audience == "" {
		result.addError(EnvPrefix+"JWT_AUDIENCE", "audience is required")
	}
	if cfg.Token.TTL <= 0 {
		result.addError(EnvPrefix+"JWT_TTL", "must be positive")
	}

	if cfg.PendingTTL <= 0 {
		result.addError(EnvPrefix+"PENDING_TTL", "must be positive")
	}
	if cfg.ProviderTimeout <= 0 {
		result.addError(EnvPrefix+"PROVIDER_TIMEOUT", "must be positive")
	}

	validateProviders(cfg, result)
	validateURLs(cfg, result)

	if cfg.IsDev() {
		result.addWarning(EnvPrefix+"ENV", "development mode: cookies are issued without the Secure attribute")
	}

	return result
}

func validateProviders(cfg *Config, result *ValidationResult) {
	providers := []struct {
		name  string
		creds ProviderCredentials
	}{
		{"GOOGLE", cfg.Google},
		{"MICROSOFT", cfg.Microsoft},
		{"FACEBOOK", cfg.Facebook},
	}

	configured := 0
	for _, p := range providers {
		prefix := EnvPrefix + p.name
		switch {
		case p.creds.partial() && p.creds.ClientID == "":
			result.addError(prefix+"_CLIENT_ID", "client secret is set but client id is missing")
		case p.creds.partial():
			result.addError(prefix+"_CLIENT_SECRET", "client id is set but client secret is missing")
		case p.creds.Configured():
			configured++
		}
		for _, endpoint := range []struct{ name, value string }{
			{"_AUTH_URL", p.creds.AuthURL},
			{"_TOKEN_URL", p.creds.TokenURL},
			{"_USERINFO_URL", p.creds.UserInfoURL},
		} {
			if endpoint.value != "" && !isAbsoluteHTTPURL(endpoint.value) {
				result.addError(prefix+endpoint.name, "must be an absolute http(s) URL")
			}
		}
	}
	if cfg.Google.Tenant != "" || cfg.Facebook.Tenant != "" {
		result.addWarning("", "tenant is only used by the microsoft provider")
	}

	if configured == 0 {
		result.addError("", "at least one identity provider (google, microsoft, facebook) must be configured")
	}
}

func validateURLs(cfg *Config, result *ValidationResult) {
	if cfg.BaseURL == "" {
		result.addWarning(EnvPrefix+"BASE_URL",
			"not set: redirect URIs are derived per request from X-Forwarded-Host/X-Forwarded-Proto")
	} else if !isAbsoluteHTTPURL(cfg.BaseURL) {
		result.addError(EnvPrefix+"BASE_URL", "must be an absolute http(s) URL")
	} else if u, _ := url.Parse(cfg.BaseURL); u.Path != "" {
		result.addWarning(EnvPrefix+"BASE_URL", "path %q is kept as a prefix of every redirect URI", u.Path)
	}

	if cfg.ErrorPage == "" {
		result.addError(EnvPrefix+"ERROR_PAGE", "error page is required")
	} else if !strings.HasPrefix(cfg.ErrorPage, "/") && !isAbsoluteHTTPURL(cfg.ErrorPage) {
		result.addError(EnvPrefix+"ERROR_PAGE", "must be an absolute path or an absolute http(s) URL")
	}
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
