package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dgellow/authgate/internal/emailutil"
)

// EnvPrefix is prepended to every variable name read by Load.
const EnvPrefix = "AUTHGATE_"

// Load reads an optional dotenv file, parses the process environment and validates the result.
// The returned ValidationResult carries warnings even when err is nil; the caller decides
// how to surface them.
func Load(envFile string) (Config, *ValidationResult, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}
	return load(env.Options{Prefix: EnvPrefix})
}

// Parse builds a Config from an explicit variable map instead of the process environment.
func Parse(environ map[string]string) (Config, *ValidationResult, error) {
	return load(env.Options{Prefix: EnvPrefix, Environment: environ})
}

func load(opts env.Options) (Config, *ValidationResult, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, nil, fmt.Errorf("parsing environment: %w", err)
	}
	normalize(&cfg)

	result := Validate(&cfg)
	if !result.IsValid() {
		return Config{}, result, result.Err()
	}
	return cfg, result, nil
}

func normalize(cfg *Config) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	admins := make([]string, 0, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		if normalized := emailutil.Normalize(email); normalized != "" {
			admins = append(admins, normalized)
		}
	}
	cfg.AdminEmails = admins
}
