package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgellow/authgate/internal/apitoken"
	"github.com/dgellow/authgate/internal/browserauth"
	"github.com/dgellow/authgate/internal/config"
	"github.com/dgellow/authgate/internal/crypto"
	"github.com/dgellow/authgate/internal/idp"
	"github.com/dgellow/authgate/internal/log"
	"github.com/dgellow/authgate/internal/server"
	"github.com/dgellow/authgate/internal/session"
)

const shutdownTimeout = 30 * time.Second

// AuthGate is the assembled application: identity providers, cookie stores,
// token issuer and the HTTP server in front of them.
type AuthGate struct {
	config     config.Config
	registry   *idp.Registry
	verifier   *apitoken.Verifier
	handler    http.Handler
	httpServer *server.HTTPServer
}

// New builds every component from cfg. The config is expected to have passed validation.
func New(cfg config.Config) (*AuthGate, error) {
	registry, err := idp.NewRegistry(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup identity providers: %w", err)
	}

	password := []byte(cfg.Session.Password.Reveal())
	sessionSealer, err := crypto.NewSealer(password, session.SealPurpose, cfg.Session.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session sealer: %w", err)
	}
	pendingSealer, err := crypto.NewSealer(password, browserauth.SealPurpose, cfg.PendingTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending login sealer: %w", err)
	}

	tokenCfg := apitoken.FromConfig(cfg.Token)
	issuer, err := apitoken.NewIssuer(tokenCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	verifier, err := apitoken.NewVerifier(tokenCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	secure := cfg.SecureCookies()
	handlers := server.NewAuthHandlers(server.AuthDeps{
		Registry:        registry,
		Pending:         browserauth.NewPendingStore(pendingSealer, secure),
		Sessions:        session.NewStore(sessionSealer, cfg.Session.CookieName, secure),
		Issuer:          issuer,
		Metrics:         server.NewMetrics(),
		ErrorPage:       cfg.ErrorPage,
		AdminEmails:     cfg.AdminEmails,
		ProviderTimeout: cfg.ProviderTimeout,
	})
	handler := server.NewRouter(handlers, verifier)

	providers := make([]string, 0, len(registry.Configured()))
	for _, p := range registry.Configured() {
		providers = append(providers, p.String())
	}
	log.LogInfoWithFields("authgate", "Application built", map[string]any{
		"addr":           cfg.Addr,
		"base_url":       cfg.BaseURL,
		"providers":      providers,
		"secure_cookies": secure,
		"admins":         len(cfg.AdminEmails),
	})

	return &AuthGate{
		config:     cfg,
		registry:   registry,
		verifier:   verifier,
		handler:    handler,
		httpServer: server.NewHTTPServer(handler, cfg.Addr, cfg.ProviderTimeout),
	}, nil
}

// Handler is the fully wired router, usable without a listening server
func (a *AuthGate) Handler() http.Handler {
	return a.handler
}

// Verifier checks the assertion tokens this instance issues
func (a *AuthGate) Verifier() *apitoken.Verifier {
	return a.verifier
}

// Run serves until ctx is cancelled or the server fails, then shuts down gracefully.
// A cancelled ctx is a clean exit.
func (a *AuthGate) Run(ctx context.Context) error {
	log.LogInfoWithFields("authgate", "Starting authgate", map[string]any{
		"addr": a.httpServer.Addr(),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		reason := "context cancelled"
		if cause := context.Cause(gctx); cause != nil && !errors.Is(cause, context.Canceled) {
			reason = cause.Error()
		}
		log.LogInfoWithFields("authgate", "Starting graceful shutdown", map[string]any{
			"reason":  reason,
			"timeout": shutdownTimeout.String(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.httpServer.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.LogErrorWithFields("authgate", "Shutdown with error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	log.LogInfoWithFields("authgate", "Application shutdown complete", nil)
	return nil
}
