// Command api runs the corporate billing HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"corporate/internal/api/handlers"
	"corporate/internal/auth"
	"corporate/internal/billing"
	"corporate/internal/config"
	"corporate/internal/core"
	"corporate/internal/db"
	"corporate/internal/external"
	"corporate/internal/notifications/email"
	"corporate/internal/signing"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	// Repositories.
	orgs := db.NewOrganizationRepository(pool)
	users := db.NewUserRepository(pool)
	customers := db.NewCustomerRepository(pool)
	sessions := db.NewSessionRepository(pool)

	// Auth.
	authService := auth.NewService(users, sessions, logger)

	// Outbound email.
	sesClient, err := external.NewSESClient(ctx, cfg.Email.Region, logger)
	if err != nil {
		return fmt.Errorf("creating ses client: %w", err)
	}
	mailer := email.NewSponsorshipMailer(
		sesClient,
		cfg.Email.FromAddress,
		cfg.Email.FromName,
		cfg.Billing.SupportEmail,
		logger,
	)

	// Billing.
	signer := signing.NewSigner(cfg.Billing.SigningSecret)
	stripeBackend := external.NewStripeBackend(
		&http.Client{Timeout: 30 * time.Second},
		db.NewBillingStore(pool),
		external.StripeBackendConfig{
			SecretKey: cfg.Billing.StripeSecretKey,
			Logger:    logger,
		},
	)
	session := billing.NewSession(signer, stripeBackend, customers, logger)

	server, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	server.Authenticator = authService

	workflow := billing.NewWorkflow(
		db.NewSponsorshipStore(pool),
		server.Validator,
		mailer,
		cfg.Server.ExternalURL,
		logger,
	)

	server.MountRoutes(
		handlers.NewAuthHandler(authService, server.Validator, logger),
		handlers.NewBillingHandler(session, workflow, signer, orgs, users, customers, cfg, logger),
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", httpServer.Addr,
			"environment", cfg.Environment,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Environment == "local" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("service", cfg.Service)
}
