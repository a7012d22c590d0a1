package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"corporate/internal/config"
	"corporate/internal/types"
)

// Authenticator resolves a bearer token to an Actor. Injected so tests can
// supply a canned implementation.
type Authenticator interface {
	// ResolveToken returns the Actor for a session token, or an AppError
	// with an auth_* code when the token is missing from the store,
	// expired, or malformed.
	ResolveToken(ctx context.Context, token string) (*types.Actor, error)
}

// Server encapsulates the router and the cross-cutting dependencies shared
// by all handlers.
type Server struct {
	Config        *config.Config
	Logger        *slog.Logger
	Validator     *Validator
	Authenticator Authenticator

	router *chi.Mux
}

// NewServer initializes the router and validates critical configuration.
// The caller mounts domain routes afterwards via MountRoutes; the split
// lets tests register only the routes under test.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Router returns the underlying chi router as an http.Handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// RouteRegistrar registers a group of domain routes on a chi router.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// MountRoutes applies the global middleware chain and mounts the health
// check plus every provided domain registrar under /v1.
//
// Middleware ordering: Recoverer is outermost so it catches everything;
// RequestID runs before the logger so log lines carry the correlation ID;
// Auth runs last so downstream handlers can rely on the Actor in context.
func (s *Server) MountRoutes(registrars ...RouteRegistrar) {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger))
	s.router.Use(s.AuthMiddleware)

	s.router.Get("/health", s.HandleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		for _, reg := range registrars {
			reg.RegisterRoutes(r)
		}
	})
}

// HandleHealth reports process liveness. Registered outside /v1 and exempt
// from authentication.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]string{
		"status":  "ok",
		"service": s.Config.Service,
	}})
}
