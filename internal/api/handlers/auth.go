package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"corporate/internal/core"
	"corporate/internal/types"
)

// LoginService verifies credentials and issues session tokens.
// Implemented by auth.Service.
type LoginService interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// loginRequest is the JSON body for POST /v1/auth/login.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthHandler serves the login endpoint.
type AuthHandler struct {
	service   LoginService
	validator *core.Validator
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(service LoginService, validator *core.Validator, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{service: service, validator: validator, logger: logger}
}

// RegisterRoutes mounts the auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

// Login handles POST /v1/auth/login. On success the response carries the
// raw session token; the server stores only its hash.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationFormInvalid,
			"malformed request body",
			err,
		))
		return
	}

	if appErr := h.validator.ValidateStruct(req); appErr != nil {
		core.Error(w, r, appErr)
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]any{
		"token": token,
	}})
}
