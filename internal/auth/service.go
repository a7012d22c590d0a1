// Package auth implements session-based authentication: credential
// verification at login and token resolution for the request middleware.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"corporate/internal/db"
	"corporate/internal/types"
)

// sessionTTL is the lifetime of a login session.
const sessionTTL = 14 * 24 * time.Hour

// sessionTokenBytes is the number of random bytes in a session token
// (64 hex chars on the wire).
const sessionTokenBytes = 32

// UserStore is the user data access the service needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, string, error)
}

// SessionStore is the session data access the service needs.
type SessionStore interface {
	Create(ctx context.Context, s *db.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*db.Session, error)
}

// Service verifies credentials and resolves session tokens to Actors.
type Service struct {
	users    UserStore
	sessions SessionStore
	logger   *slog.Logger
}

// NewService creates an auth Service.
func NewService(users UserStore, sessions SessionStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, sessions: sessions, logger: logger}
}

// Login verifies the email/password pair and creates a session, returning
// the raw token for the client. Credential failures are indistinguishable
// from unknown accounts.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	invalidCreds := types.NewAppError(
		types.ErrCodeAuthInvalidCreds,
		"Invalid email or password",
		nil,
	)

	user, passwordHash, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", invalidCreds
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return "", invalidCreds
	}

	token, err := generateToken()
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create session", err)
	}

	session := &db.Session{
		ID:        "sess_" + uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().UTC().Add(sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}

	return token, nil
}

// ResolveToken maps a raw session token to the live Actor, re-reading the
// user row on every request so role changes take effect immediately.
func (s *Service) ResolveToken(ctx context.Context, token string) (*types.Actor, error) {
	session, err := s.sessions.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}

	if time.Now().UTC().After(session.ExpiresAt) {
		return nil, types.NewAppError(types.ErrCodeAuthTokenExpired, "session has expired", nil)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid session token", err)
	}
	if !user.IsActive {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid session token", nil)
	}

	return &types.Actor{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Email:          user.Email,
		FullName:       user.FullName,
		Role:           user.Role,
		IsGuest:        user.IsGuest,
	}, nil
}

// generateToken creates a cryptographically random session token.
func generateToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand read failed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// hashToken computes the storage form of a session token.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
