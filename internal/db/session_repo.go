package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"corporate/internal/types"
)

// Session is a stored login session. Only the SHA-256 hash of the token is
// persisted; the raw token exists solely in the client's hands.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionRepository provides data access for the sessions table.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a SessionRepository backed by the given
// connection (pool or transaction).
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, s *Session) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`,
		s.ID,
		s.UserID,
		s.TokenHash,
		s.ExpiresAt,
		nilIfZeroTime(s.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create session", err)
	}
	return nil
}

// GetByTokenHash returns the session matching the given token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	row := r.db.QueryRow(ctx,
		`SELECT s.id, s.user_id, s.token_hash, s.expires_at, s.created_at
		 FROM sessions s
		 WHERE s.token_hash = $1`,
		tokenHash,
	)

	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid session token", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve session", err)
	}
	return &s, nil
}
