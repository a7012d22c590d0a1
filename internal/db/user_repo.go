package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"corporate/internal/types"
)

// UserRepository provides data access for the users table.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a UserRepository backed by the given connection
// (pool or transaction).
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `u.id, u.organization_id, u.email, u.full_name, u.role,
	u.is_guest, u.is_billing_admin, u.is_active, u.created_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(
		&u.ID,
		&u.OrganizationID,
		&u.Email,
		&u.FullName,
		&u.Role,
		&u.IsGuest,
		&u.IsBillingAdmin,
		&u.IsActive,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = $1`,
		id,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve user", err)
	}
	return user, nil
}

// GetByEmail retrieves an active user by email, returning the stored
// password hash alongside for credential verification.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*types.User, string, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`, u.password_hash
		 FROM users u
		 WHERE u.email = $1 AND u.is_active`,
		email,
	)

	var u types.User
	var passwordHash string
	err := row.Scan(
		&u.ID,
		&u.OrganizationID,
		&u.Email,
		&u.FullName,
		&u.Role,
		&u.IsGuest,
		&u.IsBillingAdmin,
		&u.IsActive,
		&u.CreatedAt,
		&passwordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		}
		return nil, "", types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve user", err)
	}
	return &u, passwordHash, nil
}

// CountBillableUsers computes the current seat count for an organization:
// active non-guest users count one seat each, and guests count one seat
// per started group of five.
func (r *UserRepository) CountBillableUsers(ctx context.Context, orgID string) (int, error) {
	row := r.db.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE NOT u.is_guest),
		   COUNT(*) FILTER (WHERE u.is_guest)
		 FROM users u
		 WHERE u.organization_id = $1 AND u.is_active`,
		orgID,
	)

	var nonGuests, guests int
	if err := row.Scan(&nonGuests, &guests); err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count billable users", err)
	}
	return nonGuests + (guests+4)/5, nil
}

// GrantBillingAdmin marks the user as a billing administrator.
func (r *UserRepository) GrantBillingAdmin(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET is_billing_admin = TRUE, updated_at = $2 WHERE id = $1`,
		userID,
		time.Now().UTC(),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to grant billing admin", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return nil
}
