package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"corporate/internal/types"
)

// OrganizationRepository provides data access for the organizations table.
type OrganizationRepository struct {
	db DBTX
}

// NewOrganizationRepository creates an OrganizationRepository backed by the
// given connection (pool or transaction).
func NewOrganizationRepository(db DBTX) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// orgColumns is the standard column set for organization queries, kept in
// one place so the scan order cannot drift.
const orgColumns = `o.id, o.string_id, o.name, o.org_type, o.plan_type,
	o.demo_scheduled_deletion_date, o.created_at, o.updated_at`

func scanOrg(row pgx.Row) (*types.Organization, error) {
	var org types.Organization
	err := row.Scan(
		&org.ID,
		&org.StringID,
		&org.Name,
		&org.OrgType,
		&org.PlanType,
		&org.DemoScheduledDeletionDate,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByID retrieves an organization by its ID.
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*types.Organization, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations o WHERE o.id = $1`,
		id,
	)

	org, err := scanOrg(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundOrg, "organization not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve organization", err)
	}
	return org, nil
}

// UpdateOrgType issues a single targeted write to the org_type column.
// Callers are expected to skip the call when the value is unchanged so the
// updated_at marker only moves on real mutations.
func (r *OrganizationRepository) UpdateOrgType(ctx context.Context, id string, orgType types.OrgType) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE organizations SET org_type = $1, updated_at = NOW() WHERE id = $2`,
		orgType,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update organization type", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundOrg, "organization not found", nil)
	}
	return nil
}
