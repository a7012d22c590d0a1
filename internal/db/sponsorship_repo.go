package db

import (
	"context"

	"corporate/internal/types"
)

// SponsorshipRepository provides data access for the sponsorship_requests
// table. Rows are insert-only; there is no update or delete path.
type SponsorshipRepository struct {
	db DBTX
}

// NewSponsorshipRepository creates a SponsorshipRepository backed by the
// given connection (pool or transaction).
func NewSponsorshipRepository(db DBTX) *SponsorshipRepository {
	return &SponsorshipRepository{db: db}
}

// Create inserts a new sponsorship request row.
func (r *SponsorshipRepository) Create(ctx context.Context, req *types.SponsorshipRequest) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sponsorship_requests
		 (id, organization_id, requested_by_id, org_website, org_type,
		  org_description, expected_total_users, paid_users_count,
		  paid_users_description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))`,
		req.ID,
		req.OrganizationID,
		req.RequestedByID,
		req.OrgWebsite,
		req.OrgType,
		req.OrgDescription,
		req.ExpectedTotalUsers,
		req.PaidUsersCount,
		req.PaidUsersDescription,
		nilIfZeroTime(req.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create sponsorship request", err)
	}
	return nil
}
