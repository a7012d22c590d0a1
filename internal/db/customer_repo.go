package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"corporate/internal/types"
)

// CustomerRepository provides data access for the customers and
// customer_plans tables owned by the billing back-end.
type CustomerRepository struct {
	db DBTX
}

// NewCustomerRepository creates a CustomerRepository backed by the given
// connection (pool or transaction).
func NewCustomerRepository(db DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetByOrganization returns the customer record for an organization, or
// nil when the organization has never touched billing. The nil return is
// deliberate: most render-path branches treat "no customer" as a normal
// state, not an error.
func (r *CustomerRepository) GetByOrganization(ctx context.Context, orgID string) (*types.Customer, error) {
	row := r.db.QueryRow(ctx,
		`SELECT c.id, c.organization_id, COALESCE(c.stripe_customer_id, ''),
		        c.sponsorship_pending, COALESCE(c.default_discount, 0),
		        c.exempt_from_license_number_check, c.created_at
		 FROM customers c
		 WHERE c.organization_id = $1`,
		orgID,
	)

	var c types.Customer
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.StripeCustomerID,
		&c.SponsorshipPending,
		&c.DefaultDiscount,
		&c.ExemptFromLicenseNumberCheck,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve customer", err)
	}
	return &c, nil
}

// SetSponsorshipPending flips the sponsorship-pending flag, creating the
// customer record first when the organization has none yet.
func (r *CustomerRepository) SetSponsorshipPending(ctx context.Context, orgID string, pending bool) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO customers (id, organization_id, sponsorship_pending, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (organization_id)
		 DO UPDATE SET sponsorship_pending = EXCLUDED.sponsorship_pending`,
		"cust_"+uuid.NewString(),
		orgID,
		pending,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update sponsorship status", err)
	}
	return nil
}

// GetCurrentPlan returns the customer's active plan, or nil when none
// exists.
func (r *CustomerRepository) GetCurrentPlan(ctx context.Context, customerID string) (*types.CustomerPlan, error) {
	row := r.db.QueryRow(ctx,
		`SELECT p.id, p.customer_id, p.name, p.status, p.created_at
		 FROM customer_plans p
		 WHERE p.customer_id = $1 AND p.status = 'active'
		 ORDER BY p.created_at DESC
		 LIMIT 1`,
		customerID,
	)

	var p types.CustomerPlan
	err := row.Scan(&p.ID, &p.CustomerID, &p.Name, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve current plan", err)
	}
	return &p, nil
}
