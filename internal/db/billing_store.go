package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"corporate/internal/types"
)

// BillingStore is the persistence used by the Stripe back-end: provider
// customer IDs and the plan-state transition after a successful upgrade.
// It satisfies external.BackendStore.
type BillingStore struct {
	pool *pgxpool.Pool
}

// NewBillingStore creates a BillingStore.
func NewBillingStore(pool *pgxpool.Pool) *BillingStore {
	return &BillingStore{pool: pool}
}

// GetStripeCustomerID returns the provider customer ID for the org, or ""
// when the org has no customer record or no provider ID yet.
func (s *BillingStore) GetStripeCustomerID(ctx context.Context, orgID string) (string, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT COALESCE(c.stripe_customer_id, '')
		 FROM customers c
		 WHERE c.organization_id = $1`,
		orgID,
	)

	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve stripe customer id", err)
	}
	return id, nil
}

// SetStripeCustomerID persists the provider customer ID, creating the
// customer record on first use.
func (s *BillingStore) SetStripeCustomerID(ctx context.Context, orgID string, customerID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO customers (id, organization_id, stripe_customer_id, created_at)
		 VALUES ('cust_' || $2, $1, $2, NOW())
		 ON CONFLICT (organization_id)
		 DO UPDATE SET stripe_customer_id = EXCLUDED.stripe_customer_id`,
		orgID,
		customerID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to store stripe customer id", err)
	}
	return nil
}

// RecordPlanUpgrade inserts the plan row and moves the organization onto
// the standard plan in one transaction.
func (s *BillingStore) RecordPlanUpgrade(ctx context.Context, orgID string, plan *types.CustomerPlan) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO customer_plans (id, customer_id, name, status, created_at)
		 VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`,
		plan.ID,
		plan.CustomerID,
		plan.Name,
		plan.Status,
		nilIfZeroTime(plan.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record plan", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE organizations SET plan_type = $1, updated_at = NOW() WHERE id = $2`,
		types.PlanTypeStandard,
		orgID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update plan type", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to commit plan upgrade", err)
	}
	return nil
}
