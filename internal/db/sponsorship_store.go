package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"corporate/internal/billing"
	"corporate/internal/types"
)

// SponsorshipStore implements billing.SponsorshipDB on top of a pgx pool.
// Each BeginTx opens one database transaction; every repository method on
// the returned handle runs against that transaction, giving the workflow
// its all-or-nothing semantics.
type SponsorshipStore struct {
	pool *pgxpool.Pool
}

// NewSponsorshipStore creates a SponsorshipStore.
func NewSponsorshipStore(pool *pgxpool.Pool) *SponsorshipStore {
	return &SponsorshipStore{pool: pool}
}

// Compile-time interface assertion.
var _ billing.SponsorshipDB = (*SponsorshipStore)(nil)

// BeginTx starts a transaction and returns the transactional unit of work.
func (s *SponsorshipStore) BeginTx(ctx context.Context) (billing.SponsorshipTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to begin transaction", err)
	}
	return &sponsorshipTx{
		tx:           tx,
		sponsorships: NewSponsorshipRepository(tx),
		orgs:         NewOrganizationRepository(tx),
		customers:    NewCustomerRepository(tx),
		users:        NewUserRepository(tx),
	}, nil
}

// sponsorshipTx binds the tx-scoped repositories to one pgx transaction.
type sponsorshipTx struct {
	tx           pgx.Tx
	sponsorships *SponsorshipRepository
	orgs         *OrganizationRepository
	customers    *CustomerRepository
	users        *UserRepository
}

func (t *sponsorshipTx) CreateSponsorshipRequest(ctx context.Context, req *types.SponsorshipRequest) error {
	return t.sponsorships.Create(ctx, req)
}

func (t *sponsorshipTx) UpdateOrgType(ctx context.Context, orgID string, orgType types.OrgType) error {
	return t.orgs.UpdateOrgType(ctx, orgID, orgType)
}

func (t *sponsorshipTx) SetSponsorshipPending(ctx context.Context, orgID string, pending bool) error {
	return t.customers.SetSponsorshipPending(ctx, orgID, pending)
}

func (t *sponsorshipTx) GrantBillingAdmin(ctx context.Context, userID string) error {
	return t.users.GrantBillingAdmin(ctx, userID)
}

func (t *sponsorshipTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to commit transaction", err)
	}
	return nil
}

func (t *sponsorshipTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
