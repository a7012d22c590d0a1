package billing

import (
	"context"
	"fmt"
	"log/slog"

	"corporate/internal/types"
)

// SeatCountVerifier checks the signed seat-count token echoed back by the
// client. Implemented by signing.Signer.
type SeatCountVerifier interface {
	Verify(signed string, salt string) (int, error)
}

// Backend is the external billing back-end's upgrade entry point. It owns
// the payment-provider interaction and the plan-state transition; this core
// only guarantees that the intent handed over is well-formed and
// tamper-checked.
//
// The back-end's serialization guarantee for concurrent upgrades of the
// same organization is not assumed here; callers get whatever ordering the
// back-end provides.
type Backend interface {
	// DoUpgrade executes the upgrade and returns the provider's structured
	// result payload, which is passed to the caller unmodified. Business
	// rejections are returned as *billing.Error.
	DoUpgrade(ctx context.Context, org *types.Organization, user *types.User, intent UpgradeIntent) (map[string]any, error)
}

// CustomerReader provides the customer record for validation thresholds and
// render context. Never mutated through this interface.
type CustomerReader interface {
	// GetByOrganization returns the customer for the org, or nil when the
	// org has never touched billing.
	GetByOrganization(ctx context.Context, orgID string) (*types.Customer, error)
}

// Session coordinates one user's upgrade: it verifies the seat-count token,
// infers and constrains the license fields, builds the canonical intent,
// and delegates to the back-end.
type Session struct {
	verifier  SeatCountVerifier
	backend   Backend
	customers CustomerReader
	logger    *slog.Logger
}

// NewSession creates an upgrade Session.
func NewSession(verifier SeatCountVerifier, backend Backend, customers CustomerReader, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		verifier:  verifier,
		backend:   backend,
		customers: customers,
		logger:    logger,
	}
}

// DoUpgrade validates the request against the organization's state and
// executes it through the back-end. The caller has already passed the
// organization-member gate.
func (s *Session) DoUpgrade(ctx context.Context, org *types.Organization, user *types.User, req *UpgradeRequest) (map[string]any, error) {
	seatCount, err := s.verifier.Verify(req.SignedSeatCount, req.Salt)
	if err != nil {
		return nil, err
	}

	// When license_management was not supplied, an explicit license count
	// means the user chose manual management; otherwise licenses track the
	// seat count automatically.
	management := req.LicenseManagement
	if management == "" {
		if req.Licenses != nil {
			management = LicenseManual
		} else {
			management = LicenseAutomatic
		}
	}

	if err := s.checkLicenses(ctx, org, req, management, seatCount); err != nil {
		return nil, err
	}

	intent := UpgradeIntent{
		BillingModality:   req.BillingModality,
		Schedule:          req.Schedule,
		SeatCount:         seatCount,
		Onboarding:        req.Onboarding,
		LicenseManagement: management,
		Licenses:          req.Licenses,
	}

	return s.backend.DoUpgrade(ctx, org, user, intent)
}

// checkLicenses enforces the shape invariants on the license fields:
// manual management requires an explicit count covering the verified seat
// count (unless the customer is exempt), and invoiced billing additionally
// requires the invoiced minimum.
func (s *Session) checkLicenses(ctx context.Context, org *types.Organization, req *UpgradeRequest, management LicenseManagement, seatCount int) error {
	if management == LicenseAutomatic && req.BillingModality != ModalitySendInvoice {
		return nil
	}

	if req.Licenses == nil {
		return NewError(
			"licenses not provided",
			"You must provide the number of licenses for your organization.",
		)
	}

	customer, err := s.customers.GetByOrganization(ctx, org.ID)
	if err != nil {
		return err
	}
	exempt := customer != nil && customer.ExemptFromLicenseNumberCheck

	minLicenses := seatCount
	if req.BillingModality == ModalitySendInvoice && minLicenses < MinInvoicedLicenses {
		minLicenses = MinInvoicedLicenses
	}

	if !exempt && *req.Licenses < minLicenses {
		return NewError(
			"not enough licenses",
			fmt.Sprintf("You must purchase licenses for all active users in your organization (minimum %d).", minLicenses),
		)
	}

	return nil
}
