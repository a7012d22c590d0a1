// Package handlers contains the HTTP handlers for the corporate billing
// API: the upgrade endpoints, the sponsorship endpoint, and login.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"corporate/internal/billing"
	"corporate/internal/config"
	"corporate/internal/core"
	"corporate/internal/types"
)

// --- Service interfaces ---
//
// Contracts are defined locally and implementations injected via the
// constructor, so tests can supply fakes without touching the database.

// OrgReader provides the organization lookups the handlers need.
type OrgReader interface {
	GetByID(ctx context.Context, id string) (*types.Organization, error)
}

// UserReader provides user lookup and the seat-count query.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
	CountBillableUsers(ctx context.Context, orgID string) (int, error)
}

// CustomerReader provides customer and plan lookups for the render path.
type CustomerReader interface {
	GetByOrganization(ctx context.Context, orgID string) (*types.Customer, error)
	GetCurrentPlan(ctx context.Context, customerID string) (*types.CustomerPlan, error)
}

// SeatCountSigner produces the signed seat-count token for the render path.
type SeatCountSigner interface {
	Sign(value int) (signed string, salt string, err error)
}

// UpgradeSession coordinates one upgrade call. Implemented by
// billing.Session.
type UpgradeSession interface {
	DoUpgrade(ctx context.Context, org *types.Organization, user *types.User, req *billing.UpgradeRequest) (map[string]any, error)
}

// SponsorshipSubmitter executes the atomic sponsorship workflow.
// Implemented by billing.Workflow.
type SponsorshipSubmitter interface {
	Submit(ctx context.Context, org *types.Organization, requester *types.User, values url.Values) error
}

// --- Handler ---

// BillingHandler serves the upgrade and sponsorship endpoints.
type BillingHandler struct {
	session     UpgradeSession
	sponsorship SponsorshipSubmitter
	signer      SeatCountSigner
	orgs        OrgReader
	users       UserReader
	customers   CustomerReader
	cfg         *config.Config
	logger      *slog.Logger
}

// NewBillingHandler creates a BillingHandler with the given dependencies.
func NewBillingHandler(
	session UpgradeSession,
	sponsorship SponsorshipSubmitter,
	signer SeatCountSigner,
	orgs OrgReader,
	users UserReader,
	customers CustomerReader,
	cfg *config.Config,
	logger *slog.Logger,
) *BillingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingHandler{
		session:     session,
		sponsorship: sponsorship,
		signer:      signer,
		orgs:        orgs,
		users:       users,
		customers:   customers,
		cfg:         cfg,
		logger:      logger,
	}
}

// RegisterRoutes mounts the billing endpoints.
func (h *BillingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/billing/upgrade", h.InitialUpgrade)
	r.Group(func(r chi.Router) {
		r.Use(core.RequireOrganizationMember)
		r.Post("/billing/upgrade", h.Upgrade)
		r.Post("/billing/sponsorship", h.Sponsorship)
	})
}

// Upgrade handles POST /v1/billing/upgrade.
//
// The raw parameters are constrained to their enumerations, the seat-count
// token is verified, and the resulting intent is handed to the billing
// back-end. The back-end's payload is returned to the caller unchanged.
func (h *BillingHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	actor, _ := types.GetActor(r.Context())

	if err := r.ParseForm(); err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationFormInvalid,
			"malformed form body",
			err,
		))
		return
	}

	req, err := billing.ParseUpgradeRequest(r.Form)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	org, user, appErr := h.loadActorRecords(r.Context(), actor)
	if appErr != nil {
		core.Error(w, r, appErr)
		return
	}

	data, err := h.session.DoUpgrade(r.Context(), org, user, req)
	if err != nil {
		h.renderUpgradeError(w, r, err, org, user, req)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: data})
}

// renderUpgradeError is the outermost classification boundary for the
// upgrade path. Expected billing errors are logged at warning level with
// full request context and surfaced verbatim; anything else is logged with
// its failure detail and converted into a generic contact-support error
// that exposes nothing about the original cause.
func (h *BillingHandler) renderUpgradeError(w http.ResponseWriter, r *http.Request, err error, org *types.Organization, user *types.User, req *billing.UpgradeRequest) {
	var be *billing.Error
	if errors.As(err, &be) {
		h.logger.Warn("billing error during upgrade",
			"description", be.Description,
			"user_id", user.ID,
			"organization_id", org.ID,
			"organization", org.StringID,
			"billing_modality", string(req.BillingModality),
			"schedule", string(req.Schedule),
			"license_management", string(req.LicenseManagement),
			"licenses", intOrNil(req.Licenses),
		)
		core.Error(w, r, types.NewAppError(types.ErrCodeBillingError, be.Message, be))
		return
	}

	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Code == types.ErrCodeBillingError {
		// Seat-count verification failures arrive pre-classified.
		h.logger.Warn("billing error during upgrade",
			"description", appErr.Message,
			"user_id", user.ID,
			"organization_id", org.ID,
			"organization", org.StringID,
			"billing_modality", string(req.BillingModality),
			"schedule", string(req.Schedule),
		)
		core.Error(w, r, appErr)
		return
	}

	h.logger.Error("uncaught exception in billing",
		"user_id", user.ID,
		"organization_id", org.ID,
		"error", err,
	)
	support := billing.ContactSupportError(h.cfg.Billing.SupportEmail)
	core.Error(w, r, types.NewAppError(types.ErrCodeBillingContactSupport, support.Message, err))
}

// InitialUpgrade handles GET /v1/billing/upgrade, the render path.
//
// Returns 404 when billing is disabled or the caller is a guest. Redirects
// to the sponsorship page when sponsorship is pending or the org is on the
// free standard plan, and to the billing home page when a plan already
// exists or onboarding is set. Otherwise returns the page data, including
// a freshly signed seat-count token.
func (h *BillingHandler) InitialUpgrade(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	if !h.cfg.Billing.Enabled || actor.IsGuest {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundPage, "page not found", nil))
		return
	}

	onboarding := r.URL.Query().Get("onboarding") == "true"
	manualLicenseManagement := r.URL.Query().Get("manual_license_management") == "true"

	org, err := h.orgs.GetByID(r.Context(), actor.OrganizationID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	customer, err := h.customers.GetByOrganization(r.Context(), org.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if (customer != nil && customer.SponsorshipPending) || org.PlanType == types.PlanTypeStandardFree {
		h.redirect(w, r, "/billing/sponsorship")
		return
	}

	if customer != nil {
		plan, err := h.customers.GetCurrentPlan(r.Context(), customer.ID)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		if plan != nil || onboarding {
			target := "/billing"
			if onboarding {
				target += "?onboarding=true"
			}
			h.redirect(w, r, target)
			return
		}
	}

	percentOff := 0.0
	exempt := false
	if customer != nil {
		percentOff = customer.DefaultDiscount
		exempt = customer.ExemptFromLicenseNumberCheck
	}

	seatCount, err := h.users.CountBillableUsers(r.Context(), org.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	signed, salt, err := h.signer.Sign(seatCount)
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to sign seat count", err))
		return
	}

	minInvoicedLicenses := billing.MinInvoicedLicenses
	if seatCount > minInvoicedLicenses {
		minInvoicedLicenses = seatCount
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]any{
		"organization":                     org.StringID,
		"email":                            actor.Email,
		"seat_count":                       seatCount,
		"signed_seat_count":                signed,
		"salt":                             salt,
		"min_invoiced_licenses":            minInvoicedLicenses,
		"default_invoice_days_until_due":   billing.DefaultInvoiceDaysUntilDue,
		"exempt_from_license_number_check": exempt,
		"plan":                             billing.PlanName,
		"free_trial_days":                  h.cfg.Billing.FreeTrialDays,
		"onboarding":                       onboarding,
		"manual_license_management":        manualLicenseManagement,
		"annual_price":                     billing.AnnualPriceCents,
		"monthly_price":                    billing.MonthlyPriceCents,
		"percent_off":                      percentOff,
		"is_demo_organization":             org.IsDemo(),
		"demo_organization_scheduled_deletion_date": org.DemoScheduledDeletionDate,
	}})
}

// Sponsorship handles POST /v1/billing/sponsorship.
func (h *BillingHandler) Sponsorship(w http.ResponseWriter, r *http.Request) {
	actor, _ := types.GetActor(r.Context())

	if err := r.ParseForm(); err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationFormInvalid,
			"malformed form body",
			err,
		))
		return
	}

	org, user, appErr := h.loadActorRecords(r.Context(), actor)
	if appErr != nil {
		core.Error(w, r, appErr)
		return
	}

	if err := h.sponsorship.Submit(r.Context(), org, user, r.Form); err != nil {
		var be *billing.Error
		if errors.As(err, &be) {
			h.logger.Warn("billing error during sponsorship request",
				"description", be.Description,
				"user_id", user.ID,
				"organization_id", org.ID,
			)
			core.Error(w, r, types.NewAppError(types.ErrCodeBillingError, be.Message, be))
			return
		}

		var ae *types.AppError
		if errors.As(err, &ae) {
			core.Error(w, r, ae)
			return
		}

		h.logger.Error("uncaught exception in sponsorship request",
			"user_id", user.ID,
			"organization_id", org.ID,
			"error", err,
		)
		support := billing.ContactSupportError(h.cfg.Billing.SupportEmail)
		core.Error(w, r, types.NewAppError(types.ErrCodeBillingContactSupport, support.Message, err))
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{})
}

// loadActorRecords resolves the actor's organization and user rows.
func (h *BillingHandler) loadActorRecords(ctx context.Context, actor types.Actor) (*types.Organization, *types.User, *types.AppError) {
	org, err := h.orgs.GetByID(ctx, actor.OrganizationID)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return nil, nil, appErr
		}
		return nil, nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load organization", err)
	}

	user, err := h.users.GetByID(ctx, actor.UserID)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return nil, nil, appErr
		}
		return nil, nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load user", err)
	}

	return org, user, nil
}

// redirect issues a 302 to a path under the configured external URL.
func (h *BillingHandler) redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, h.cfg.Server.ExternalURL+path, http.StatusFound)
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
