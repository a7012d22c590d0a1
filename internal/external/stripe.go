package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"corporate/internal/billing"
	"corporate/internal/types"
)

// stripeAPIBase is the default Stripe API base URL, overridable in tests.
const stripeAPIBase = "https://api.stripe.com"

// BackendStore is the minimal persistence the Stripe back-end needs: the
// customer's provider ID and the plan-state transition after a successful
// upgrade.
type BackendStore interface {
	// GetStripeCustomerID returns the provider customer ID for the org,
	// or "" when none has been created yet.
	GetStripeCustomerID(ctx context.Context, orgID string) (string, error)
	SetStripeCustomerID(ctx context.Context, orgID string, customerID string) error
	// RecordPlanUpgrade persists the new plan row and moves the
	// organization onto the standard plan, atomically.
	RecordPlanUpgrade(ctx context.Context, orgID string, plan *types.CustomerPlan) error
}

// StripeBackendConfig holds the configuration for creating a StripeBackend.
type StripeBackendConfig struct {
	SecretKey types.SecretString
	BaseURL   string // override for testing; defaults to stripeAPIBase
	Logger    *slog.Logger
}

// StripeBackend implements billing.Backend against the Stripe REST API.
// Calls go through BaseClient so they inherit the circuit breaker and
// retry behavior; stripe-go provides the response payload types.
type StripeBackend struct {
	base      *BaseClient
	secretKey types.SecretString
	baseURL   string
	store     BackendStore
	logger    *slog.Logger
}

// NewStripeBackend creates a StripeBackend.
func NewStripeBackend(httpClient *http.Client, store BackendStore, cfg StripeBackendConfig) *StripeBackend {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = stripeAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &StripeBackend{
		base:      NewBaseClient(httpClient, "stripe", DefaultRetryPolicy(), "corporate-billing/1.0"),
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		store:     store,
		logger:    logger,
	}
}

// Compile-time interface assertion.
var _ billing.Backend = (*StripeBackend)(nil)

// DoUpgrade executes the upgrade: ensure a Stripe customer exists, create
// the subscription with the selected schedule and collection method, then
// record the plan-state transition locally. The returned payload is what
// the HTTP caller receives, unmodified.
func (s *StripeBackend) DoUpgrade(ctx context.Context, org *types.Organization, user *types.User, intent billing.UpgradeIntent) (map[string]any, error) {
	customerID, err := s.ensureCustomer(ctx, org, user.Email)
	if err != nil {
		return nil, err
	}

	licenses := intent.SeatCount
	if intent.LicenseManagement == billing.LicenseManual && intent.Licenses != nil {
		licenses = *intent.Licenses
	}

	sub, err := s.createSubscription(ctx, customerID, intent, licenses)
	if err != nil {
		return nil, err
	}

	plan := &types.CustomerPlan{
		ID:         "plan_" + sub.ID,
		CustomerID: customerID,
		Name:       billing.PlanName,
		Status:     "active",
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.RecordPlanUpgrade(ctx, org.ID, plan); err != nil {
		return nil, err
	}

	return map[string]any{
		"subscription_id":    sub.ID,
		"subscription_state": string(sub.Status),
		"seat_count":         intent.SeatCount,
		"licenses":           licenses,
		"billing_modality":   string(intent.BillingModality),
		"schedule":           string(intent.Schedule),
		"onboarding":         intent.Onboarding,
	}, nil
}

// ensureCustomer returns the org's Stripe customer ID, creating the
// customer on first use and persisting the ID.
func (s *StripeBackend) ensureCustomer(ctx context.Context, org *types.Organization, email string) (string, error) {
	existing, err := s.store.GetStripeCustomerID(ctx, org.ID)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}

	form := url.Values{}
	form.Set("email", email)
	form.Set("description", org.StringID)
	form.Set("metadata[organization_id]", org.ID)

	var customer stripe.Customer
	if err := s.post(ctx, "/v1/customers", form, &customer); err != nil {
		return "", err
	}

	if err := s.store.SetStripeCustomerID(ctx, org.ID, customer.ID); err != nil {
		return "", err
	}
	return customer.ID, nil
}

// createSubscription creates the Stripe subscription for the intent.
func (s *StripeBackend) createSubscription(ctx context.Context, customerID string, intent billing.UpgradeIntent, licenses int) (*stripe.Subscription, error) {
	interval := "month"
	unitAmount := billing.MonthlyPriceCents
	if intent.Schedule == billing.ScheduleAnnual {
		interval = "year"
		unitAmount = billing.AnnualPriceCents
	}

	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("items[0][price_data][currency]", "usd")
	form.Set("items[0][price_data][product_data][name]", billing.PlanName)
	form.Set("items[0][price_data][recurring][interval]", interval)
	form.Set("items[0][price_data][unit_amount]", strconv.Itoa(unitAmount))
	form.Set("items[0][quantity]", strconv.Itoa(licenses))

	if intent.BillingModality == billing.ModalitySendInvoice {
		form.Set("collection_method", "send_invoice")
		form.Set("days_until_due", strconv.Itoa(billing.DefaultInvoiceDaysUntilDue))
	} else {
		form.Set("collection_method", "charge_automatically")
	}

	var sub stripe.Subscription
	if err := s.post(ctx, "/v1/subscriptions", form, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// post sends one form-encoded request to the Stripe API and decodes the
// JSON response into out. Provider-side rejections (4xx) surface as
// expected billing errors carrying Stripe's user-facing message.
func (s *StripeBackend) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build stripe request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey.Unmask())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamStripe, "failed to read stripe response", err)
	}

	if resp.StatusCode >= 400 {
		return s.mapStripeError(path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamStripe, "failed to decode stripe response", err)
	}
	return nil
}

// mapStripeError converts a Stripe 4xx into an expected billing error.
func (s *StripeBackend) mapStripeError(path string, status int, body []byte) error {
	var payload struct {
		Error *stripe.Error `json:"error"`
	}
	message := "Your payment could not be processed."
	code := ""
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != nil {
		if payload.Error.Msg != "" {
			message = payload.Error.Msg
		}
		code = string(payload.Error.Code)
	}

	s.logger.Warn("stripe request rejected",
		"path", path,
		"status", status,
		"stripe_code", code,
	)

	return billing.NewError(fmt.Sprintf("stripe rejected request (%s)", code), message)
}
