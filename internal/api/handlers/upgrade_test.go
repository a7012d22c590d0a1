package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corporate/internal/billing"
	"corporate/internal/config"
	"corporate/internal/types"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type mockUpgradeSession struct {
	doUpgradeFn func(ctx context.Context, org *types.Organization, user *types.User, req *billing.UpgradeRequest) (map[string]any, error)
}

func (m *mockUpgradeSession) DoUpgrade(ctx context.Context, org *types.Organization, user *types.User, req *billing.UpgradeRequest) (map[string]any, error) {
	if m.doUpgradeFn != nil {
		return m.doUpgradeFn(ctx, org, user, req)
	}
	return map[string]any{"subscription_id": "sub_test"}, nil
}

type mockSponsorship struct {
	submitFn func(ctx context.Context, org *types.Organization, requester *types.User, values url.Values) error
}

func (m *mockSponsorship) Submit(ctx context.Context, org *types.Organization, requester *types.User, values url.Values) error {
	if m.submitFn != nil {
		return m.submitFn(ctx, org, requester, values)
	}
	return nil
}

type mockSigner struct{}

func (mockSigner) Sign(value int) (string, string, error) {
	return "signed_token", "test_salt", nil
}

type mockOrgs struct {
	org *types.Organization
}

func (m *mockOrgs) GetByID(ctx context.Context, id string) (*types.Organization, error) {
	if m.org == nil {
		return nil, types.NewAppError(types.ErrCodeNotFoundOrg, "organization not found", nil)
	}
	return m.org, nil
}

type mockUsers struct {
	user      *types.User
	seatCount int
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*types.User, error) {
	if m.user == nil {
		return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return m.user, nil
}

func (m *mockUsers) CountBillableUsers(ctx context.Context, orgID string) (int, error) {
	return m.seatCount, nil
}

type mockCustomers struct {
	customer *types.Customer
	plan     *types.CustomerPlan
}

func (m *mockCustomers) GetByOrganization(ctx context.Context, orgID string) (*types.Customer, error) {
	return m.customer, nil
}

func (m *mockCustomers) GetCurrentPlan(ctx context.Context, customerID string) (*types.CustomerPlan, error) {
	return m.plan, nil
}

// =============================================================================
// Fixtures
// =============================================================================

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.ExternalURL = "https://app.example.com"
	cfg.Billing.Enabled = true
	cfg.Billing.SupportEmail = "support@example.com"
	cfg.Billing.FreeTrialDays = 0
	return cfg
}

func handlerFixture(cfg *config.Config) (*BillingHandler, *mockUpgradeSession, *mockSponsorship, *mockCustomers) {
	session := &mockUpgradeSession{}
	sponsorship := &mockSponsorship{}
	customers := &mockCustomers{}
	orgs := &mockOrgs{org: &types.Organization{
		ID:       "org_1",
		StringID: "acme",
		Name:     "Acme Corp",
		OrgType:  types.OrgTypeBusiness,
		PlanType: types.PlanTypeLimited,
	}}
	users := &mockUsers{
		user: &types.User{
			ID:             "user_1",
			OrganizationID: "org_1",
			Email:          "owner@acme.example",
			FullName:       "Ada Lovelace",
			Role:           types.RoleOwner,
			IsActive:       true,
		},
		seatCount: 7,
	}

	h := NewBillingHandler(session, sponsorship, mockSigner{}, orgs, users, customers, cfg, nil)
	return h, session, sponsorship, customers
}

func contextWithActor(isGuest bool) context.Context {
	return types.WithActor(context.Background(), types.Actor{
		UserID:         "user_1",
		OrganizationID: "org_1",
		Email:          "owner@acme.example",
		FullName:       "Ada Lovelace",
		Role:           types.RoleOwner,
		IsGuest:        isGuest,
	})
}

func postForm(path string, form url.Values, ctx context.Context) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code, body.Error.Message
}

func upgradeForm() url.Values {
	return url.Values{
		"billing_modality":  {"charge_automatically"},
		"schedule":          {"monthly"},
		"signed_seat_count": {"signed_token"},
		"salt":              {"test_salt"},
	}
}

// =============================================================================
// POST /v1/billing/upgrade
// =============================================================================

func TestUpgrade_Success(t *testing.T) {
	h, session, _, _ := handlerFixture(testConfig())

	var gotReq *billing.UpgradeRequest
	session.doUpgradeFn = func(ctx context.Context, org *types.Organization, user *types.User, req *billing.UpgradeRequest) (map[string]any, error) {
		gotReq = req
		assert.Equal(t, "org_1", org.ID)
		assert.Equal(t, "user_1", user.ID)
		return map[string]any{"subscription_id": "sub_123", "seat_count": float64(7)}, nil
	}

	rec := httptest.NewRecorder()
	h.Upgrade(rec, postForm("/v1/billing/upgrade", upgradeForm(), contextWithActor(false)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotReq)
	assert.Equal(t, billing.ModalityChargeAutomatically, gotReq.BillingModality)

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sub_123", body.Data["subscription_id"])
}

func TestUpgrade_InvalidModality(t *testing.T) {
	h, _, _, _ := handlerFixture(testConfig())

	form := upgradeForm()
	form.Set("billing_modality", "carrier_pigeon")

	rec := httptest.NewRecorder()
	h.Upgrade(rec, postForm("/v1/billing/upgrade", form, contextWithActor(false)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, string(types.ErrCodeValidationInvalidModality), code)
}

func TestUpgrade_BillingErrorIsFourHundred(t *testing.T) {
	h, session, _, _ := handlerFixture(testConfig())
	session.doUpgradeFn = func(ctx context.Context, org *types.Organization, user *types.User, req *billing.UpgradeRequest) (map[string]any, error) {
		return nil, billing.NewError("not enough licenses", "You must purchase licenses for all active users in your organization (minimum 7).")
	}

	rec := httptest.NewRecorder()
	h.Upgrade(rec, postForm("/v1/billing/upgrade", upgradeForm(), contextWithActor(false)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	code, message := decodeError(t, rec)
	assert.Equal(t, string(types.ErrCodeBillingError), code)
	assert.Contains(t, message, "minimum 7")
	// The internal description never reaches the client.
	assert.NotContains(t, rec.Body.String(), "not enough licenses")
}

func TestUpgrade_UnexpectedErrorBecomesContactSupport(t *testing.T) {
	h, session, _, _ := handlerFixture(testConfig())
	session.doUpgradeFn = func(ctx context.Context, org *types.Organization, user *types.User, req *billing.UpgradeRequest) (map[string]any, error) {
		return nil, errors.New("pq: deadlock detected")
	}

	rec := httptest.NewRecorder()
	h.Upgrade(rec, postForm("/v1/billing/upgrade", upgradeForm(), contextWithActor(false)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	code, message := decodeError(t, rec)
	assert.Equal(t, string(types.ErrCodeBillingContactSupport), code)
	assert.Equal(t, "Something went wrong. Please contact support@example.com.", message)
	assert.NotContains(t, rec.Body.String(), "deadlock")
}

func TestUpgrade_SeatCountVerificationFailure(t *testing.T) {
	h, session, _, _ := handlerFixture(testConfig())
	session.doUpgradeFn = func(ctx context.Context, org *types.Organization, user *types.User, req *billing.UpgradeRequest) (map[string]any, error) {
		return nil, types.NewAppError(
			types.ErrCodeBillingError,
			"Seat count verification failed. Please reload the page and try again.",
			nil,
		)
	}

	rec := httptest.NewRecorder()
	h.Upgrade(rec, postForm("/v1/billing/upgrade", upgradeForm(), contextWithActor(false)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	code, message := decodeError(t, rec)
	assert.Equal(t, string(types.ErrCodeBillingError), code)
	assert.Contains(t, message, "reload the page")
}

// =============================================================================
// GET /v1/billing/upgrade
// =============================================================================

func getUpgrade(h *BillingHandler, query string, ctx context.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/billing/upgrade"+query, nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.InitialUpgrade(rec, req)
	return rec
}

func TestInitialUpgrade_BillingDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Billing.Enabled = false
	h, _, _, _ := handlerFixture(cfg)

	rec := getUpgrade(h, "", contextWithActor(false))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInitialUpgrade_GuestGetsNotFound(t *testing.T) {
	h, _, _, _ := handlerFixture(testConfig())

	rec := getUpgrade(h, "", contextWithActor(true))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInitialUpgrade_SponsorshipPendingRedirects(t *testing.T) {
	h, _, _, customers := handlerFixture(testConfig())
	customers.customer = &types.Customer{ID: "cust_1", SponsorshipPending: true}

	rec := getUpgrade(h, "", contextWithActor(false))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example.com/billing/sponsorship", rec.Header().Get("Location"))
}

func TestInitialUpgrade_ExistingPlanRedirectsToBilling(t *testing.T) {
	h, _, _, customers := handlerFixture(testConfig())
	customers.customer = &types.Customer{ID: "cust_1"}
	customers.plan = &types.CustomerPlan{ID: "plan_1", Status: "active"}

	rec := getUpgrade(h, "", contextWithActor(false))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example.com/billing", rec.Header().Get("Location"))
}

func TestInitialUpgrade_OnboardingRedirectKeepsFlag(t *testing.T) {
	h, _, _, customers := handlerFixture(testConfig())
	customers.customer = &types.Customer{ID: "cust_1"}

	rec := getUpgrade(h, "?onboarding=true", contextWithActor(false))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example.com/billing?onboarding=true", rec.Header().Get("Location"))
}

func TestInitialUpgrade_PageData(t *testing.T) {
	h, _, _, customers := handlerFixture(testConfig())
	customers.customer = &types.Customer{
		ID:              "cust_1",
		DefaultDiscount: 25,
	}

	rec := getUpgrade(h, "", contextWithActor(false))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "acme", body.Data["organization"])
	assert.Equal(t, float64(7), body.Data["seat_count"])
	assert.Equal(t, "signed_token", body.Data["signed_seat_count"])
	assert.Equal(t, "test_salt", body.Data["salt"])
	// Seven seats is below the invoiced floor, so the floor wins.
	assert.Equal(t, float64(30), body.Data["min_invoiced_licenses"])
	assert.Equal(t, float64(30), body.Data["default_invoice_days_until_due"])
	assert.Equal(t, "Cloud Standard", body.Data["plan"])
	assert.Equal(t, float64(8000), body.Data["annual_price"])
	assert.Equal(t, float64(800), body.Data["monthly_price"])
	assert.Equal(t, float64(25), body.Data["percent_off"])
	assert.Equal(t, false, body.Data["is_demo_organization"])
}

func TestInitialUpgrade_LargeOrgRaisesInvoicedMinimum(t *testing.T) {
	h, _, _, _ := handlerFixture(testConfig())
	h.users.(*mockUsers).seatCount = 45

	rec := getUpgrade(h, "", contextWithActor(false))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(45), body.Data["min_invoiced_licenses"])
}

func TestInitialUpgrade_DemoOrganization(t *testing.T) {
	h, _, _, _ := handlerFixture(testConfig())
	deletion := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	h.orgs.(*mockOrgs).org.DemoScheduledDeletionDate = &deletion

	rec := getUpgrade(h, "", contextWithActor(false))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body.Data["is_demo_organization"])
	assert.NotNil(t, body.Data["demo_organization_scheduled_deletion_date"])
}

// =============================================================================
// POST /v1/billing/sponsorship
// =============================================================================

func sponsorshipForm() url.Values {
	return url.Values{
		"organization-type":    {"20"},
		"website":              {"https://acme.example"},
		"description":          {"We build open source tools."},
		"expected_total_users": {"50"},
		"paid_users_count":     {"0"},
	}
}

func TestSponsorship_Success(t *testing.T) {
	h, _, sponsorship, _ := handlerFixture(testConfig())

	var gotValues url.Values
	sponsorship.submitFn = func(ctx context.Context, org *types.Organization, requester *types.User, values url.Values) error {
		gotValues = values
		return nil
	}

	rec := httptest.NewRecorder()
	h.Sponsorship(rec, postForm("/v1/billing/sponsorship", sponsorshipForm(), contextWithActor(false)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20", gotValues.Get("organization-type"))
}

func TestSponsorship_ValidationErrorIsFourHundred(t *testing.T) {
	h, _, sponsorship, _ := handlerFixture(testConfig())
	sponsorship.submitFn = func(ctx context.Context, org *types.Organization, requester *types.User, values url.Values) error {
		return billing.FormValidationError("description: This field is required.")
	}

	rec := httptest.NewRecorder()
	h.Sponsorship(rec, postForm("/v1/billing/sponsorship", sponsorshipForm(), contextWithActor(false)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	code, message := decodeError(t, rec)
	assert.Equal(t, string(types.ErrCodeBillingError), code)
	assert.Contains(t, message, "description: This field is required.")
}

func TestSponsorship_UnexpectedErrorBecomesContactSupport(t *testing.T) {
	h, _, sponsorship, _ := handlerFixture(testConfig())
	sponsorship.submitFn = func(ctx context.Context, org *types.Organization, requester *types.User, values url.Values) error {
		return errors.New("tx serialization failure")
	}

	rec := httptest.NewRecorder()
	h.Sponsorship(rec, postForm("/v1/billing/sponsorship", sponsorshipForm(), contextWithActor(false)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, string(types.ErrCodeBillingContactSupport), code)
	assert.NotContains(t, rec.Body.String(), "serialization")
}
