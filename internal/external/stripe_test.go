package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corporate/internal/billing"
	"corporate/internal/types"
)

// fakeBackendStore is an in-memory BackendStore.
type fakeBackendStore struct {
	customerIDs map[string]string
	plans       []*types.CustomerPlan
	planOrgs    []string
}

func newFakeBackendStore() *fakeBackendStore {
	return &fakeBackendStore{customerIDs: make(map[string]string)}
}

func (s *fakeBackendStore) GetStripeCustomerID(ctx context.Context, orgID string) (string, error) {
	return s.customerIDs[orgID], nil
}

func (s *fakeBackendStore) SetStripeCustomerID(ctx context.Context, orgID string, customerID string) error {
	s.customerIDs[orgID] = customerID
	return nil
}

func (s *fakeBackendStore) RecordPlanUpgrade(ctx context.Context, orgID string, plan *types.CustomerPlan) error {
	s.plans = append(s.plans, plan)
	s.planOrgs = append(s.planOrgs, orgID)
	return nil
}

type stripeCall struct {
	path string
	form map[string]string
}

// stripeStub fakes the two Stripe endpoints the backend uses.
func stripeStub(t *testing.T, calls *[]stripeCall) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())

		form := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		*calls = append(*calls, stripeCall{path: r.URL.Path, form: form})

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/customers":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "cus_abc", "object": "customer"})
		case "/v1/subscriptions":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "sub_xyz", "object": "subscription", "status": "active"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func backendFixture(t *testing.T, baseURL string, store BackendStore) *StripeBackend {
	t.Helper()
	return NewStripeBackend(http.DefaultClient, store, StripeBackendConfig{
		SecretKey: "sk_test_123",
		BaseURL:   baseURL,
	})
}

func upgradeIntent() billing.UpgradeIntent {
	return billing.UpgradeIntent{
		BillingModality:   billing.ModalityChargeAutomatically,
		Schedule:          billing.ScheduleMonthly,
		SeatCount:         7,
		LicenseManagement: billing.LicenseAutomatic,
	}
}

func stripeOrg() *types.Organization {
	return &types.Organization{ID: "org_1", StringID: "acme"}
}

func stripeUser() *types.User {
	return &types.User{ID: "user_1", Email: "owner@acme.example"}
}

func TestStripeBackend_DoUpgrade_CreatesCustomerAndSubscription(t *testing.T) {
	var calls []stripeCall
	srv := stripeStub(t, &calls)
	defer srv.Close()

	store := newFakeBackendStore()
	backend := backendFixture(t, srv.URL, store)

	payload, err := backend.DoUpgrade(context.Background(), stripeOrg(), stripeUser(), upgradeIntent())
	require.NoError(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, "/v1/customers", calls[0].path)
	assert.Equal(t, "owner@acme.example", calls[0].form["email"])
	assert.Equal(t, "acme", calls[0].form["description"])

	sub := calls[1]
	assert.Equal(t, "/v1/subscriptions", sub.path)
	assert.Equal(t, "cus_abc", sub.form["customer"])
	assert.Equal(t, "month", sub.form["items[0][price_data][recurring][interval]"])
	assert.Equal(t, "800", sub.form["items[0][price_data][unit_amount]"])
	assert.Equal(t, "7", sub.form["items[0][quantity]"])
	assert.Equal(t, "charge_automatically", sub.form["collection_method"])

	assert.Equal(t, "cus_abc", store.customerIDs["org_1"])
	require.Len(t, store.plans, 1)
	assert.Equal(t, "plan_sub_xyz", store.plans[0].ID)
	assert.Equal(t, "Cloud Standard", store.plans[0].Name)
	assert.Equal(t, []string{"org_1"}, store.planOrgs)

	assert.Equal(t, "sub_xyz", payload["subscription_id"])
	assert.Equal(t, "active", payload["subscription_state"])
	assert.Equal(t, 7, payload["seat_count"])
}

func TestStripeBackend_DoUpgrade_ReusesExistingCustomer(t *testing.T) {
	var calls []stripeCall
	srv := stripeStub(t, &calls)
	defer srv.Close()

	store := newFakeBackendStore()
	store.customerIDs["org_1"] = "cus_existing"
	backend := backendFixture(t, srv.URL, store)

	_, err := backend.DoUpgrade(context.Background(), stripeOrg(), stripeUser(), upgradeIntent())
	require.NoError(t, err)

	require.Len(t, calls, 1, "no customer creation when one already exists")
	assert.Equal(t, "/v1/subscriptions", calls[0].path)
	assert.Equal(t, "cus_existing", calls[0].form["customer"])
}

func TestStripeBackend_DoUpgrade_AnnualInvoiced(t *testing.T) {
	var calls []stripeCall
	srv := stripeStub(t, &calls)
	defer srv.Close()

	store := newFakeBackendStore()
	store.customerIDs["org_1"] = "cus_existing"
	backend := backendFixture(t, srv.URL, store)

	licenses := 40
	intent := billing.UpgradeIntent{
		BillingModality:   billing.ModalitySendInvoice,
		Schedule:          billing.ScheduleAnnual,
		SeatCount:         7,
		LicenseManagement: billing.LicenseManual,
		Licenses:          &licenses,
	}

	payload, err := backend.DoUpgrade(context.Background(), stripeOrg(), stripeUser(), intent)
	require.NoError(t, err)

	sub := calls[0]
	assert.Equal(t, "year", sub.form["items[0][price_data][recurring][interval]"])
	assert.Equal(t, "8000", sub.form["items[0][price_data][unit_amount]"])
	assert.Equal(t, "40", sub.form["items[0][quantity]"])
	assert.Equal(t, "send_invoice", sub.form["collection_method"])
	assert.Equal(t, "30", sub.form["days_until_due"])

	assert.Equal(t, 40, payload["licenses"])
}

func TestStripeBackend_ProviderRejectionIsBillingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"code":"card_declined","message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	store := newFakeBackendStore()
	store.customerIDs["org_1"] = "cus_existing"
	backend := backendFixture(t, srv.URL, store)

	_, err := backend.DoUpgrade(context.Background(), stripeOrg(), stripeUser(), upgradeIntent())

	var billErr *billing.Error
	require.ErrorAs(t, err, &billErr)
	assert.Equal(t, "Your card was declined.", billErr.Message)
	assert.Empty(t, store.plans, "no plan recorded on provider rejection")
}
