package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeGateway("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestUnconfiguredGatewayRefusesCalls(t *testing.T) {
	g := NewStripeGateway("  ", nil)

	_, err := g.FindCustomerByEmail(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = g.CreateCheckoutSession(context.Background(), CheckoutRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = g.CreatePortalSession(context.Background(), "cus_1", "http://x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFindCustomerByEmailReturnsFirstMatch(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/customers", r.URL.Path)
		assert.Equal(t, "a@example.com", r.URL.Query().Get("email"))
		writeJSON(t, w, map[string]any{
			"object":   "list",
			"url":      "/v1/customers",
			"has_more": false,
			"data": []map[string]any{
				{"id": "cus_first", "object": "customer", "email": "a@example.com", "metadata": map[string]string{"clerk_user_id": "user_1"}},
				{"id": "cus_second", "object": "customer", "email": "a@example.com"},
			},
		})
	})

	c, err := g.FindCustomerByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "cus_first", c.ID)
	assert.Equal(t, "user_1", c.ClerkUserID())
}

func TestFindCustomerByEmailNoMatch(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"object": "list", "url": "/v1/customers", "has_more": false, "data": []any{}})
	})

	c, err := g.FindCustomerByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCreateCheckoutSessionUsesInlineDemoPrice(t *testing.T) {
	var form url.Values
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		writeJSON(t, w, map[string]any{"id": "cs_1", "object": "checkout.session", "url": "https://checkout.stripe.com/c/cs_1"})
	})

	u, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{
		CustomerID:  "cus_1",
		ClerkUserID: "user_1",
		SuccessURL:  "http://app/dashboard?success=true",
		CancelURL:   "http://app/dashboard?canceled=true",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_1", u)

	assert.Equal(t, "subscription", form.Get("mode"))
	assert.Equal(t, "cus_1", form.Get("customer"))
	assert.Equal(t, "user_1", form.Get("metadata[clerk_user_id]"))
	assert.Equal(t, "999", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "month", form.Get("line_items[0][price_data][recurring][interval]"))
	assert.Equal(t, DemoPlanName, form.Get("line_items[0][price_data][product_data][name]"))
}

func TestCreatePortalSession(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/billing_portal/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_1", r.PostForm.Get("customer"))
		assert.Equal(t, "http://app/dashboard", r.PostForm.Get("return_url"))
		writeJSON(t, w, map[string]any{"id": "bps_1", "object": "billing_portal.session", "url": "https://billing.stripe.com/p/1"})
	})

	u, err := g.CreatePortalSession(context.Background(), "cus_1", "http://app/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/1", u)
}

func TestGetSubscriptionMapsCustomer(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscriptions/sub_1", r.URL.Path)
		writeJSON(t, w, map[string]any{"id": "sub_1", "object": "subscription", "status": "past_due", "customer": "cus_9"})
	})

	s, err := g.GetSubscription(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "past_due", s.Status)
	assert.Equal(t, "cus_9", s.CustomerID)
}
