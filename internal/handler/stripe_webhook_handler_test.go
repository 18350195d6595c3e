package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/unclebandit/helpflow-backend/internal/billing"
	"github.com/unclebandit/helpflow-backend/internal/handler"
	"github.com/unclebandit/helpflow-backend/internal/model"
	"github.com/unclebandit/helpflow-backend/internal/service"
	"github.com/unclebandit/helpflow-backend/internal/testutil"
)

const stripeSecret = "whsec_test_helpflow"

func stripeEvent(t *testing.T, id, eventType string, created int64, object map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"created":     created,
		"api_version": "2025-03-31.basil",
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)
	return b
}

func signedStripeRequest(t *testing.T, payload []byte, secret string) *http.Request {
	t.Helper()
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func newStripeHandler(secret string, profiles *testutil.ProfileStore, gw *testutil.Gateway) *handler.StripeWebhookHandler {
	return handler.NewStripeWebhookHandler(secret, &service.BillingService{
		Profiles:     profiles,
		Gateway:      gw,
		Events:       &testutil.Publisher{},
		DashboardURL: "http://app.test/dashboard",
	})
}

func linkedFixtures() (*testutil.ProfileStore, *testutil.Gateway) {
	profiles := testutil.NewProfileStore(model.NewProfile("user_1", "a@example.com"))
	gw := testutil.NewGateway()
	gw.Customers["cus_1"] = &billing.Customer{
		ID:       "cus_1",
		Email:    "a@example.com",
		Metadata: map[string]string{billing.MetadataClerkUserID: "user_1"},
	}
	return profiles, gw
}

func TestStripeWebhookAppliesSubscriptionUpdate(t *testing.T) {
	profiles, gw := linkedFixtures()
	h := newStripeHandler(stripeSecret, profiles, gw)

	payload := stripeEvent(t, "evt_1", "customer.subscription.updated", 1700000000, map[string]any{
		"id": "sub_1", "object": "subscription", "customer": "cus_1", "status": "active",
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, signedStripeRequest(t, payload, stripeSecret))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"received":true}`, rr.Body.String())

	p := profiles.Get("user_1")
	assert.Equal(t, model.SubscriptionActive, p.SubscriptionStatus)
	assert.Equal(t, model.PlanDemo, p.SubscriptionPlan)
}

func TestStripeWebhookRejectsWrongSecret(t *testing.T) {
	profiles, gw := linkedFixtures()
	h := newStripeHandler(stripeSecret, profiles, gw)

	payload := stripeEvent(t, "evt_1", "customer.subscription.updated", 1700000000, map[string]any{
		"id": "sub_1", "customer": "cus_1", "status": "active",
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, signedStripeRequest(t, payload, "whsec_other"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, model.SubscriptionInactive, profiles.Get("user_1").SubscriptionStatus)
}

func TestStripeWebhookMissingSignature(t *testing.T) {
	profiles, gw := linkedFixtures()
	h := newStripeHandler(stripeSecret, profiles, gw)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStripeWebhookWithoutSecret(t *testing.T) {
	profiles, gw := linkedFixtures()
	h := newStripeHandler("", profiles, gw)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, signedStripeRequest(t, []byte(`{}`), stripeSecret))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestStripeWebhookSwallowsDownstreamFailures(t *testing.T) {
	profiles, gw := linkedFixtures()
	gw.Err = testutil.ErrBoom
	h := newStripeHandler(stripeSecret, profiles, gw)

	payload := stripeEvent(t, "evt_2", "customer.subscription.deleted", 1700000000, map[string]any{
		"id": "sub_1", "customer": "cus_1", "status": "canceled",
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, signedStripeRequest(t, payload, stripeSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.SubscriptionInactive, profiles.Get("user_1").SubscriptionStatus)
}

func TestStripeWebhookIgnoresUnknownType(t *testing.T) {
	profiles, gw := linkedFixtures()
	h := newStripeHandler(stripeSecret, profiles, gw)

	payload := stripeEvent(t, "evt_3", "charge.refunded", 1700000000, map[string]any{"id": "ch_1"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, signedStripeRequest(t, payload, stripeSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
}
