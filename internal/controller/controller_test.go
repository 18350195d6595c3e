package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/helpflow-backend/internal/controller"
	"github.com/unclebandit/helpflow-backend/internal/middleware"
	"github.com/unclebandit/helpflow-backend/internal/model"
	"github.com/unclebandit/helpflow-backend/internal/service"
	"github.com/unclebandit/helpflow-backend/internal/testutil"
)

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, subject string) *http.Request {
	return req.WithContext(middleware.WithClaims(req.Context(), &middleware.Claims{Subject: subject}))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func newBillingController(profiles *testutil.ProfileStore, gw *testutil.Gateway) *controller.BillingController {
	return &controller.BillingController{BillingService: &service.BillingService{
		Profiles:     profiles,
		Gateway:      gw,
		Events:       &testutil.Publisher{},
		DashboardURL: "http://app.test/dashboard",
	}}
}

func TestCreateCheckoutSessionReturnsURL(t *testing.T) {
	gw := testutil.NewGateway()
	ctrl := newBillingController(testutil.NewProfileStore(model.NewProfile("user_1", "a@example.com")), gw)

	rr := httptest.NewRecorder()
	ctrl.CreateCheckoutSession(rr, jsonRequest(t, http.MethodPost, "/api/stripe/create-checkout-session",
		map[string]string{"userId": "user_1", "email": "a@example.com"}))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, gw.CheckoutURL, decode(t, rr)["url"])
}

func TestCreateCheckoutSessionMissingEmail(t *testing.T) {
	ctrl := newBillingController(testutil.NewProfileStore(), testutil.NewGateway())

	rr := httptest.NewRecorder()
	ctrl.CreateCheckoutSession(rr, jsonRequest(t, http.MethodPost, "/api/stripe/create-checkout-session",
		map[string]string{"userId": "user_1"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateCheckoutSessionGatewayFailure(t *testing.T) {
	gw := testutil.NewGateway()
	gw.CheckoutErr = testutil.ErrBoom
	ctrl := newBillingController(testutil.NewProfileStore(), gw)

	rr := httptest.NewRecorder()
	ctrl.CreateCheckoutSession(rr, jsonRequest(t, http.MethodPost, "/api/stripe/create-checkout-session",
		map[string]string{"userId": "user_1", "email": "a@example.com"}))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to create checkout session", decode(t, rr)["error"])
}

func TestCreateCheckoutSessionForOtherUserIsForbidden(t *testing.T) {
	gw := testutil.NewGateway()
	ctrl := newBillingController(testutil.NewProfileStore(), gw)

	req := asUser(jsonRequest(t, http.MethodPost, "/api/stripe/create-checkout-session",
		map[string]string{"userId": "user_1", "email": "a@example.com"}), "user_2")
	rr := httptest.NewRecorder()
	ctrl.CreateCheckoutSession(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, gw.CheckoutRequests)
}

func TestCreatePortalSession(t *testing.T) {
	gw := testutil.NewGateway()
	ctrl := newBillingController(testutil.NewProfileStore(), gw)

	rr := httptest.NewRecorder()
	ctrl.CreatePortalSession(rr, jsonRequest(t, http.MethodPost, "/api/stripe/customer-portal",
		map[string]string{"customerId": "cus_1"}))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, gw.PortalURL, decode(t, rr)["url"])
	assert.Equal(t, []string{"cus_1"}, gw.PortalCustomers)
}

func TestCreatePortalSessionMissingCustomer(t *testing.T) {
	ctrl := newBillingController(testutil.NewProfileStore(), testutil.NewGateway())

	rr := httptest.NewRecorder()
	ctrl.CreatePortalSession(rr, jsonRequest(t, http.MethodPost, "/api/stripe/customer-portal", map[string]string{}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreatePortalSessionForeignCustomerIsForbidden(t *testing.T) {
	p := model.NewProfile("user_1", "a@example.com")
	mine := "cus_mine"
	p.StripeCustomerID = &mine
	gw := testutil.NewGateway()
	ctrl := newBillingController(testutil.NewProfileStore(p), gw)

	req := asUser(jsonRequest(t, http.MethodPost, "/api/stripe/customer-portal",
		map[string]string{"customerId": "cus_other"}), "user_1")
	rr := httptest.NewRecorder()
	ctrl.CreatePortalSession(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, gw.PortalCustomers)
}

func TestInvalidJSONBody(t *testing.T) {
	ctrl := newBillingController(testutil.NewProfileStore(), testutil.NewGateway())

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/customer-portal", bytes.NewReader([]byte("{")))
	rr := httptest.NewRecorder()
	ctrl.CreatePortalSession(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

type messageFixture struct {
	ctrl      *controller.MessageController
	messages  *testutil.MessageStore
	generator *testutil.Generator
	sender    *testutil.Sender
}

func newMessageFixture() *messageFixture {
	profiles := testutil.NewProfileStore(&model.Profile{ID: "6f1c2a34-9d1e-4b2a-8f3e-2c5d7a9b0e11", ClerkUserID: "user_1", Email: "a@example.com"})
	f := &messageFixture{
		messages:  testutil.NewMessageStore(),
		generator: testutil.NewGenerator(),
		sender:    &testutil.Sender{},
	}
	events := &testutil.Publisher{}
	f.ctrl = &controller.MessageController{
		MessageService: &service.MessageService{
			Messages:  f.messages,
			Profiles:  profiles,
			Generator: f.generator,
			Sender:    f.sender,
			Events:    events,
		},
		ProfileService: &service.ProfileService{Profiles: profiles, Messages: f.messages, Events: events},
	}
	return f
}

func generateBody() map[string]string {
	return map[string]string{"recipientEmail": "to@example.com", "messageTopic": "onboarding", "userId": "6f1c2a34-9d1e-4b2a-8f3e-2c5d7a9b0e11"}
}

func TestGenerateMessageSent(t *testing.T) {
	f := newMessageFixture()

	rr := httptest.NewRecorder()
	f.ctrl.GenerateMessage(rr, jsonRequest(t, http.MethodPost, "/api/ai/generate-message", generateBody()))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["delivered"])
	assert.Equal(t, "sent", body["status"])
	assert.Equal(t, "Message generated and sent successfully", body["message"])
	emailData, ok := body["emailData"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Welcome to HelpFlow", emailData["subject"])
	assert.Len(t, f.sender.Sent, 1)
}

func TestGenerateMessageDeliveryFailureIsPartialSuccess(t *testing.T) {
	f := newMessageFixture()
	f.sender.Err = testutil.ErrBoom

	rr := httptest.NewRecorder()
	f.ctrl.GenerateMessage(rr, jsonRequest(t, http.MethodPost, "/api/ai/generate-message", generateBody()))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["delivered"])
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, model.MessageFailed, f.messages.Get(body["messageId"].(string)).Status)
}

func TestGenerateMessageMissingFields(t *testing.T) {
	f := newMessageFixture()
	body := generateBody()
	body["recipientEmail"] = " "

	rr := httptest.NewRecorder()
	f.ctrl.GenerateMessage(rr, jsonRequest(t, http.MethodPost, "/api/ai/generate-message", body))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, f.messages.Len())
}

func TestGenerateMessageGenerationFailure(t *testing.T) {
	f := newMessageFixture()
	f.generator.Err = testutil.ErrBoom

	rr := httptest.NewRecorder()
	f.ctrl.GenerateMessage(rr, jsonRequest(t, http.MethodPost, "/api/ai/generate-message", generateBody()))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to generate message", decode(t, rr)["error"])
}

func TestGenerateMessageForForeignProfileIsForbidden(t *testing.T) {
	f := newMessageFixture()

	req := asUser(jsonRequest(t, http.MethodPost, "/api/ai/generate-message", generateBody()), "user_2")
	rr := httptest.NewRecorder()
	f.ctrl.GenerateMessage(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, 0, f.generator.Calls)
}

func TestListMessagesPaginates(t *testing.T) {
	f := newMessageFixture()
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		f.ctrl.GenerateMessage(rr, jsonRequest(t, http.MethodPost, "/api/ai/generate-message", generateBody()))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := httptest.NewRecorder()
	f.ctrl.ListMessages(rr, httptest.NewRequest(http.MethodGet, "/api/messages?userId=6f1c2a34-9d1e-4b2a-8f3e-2c5d7a9b0e11&page=1&page_size=2", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var page struct {
		Messages     []map[string]any `json:"messages"`
		Pagination   map[string]int   `json:"pagination"`
		StatusCounts map[string]int   `json:"status_counts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Len(t, page.Messages, 2)
	assert.Equal(t, 3, page.Pagination["total_count"])
	assert.Equal(t, 2, page.Pagination["total_pages"])
	assert.Equal(t, 3, page.StatusCounts["sent"])
}

func TestListMessagesUnknownStatus(t *testing.T) {
	f := newMessageFixture()

	rr := httptest.NewRecorder()
	f.ctrl.ListMessages(rr, httptest.NewRequest(http.MethodGet, "/api/messages?userId=6f1c2a34-9d1e-4b2a-8f3e-2c5d7a9b0e11&status=bogus", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetProfile(t *testing.T) {
	profiles := testutil.NewProfileStore(model.NewProfile("user_1", "a@example.com"))
	ctrl := &controller.ProfileController{ProfileService: &service.ProfileService{Profiles: profiles, Events: &testutil.Publisher{}}}

	rr := httptest.NewRecorder()
	ctrl.GetProfile(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/api/profiles/user_1", nil), "clerkUserId", "user_1"))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "a@example.com", body["email"])
	assert.Equal(t, "inactive", body["subscription_status"])
	assert.Equal(t, "free", body["subscription_plan"])
}

func TestGetProfileNotFound(t *testing.T) {
	ctrl := &controller.ProfileController{ProfileService: &service.ProfileService{Profiles: testutil.NewProfileStore()}}

	rr := httptest.NewRecorder()
	ctrl.GetProfile(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/api/profiles/user_9", nil), "clerkUserId", "user_9"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetProfileCreatesWithEmail(t *testing.T) {
	profiles := testutil.NewProfileStore()
	ctrl := &controller.ProfileController{ProfileService: &service.ProfileService{Profiles: profiles, Events: &testutil.Publisher{}}}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/profiles/user_9?email=n@example.com", nil), "clerkUserId", "user_9")
	rr := httptest.NewRecorder()
	ctrl.GetProfile(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 1, profiles.Len())
}

func TestGetProfileOfOtherUserIsForbidden(t *testing.T) {
	ctrl := &controller.ProfileController{ProfileService: &service.ProfileService{Profiles: testutil.NewProfileStore()}}

	req := asUser(withURLParam(httptest.NewRequest(http.MethodGet, "/api/profiles/user_1", nil), "clerkUserId", "user_1"), "user_2")
	rr := httptest.NewRecorder()
	ctrl.GetProfile(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestListMessagesPageOutOfRange(t *testing.T) {
	f := newMessageFixture()

	rr := httptest.NewRecorder()
	f.ctrl.ListMessages(rr, httptest.NewRequest(http.MethodGet,
		"/api/messages?userId=6f1c2a34-9d1e-4b2a-8f3e-2c5d7a9b0e11&page=922337203685477580&page_size=100", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListMessagesWithClerkIDIsBadRequest(t *testing.T) {
	f := newMessageFixture()

	rr := httptest.NewRecorder()
	f.ctrl.ListMessages(rr, httptest.NewRequest(http.MethodGet, "/api/messages?userId=user_1", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetMessage(t *testing.T) {
	f := newMessageFixture()
	rr := httptest.NewRecorder()
	f.ctrl.GenerateMessage(rr, jsonRequest(t, http.MethodPost, "/api/ai/generate-message", generateBody()))
	require.Equal(t, http.StatusOK, rr.Code)
	id := decode(t, rr)["messageId"].(string)

	rr = httptest.NewRecorder()
	f.ctrl.GetMessage(rr, asUser(withURLParam(httptest.NewRequest(http.MethodGet, "/api/messages/"+id, nil), "id", id), "user_1"))
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, id, body["id"])
	assert.Equal(t, "sent", body["status"])

	rr = httptest.NewRecorder()
	f.ctrl.GetMessage(rr, asUser(withURLParam(httptest.NewRequest(http.MethodGet, "/api/messages/"+id, nil), "id", id), "user_2"))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	f.ctrl.GetMessage(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/api/messages/nope", nil), "id", "nope"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
