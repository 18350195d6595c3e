// internal/handler/stripe_webhook_handler.go
package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v82/webhook"

	appErrors "github.com/unclebandit/helpflow-backend/internal/errors"
	"github.com/unclebandit/helpflow-backend/internal/metrics"
	"github.com/unclebandit/helpflow-backend/internal/service"
)

// StripeWebhookHandler verifies Stripe events and hands them to the billing service.
type StripeWebhookHandler struct {
	secret  string
	Service *service.BillingService
}

type receivedResponse struct {
	Received bool `json:"received"`
}

func NewStripeWebhookHandler(secret string, svc *service.BillingService) *StripeWebhookHandler {
	return &StripeWebhookHandler{secret: strings.TrimSpace(secret), Service: svc}
}

func (h *StripeWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventType := "unknown"
	outcome := "rejected"
	defer func() { metrics.RecordWebhook("stripe", eventType, outcome) }()

	if h.secret == "" {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "webhook secret not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing Stripe signature"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			log.Ctx(ctx).Warn().Err(appErrors.E(appErrors.KindInvalidSignature, "stripe.webhook", err)).
				Msg("webhook signature verification failed")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Webhook signature verification failed"})
			return
		}
		log.Ctx(ctx).Warn().Err(err).Msg("malformed billing webhook payload")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid payload"})
		return
	}
	eventType = string(event.Type)

	if event.Data == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid payload"})
		return
	}

	outcome, err = h.Service.HandleEvent(ctx, service.BillingEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
		Object:  event.Data.Raw,
	})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("event_id", event.ID).Msg("billing webhook payload rejected")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid payload"})
		return
	}

	writeJSON(w, http.StatusOK, receivedResponse{Received: true})
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
