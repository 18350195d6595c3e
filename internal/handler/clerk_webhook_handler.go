// internal/handler/clerk_webhook_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	svix "github.com/svix/svix-webhooks/go"

	appErrors "github.com/unclebandit/helpflow-backend/internal/errors"
	"github.com/unclebandit/helpflow-backend/internal/metrics"
	"github.com/unclebandit/helpflow-backend/internal/service"
)

// ClerkWebhookHandler receives identity provider events signed with the Svix scheme.
type ClerkWebhookHandler struct {
	webhook *svix.Webhook
	Service *service.IdentityService
}

type identityResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ProfileID string `json:"profileId,omitempty"`
}

// NewClerkWebhookHandler builds the handler. An empty or unparsable secret leaves the
// handler answering 500 until configured.
func NewClerkWebhookHandler(secret string, svc *service.IdentityService) *ClerkWebhookHandler {
	h := &ClerkWebhookHandler{Service: svc}
	if secret = strings.TrimSpace(secret); secret == "" {
		log.Error().Msg("CLERK_WEBHOOK_SECRET environment variable is not set")
		return h
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		log.Error().Err(err).Msg("invalid CLERK_WEBHOOK_SECRET")
		return h
	}
	h.webhook = wh
	return h
}

func (h *ClerkWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventType := "unknown"
	outcome := "rejected"
	defer func() { metrics.RecordWebhook("clerk", eventType, outcome) }()

	if h.webhook == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Webhook configuration error"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}

	if err := h.webhook.Verify(payload, r.Header); err != nil {
		log.Ctx(ctx).Warn().Err(appErrors.E(appErrors.KindInvalidSignature, "clerk.webhook", err)).
			Msg("webhook signature verification failed")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid signature"})
		return
	}

	var evt service.IdentityEvent
	if err := json.Unmarshal(payload, &evt); err != nil || evt.Type == "" {
		if err == nil {
			err = errors.New("event type missing")
		}
		log.Ctx(ctx).Warn().Err(err).Msg("malformed identity webhook payload")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid payload"})
		return
	}
	eventType = evt.Type
	log.Ctx(ctx).Info().Str("type", evt.Type).Msg("processing Clerk webhook")

	res, err := h.Service.Apply(ctx, evt)
	if err != nil {
		kind := appErrors.KindOf(err)
		log.Ctx(ctx).Error().Err(err).Str("type", evt.Type).Msg("identity webhook failed")
		outcome = string(kind)
		writeJSON(w, appErrors.HTTPStatus(kind), errorResponse{Error: identityErrorMessage(kind)})
		return
	}

	outcome = "processed"
	writeJSON(w, http.StatusOK, identityResponse{Success: true, Message: res.Message, ProfileID: res.ProfileID})
}

func identityErrorMessage(kind appErrors.Kind) string {
	switch kind {
	case appErrors.KindMissingPrimaryEmail:
		return "No primary email found"
	case appErrors.KindMalformedPayload:
		return "Invalid payload"
	case appErrors.KindPersistence:
		return "Database operation failed"
	default:
		return "Webhook processing failed"
	}
}
