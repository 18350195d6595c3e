// internal/service/billing_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/unclebandit/helpflow-backend/internal/billing"
	appErrors "github.com/unclebandit/helpflow-backend/internal/errors"
	"github.com/unclebandit/helpflow-backend/internal/metrics"
	"github.com/unclebandit/helpflow-backend/internal/model"
	"github.com/unclebandit/helpflow-backend/internal/queue"
	"github.com/unclebandit/helpflow-backend/internal/repository"
)

// Billing event types the backend acts on.
const (
	BillingCheckoutCompleted    = "checkout.session.completed"
	BillingSubscriptionUpdated  = "customer.subscription.updated"
	BillingSubscriptionDeleted  = "customer.subscription.deleted"
	BillingInvoicePaymentFailed = "invoice.payment_failed"
)

// Outcomes of handling one billing event.
const (
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeIgnored = "ignored"
	OutcomeDropped = "dropped"
	OutcomeError   = "error"
)

// BillingEvent is a verified billing webhook event.
type BillingEvent struct {
	ID      string
	Type    string
	Created time.Time
	Object  json.RawMessage
}

type BillingService struct {
	Profiles     repository.ProfileRepositoryInterface
	Gateway      billing.Gateway
	Events       queue.Publisher
	PriceID      string
	DashboardURL string
}

// CreateCheckoutSession resolves the user's billing customer and opens a hosted checkout.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, userID, email string) (string, error) {
	const op = "billing.CreateCheckoutSession"
	userID, email = strings.TrimSpace(userID), strings.TrimSpace(email)
	if userID == "" || email == "" {
		return "", appErrors.E(appErrors.KindMissingFields, op, errors.New("userId and email are required"))
	}

	customerID, stored := s.storedCustomerID(ctx, userID)
	if customerID == "" {
		c, err := s.Gateway.FindCustomerByEmail(ctx, email)
		if err != nil {
			return "", appErrors.E(appErrors.KindCheckoutCreationFailed, op, err)
		}
		if c == nil {
			c, err = s.Gateway.CreateCustomer(ctx, email, userID)
			if err != nil {
				return "", appErrors.E(appErrors.KindCheckoutCreationFailed, op, err)
			}
			log.Ctx(ctx).Info().Str("clerk_user_id", userID).Str("customer_id", c.ID).Msg("created billing customer")
		}
		customerID = c.ID
	}

	url, err := s.Gateway.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		CustomerID:  customerID,
		ClerkUserID: userID,
		PriceID:     s.PriceID,
		SuccessURL:  s.DashboardURL + "?success=true",
		CancelURL:   s.DashboardURL + "?canceled=true",
	})
	if err != nil {
		return "", appErrors.E(appErrors.KindCheckoutCreationFailed, op, err)
	}

	if !stored {
		if _, err := s.Profiles.SetStripeCustomerID(ctx, userID, customerID); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("clerk_user_id", userID).Str("customer_id", customerID).
				Msg("failed to store billing customer id on profile")
		}
	}
	return url, nil
}

// storedCustomerID returns the profile's recorded customer id, if any.
func (s *BillingService) storedCustomerID(ctx context.Context, userID string) (string, bool) {
	p, err := s.Profiles.GetByClerkID(ctx, userID)
	if err != nil {
		if !appErrors.Is(err, appErrors.KindNotFound) {
			log.Ctx(ctx).Warn().Err(err).Str("clerk_user_id", userID).Msg("profile lookup failed, falling back to email")
		}
		return "", false
	}
	if p.StripeCustomerID == nil || *p.StripeCustomerID == "" {
		return "", false
	}
	return *p.StripeCustomerID, true
}

// CreatePortalSession opens the hosted billing portal for a customer.
func (s *BillingService) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	const op = "billing.CreatePortalSession"
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", appErrors.E(appErrors.KindMissingFields, op, errors.New("customerId is required"))
	}
	url, err := s.Gateway.CreatePortalSession(ctx, customerID, s.DashboardURL)
	if err != nil {
		return "", appErrors.E(appErrors.KindPortalCreationFailed, op, err)
	}
	return url, nil
}

// CheckCustomerOwner returns Forbidden unless the customer id is the one stored on the user's profile.
func (s *BillingService) CheckCustomerOwner(ctx context.Context, clerkUserID, customerID string) error {
	const op = "billing.CheckCustomerOwner"
	stored, ok := s.storedCustomerID(ctx, clerkUserID)
	if !ok || stored != strings.TrimSpace(customerID) {
		return appErrors.E(appErrors.KindForbidden, op, errors.New("customer does not belong to the caller"))
	}
	return nil
}

// HandleEvent applies one billing event. Only a malformed payload is returned as an error;
// every other failure is logged and reported through the outcome.
func (s *BillingService) HandleEvent(ctx context.Context, evt BillingEvent) (string, error) {
	const op = "billing.HandleEvent"
	if !gjson.ValidBytes(evt.Object) {
		return OutcomeError, appErrors.E(appErrors.KindMalformedPayload, op, errors.New("event object is not valid JSON"))
	}
	obj := gjson.ParseBytes(evt.Object)
	l := log.Ctx(ctx).With().Str("event_id", evt.ID).Str("event_type", evt.Type).Logger()
	logger := &l

	switch evt.Type {
	case BillingCheckoutCompleted:
		if obj.Get("mode").String() != "subscription" {
			return OutcomeIgnored, nil
		}
		clerkUserID := obj.Get("metadata." + billing.MetadataClerkUserID).String()
		if clerkUserID == "" {
			logger.Warn().Msg("checkout session without clerk_user_id metadata, dropping")
			return OutcomeDropped, nil
		}
		subscriptionID := objectID(obj.Get("subscription"))
		if subscriptionID == "" {
			logger.Warn().Msg("subscription checkout without subscription id, dropping")
			return OutcomeDropped, nil
		}
		sub, err := s.Gateway.GetSubscription(ctx, subscriptionID)
		if err != nil {
			logger.Error().Err(err).Str("subscription_id", subscriptionID).Msg("failed to retrieve subscription")
			return OutcomeError, nil
		}
		return s.apply(ctx, logger, model.SubscriptionUpdate{
			ClerkUserID:    clerkUserID,
			SubscriptionID: sub.ID,
			Status:         model.SubscriptionActive,
			EventAt:        evt.Created,
		}), nil

	case BillingSubscriptionUpdated, BillingSubscriptionDeleted:
		status := model.SubscriptionStatusFromStripe(obj.Get("status").String())
		return s.applyForCustomer(ctx, logger, objectID(obj.Get("customer")), obj.Get("id").String(), status, evt.Created), nil

	case BillingInvoicePaymentFailed:
		subscriptionID := objectID(obj.Get("subscription"))
		if subscriptionID == "" {
			subscriptionID = objectID(obj.Get("parent.subscription_details.subscription"))
		}
		if subscriptionID == "" {
			return OutcomeIgnored, nil
		}
		return s.applyForCustomer(ctx, logger, objectID(obj.Get("customer")), subscriptionID, model.SubscriptionPastDue, evt.Created), nil

	default:
		logger.Debug().Msg("unhandled billing event type")
		return OutcomeIgnored, nil
	}
}

func (s *BillingService) applyForCustomer(ctx context.Context, logger *zerolog.Logger, customerID, subscriptionID string, status model.SubscriptionStatus, eventAt time.Time) string {
	if customerID == "" {
		logger.Warn().Msg("billing event without customer, dropping")
		return OutcomeDropped
	}
	c, err := s.Gateway.GetCustomer(ctx, customerID)
	if err != nil {
		logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to retrieve customer")
		return OutcomeError
	}
	if c == nil || c.Deleted || c.ClerkUserID() == "" {
		logger.Info().Str("customer_id", customerID).Msg("customer deleted or not linked to a user, dropping")
		return OutcomeDropped
	}
	return s.apply(ctx, logger, model.SubscriptionUpdate{
		ClerkUserID:    c.ClerkUserID(),
		SubscriptionID: subscriptionID,
		Status:         status,
		EventAt:        eventAt,
	})
}

func (s *BillingService) apply(ctx context.Context, logger *zerolog.Logger, u model.SubscriptionUpdate) string {
	profileID, applied, err := s.Profiles.UpdateSubscription(ctx, u)
	if err != nil {
		logger.Error().Err(err).Str("clerk_user_id", u.ClerkUserID).Msg("failed to update subscription status")
		return OutcomeError
	}
	metrics.RecordSubscriptionUpdate(string(u.Status), applied)
	if !applied {
		logger.Info().Str("clerk_user_id", u.ClerkUserID).Msg("subscription update skipped: unknown profile or newer event already applied")
		return OutcomeStale
	}

	logger.Info().Str("clerk_user_id", u.ClerkUserID).Str("status", string(u.Status)).Msg("updated subscription status")
	queue.PublishBestEffort(ctx, s.Events, model.TopicProfileSubscriptionChanged, model.ProfileEvent{
		ClerkUserID:        u.ClerkUserID,
		ProfileID:          profileID,
		SubscriptionStatus: u.Status,
		SubscriptionPlan:   model.PlanFor(u.Status),
		OccurredAt:         u.EventAt.UTC(),
	})
	return OutcomeApplied
}

// objectID reads an expandable reference: either a bare id or an object with an id.
func objectID(r gjson.Result) string {
	if r.IsObject() {
		return r.Get("id").String()
	}
	return r.String()
}
