// internal/model/profile.go
package model

import "time"

// SubscriptionStatus mirrors the billing state of a profile.
type SubscriptionStatus string

const (
	SubscriptionInactive  SubscriptionStatus = "inactive"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// SubscriptionPlan is derived from SubscriptionStatus, never stored independently.
type SubscriptionPlan string

const (
	PlanFree SubscriptionPlan = "free"
	PlanDemo SubscriptionPlan = "demo"
)

type Profile struct {
	ID                   string             `db:"id" json:"id"`
	ClerkUserID          string             `db:"clerk_user_id" json:"clerk_user_id"`
	Email                string             `db:"email" json:"email"`
	SubscriptionStatus   SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	SubscriptionPlan     SubscriptionPlan   `db:"subscription_plan" json:"subscription_plan"`
	StripeCustomerID     *string            `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string            `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	SubscriptionEventAt  *time.Time         `db:"subscription_event_at" json:"-"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            *time.Time         `db:"updated_at" json:"updated_at,omitempty"`
}

// PlanFor returns the only plan a status may carry: active is the demo plan,
// every other status falls back to free.
func PlanFor(status SubscriptionStatus) SubscriptionPlan {
	if status == SubscriptionActive {
		return PlanDemo
	}
	return PlanFree
}

// SubscriptionStatusFromStripe maps a native Stripe subscription status.
func SubscriptionStatusFromStripe(status string) SubscriptionStatus {
	switch status {
	case "active":
		return SubscriptionActive
	case "canceled", "incomplete_expired":
		return SubscriptionCancelled
	case "past_due":
		return SubscriptionPastDue
	default:
		return SubscriptionInactive
	}
}

// NewProfile returns a profile in the initial inactive/free state.
func NewProfile(clerkUserID, email string) *Profile {
	return &Profile{
		ClerkUserID:        clerkUserID,
		Email:              email,
		SubscriptionStatus: SubscriptionInactive,
		SubscriptionPlan:   PlanFor(SubscriptionInactive),
	}
}

// SubscriptionUpdate is one billing-driven change to a profile.
type SubscriptionUpdate struct {
	ClerkUserID    string
	SubscriptionID string
	Status         SubscriptionStatus
	EventAt        time.Time
}
