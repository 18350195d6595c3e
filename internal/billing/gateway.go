// internal/billing/gateway.go
package billing

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by every gateway call when no API key is set.
var ErrNotConfigured = errors.New("stripe secret key not configured")

// MetadataClerkUserID is the metadata key correlating Stripe objects with identities.
const MetadataClerkUserID = "clerk_user_id"

// Customer is the subset of a billing customer the backend reads.
type Customer struct {
	ID       string
	Email    string
	Metadata map[string]string
	Deleted  bool
}

// ClerkUserID returns the identity stored in the customer's metadata, if any.
func (c *Customer) ClerkUserID() string {
	if c == nil || c.Metadata == nil {
		return ""
	}
	return c.Metadata[MetadataClerkUserID]
}

type Subscription struct {
	ID         string
	CustomerID string
	Status     string
}

type CheckoutRequest struct {
	CustomerID  string
	ClerkUserID string
	PriceID     string // empty uses the inline demo plan price
	SuccessURL  string
	CancelURL   string
}

// Demo plan used when no configured price id exists.
const (
	DemoPlanName        = "HelpFlow Demo Plan"
	DemoPlanDescription = "Access to AI-generated customer messages"
	DemoPlanAmountCents = 999
	DemoPlanCurrency    = "usd"
)

// Gateway is everything the services need from the payment platform.
type Gateway interface {
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	CreateCustomer(ctx context.Context, email, clerkUserID string) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
