package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeGateway talks to the Stripe API through an injected client.
type StripeGateway struct {
	api        *client.API
	configured bool
}

var _ Gateway = (*StripeGateway)(nil)

// NewStripeGateway builds a gateway for the given secret key. backends may be nil.
func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	key := strings.TrimSpace(secretKey)
	api := &client.API{}
	api.Init(key, backends)
	return &StripeGateway{api: api, configured: key != ""}
}

func (g *StripeGateway) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	if !g.configured {
		return nil, ErrNotConfigured
	}
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := g.api.Customers.List(params)
	if it.Next() {
		return fromStripeCustomer(it.Customer()), nil
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, clerkUserID string) (*Customer, error) {
	if !g.configured {
		return nil, ErrNotConfigured
	}
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata(MetadataClerkUserID, clerkUserID)

	c, err := g.api.Customers.New(params)
	if err != nil {
		return nil, err
	}
	return fromStripeCustomer(c), nil
}

func (g *StripeGateway) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	if !g.configured {
		return nil, ErrNotConfigured
	}
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := g.api.Customers.Get(id, params)
	if err != nil {
		return nil, err
	}
	return fromStripeCustomer(c), nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	if !g.configured {
		return nil, ErrNotConfigured
	}
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := g.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, err
	}
	sub := &Subscription{ID: s.ID, Status: string(s.Status)}
	if s.Customer != nil {
		sub.CustomerID = s.Customer.ID
	}
	return sub, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	if !g.configured {
		return "", ErrNotConfigured
	}
	lineItem := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if req.PriceID != "" {
		lineItem.Price = stripe.String(req.PriceID)
	} else {
		lineItem.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(DemoPlanCurrency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:        stripe.String(DemoPlanName),
				Description: stripe.String(DemoPlanDescription),
			},
			UnitAmount: stripe.Int64(DemoPlanAmountCents),
			Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(req.CustomerID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{lineItem},
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		Metadata: map[string]string{
			MetadataClerkUserID: req.ClerkUserID,
		},
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	if s == nil || s.URL == "" {
		return "", errors.New("checkout session has no url")
	}
	return s.URL, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if !g.configured {
		return "", ErrNotConfigured
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", err
	}
	return s.URL, nil
}

func fromStripeCustomer(c *stripe.Customer) *Customer {
	if c == nil {
		return nil
	}
	return &Customer{
		ID:       c.ID,
		Email:    c.Email,
		Metadata: c.Metadata,
		Deleted:  c.Deleted,
	}
}
