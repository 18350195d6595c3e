package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/unclebandit/helpflow-backend/internal/billing"
	"github.com/unclebandit/helpflow-backend/internal/delivery"
	"github.com/unclebandit/helpflow-backend/internal/generator"
	"github.com/unclebandit/helpflow-backend/internal/model"
)

// Gateway is a scripted billing.Gateway that records what it was asked to do.
type Gateway struct {
	mu sync.Mutex

	Customers     map[string]*billing.Customer // by id
	Subscriptions map[string]*billing.Subscription

	CheckoutURL string
	PortalURL   string
	Err         error
	CheckoutErr error

	Created          []*billing.Customer
	CheckoutRequests []billing.CheckoutRequest
	PortalCustomers  []string
	EmailLookups     []string
}

var _ billing.Gateway = (*Gateway)(nil)

func NewGateway() *Gateway {
	return &Gateway{
		Customers:     map[string]*billing.Customer{},
		Subscriptions: map[string]*billing.Subscription{},
		CheckoutURL:   "https://checkout.stripe.test/session",
		PortalURL:     "https://billing.stripe.test/portal",
	}
}

func (g *Gateway) FindCustomerByEmail(ctx context.Context, email string) (*billing.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.EmailLookups = append(g.EmailLookups, email)
	if g.Err != nil {
		return nil, g.Err
	}
	var found *billing.Customer
	for _, c := range g.Customers {
		if c.Email == email && !c.Deleted && (found == nil || c.ID < found.ID) {
			found = c
		}
	}
	return found, nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, email, clerkUserID string) (*billing.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	c := &billing.Customer{
		ID:       fmt.Sprintf("cus_new_%d", len(g.Created)+1),
		Email:    email,
		Metadata: map[string]string{billing.MetadataClerkUserID: clerkUserID},
	}
	g.Customers[c.ID] = c
	g.Created = append(g.Created, c)
	return c, nil
}

func (g *Gateway) GetCustomer(ctx context.Context, id string) (*billing.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	c, ok := g.Customers[id]
	if !ok {
		return nil, fmt.Errorf("no such customer: %s", id)
	}
	return c, nil
}

func (g *Gateway) GetSubscription(ctx context.Context, id string) (*billing.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	s, ok := g.Subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", id)
	}
	return s, nil
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	if g.CheckoutErr != nil {
		return "", g.CheckoutErr
	}
	g.CheckoutRequests = append(g.CheckoutRequests, req)
	return g.CheckoutURL, nil
}

func (g *Gateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	g.PortalCustomers = append(g.PortalCustomers, customerID)
	return g.PortalURL, nil
}

// Generator returns a fixed email or error.
type Generator struct {
	Content *model.EmailContent
	Err     error
	Calls   int
}

var _ generator.Generator = (*Generator)(nil)

func NewGenerator() *Generator {
	return &Generator{Content: &model.EmailContent{
		Subject:          "Welcome to HelpFlow",
		SenderName:       "Ann Lee",
		SenderCompany:    "HelpFlow",
		HTMLContent:      "<p>Welcome!</p>",
		PlainTextContent: "Welcome!",
	}}
}

func (g *Generator) Generate(ctx context.Context, req generator.Request) (*model.EmailContent, error) {
	g.Calls++
	if g.Err != nil {
		return nil, g.Err
	}
	cp := *g.Content
	return &cp, nil
}

// Sender records delivery payloads.
type Sender struct {
	Disabled bool
	Err      error
	Sent     []delivery.Payload
}

var _ delivery.Sender = (*Sender)(nil)

func (s *Sender) Enabled() bool { return !s.Disabled }

func (s *Sender) Send(ctx context.Context, p delivery.Payload) error {
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, p)
	return nil
}

// Event is one published lifecycle event.
type Event struct {
	Topic   string
	Payload any
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	Events []Event
	Err    error
}

func (p *Publisher) Publish(ctx context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, Event{Topic: topic, Payload: payload})
	return p.Err
}

// Topics lists published topics in order.
func (p *Publisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Events))
	for i, e := range p.Events {
		out[i] = e.Topic
	}
	return out
}
