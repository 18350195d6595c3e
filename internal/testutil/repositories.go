// Package testutil holds in-memory stand-ins for the stores and external clients.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/helpflow-backend/internal/errors"
	"github.com/unclebandit/helpflow-backend/internal/model"
	"github.com/unclebandit/helpflow-backend/internal/repository"
)

// ProfileStore is an in-memory ProfileRepositoryInterface.
type ProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile // by clerk user id

	// Err, when set, is returned by every call.
	Err error
	// SetCustomerErr, when set, is returned by SetStripeCustomerID only.
	SetCustomerErr error
}

var _ repository.ProfileRepositoryInterface = (*ProfileStore)(nil)

func NewProfileStore(seed ...*model.Profile) *ProfileStore {
	s := &ProfileStore{profiles: map[string]*model.Profile{}}
	for _, p := range seed {
		cp := *p
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		cp.SubscriptionPlan = model.PlanFor(cp.SubscriptionStatus)
		s.profiles[cp.ClerkUserID] = &cp
	}
	return s
}

// Get returns a copy of the stored profile, or nil.
func (s *ProfileStore) Get(clerkUserID string) *model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[clerkUserID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (s *ProfileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

func (s *ProfileStore) Create(ctx context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, exists := s.profiles[p.ClerkUserID]; exists {
		return fmt.Errorf("profile %s: %w", p.ClerkUserID, repository.ErrDuplicate)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.SubscriptionStatus == "" {
		p.SubscriptionStatus = model.SubscriptionInactive
	}
	p.SubscriptionPlan = model.PlanFor(p.SubscriptionStatus)
	p.CreatedAt = time.Now().UTC()
	cp := *p
	s.profiles[p.ClerkUserID] = &cp
	return nil
}

func (s *ProfileStore) GetByClerkID(ctx context.Context, clerkUserID string) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.profiles[clerkUserID]
	if !ok {
		return nil, appErrors.NewProfileNotFound(clerkUserID)
	}
	cp := *p
	return &cp, nil
}

func (s *ProfileStore) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, p := range s.profiles {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, appErrors.NewProfileNotFound(id)
}

func (s *ProfileStore) UpdateEmail(ctx context.Context, clerkUserID, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	p, ok := s.profiles[clerkUserID]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	p.Email = email
	p.UpdatedAt = &now
	return true, nil
}

func (s *ProfileStore) DeleteByClerkID(ctx context.Context, clerkUserID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.profiles[clerkUserID]
	delete(s.profiles, clerkUserID)
	return ok, nil
}

func (s *ProfileStore) SetStripeCustomerID(ctx context.Context, clerkUserID, customerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if s.SetCustomerErr != nil {
		return false, s.SetCustomerErr
	}
	p, ok := s.profiles[clerkUserID]
	if !ok || p.StripeCustomerID != nil {
		return false, nil
	}
	id := customerID
	p.StripeCustomerID = &id
	return true, nil
}

func (s *ProfileStore) UpdateSubscription(ctx context.Context, u model.SubscriptionUpdate) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", false, s.Err
	}
	p, ok := s.profiles[u.ClerkUserID]
	if !ok {
		return "", false, nil
	}
	if p.SubscriptionEventAt != nil && p.SubscriptionEventAt.After(u.EventAt) {
		return "", false, nil
	}
	eventAt := u.EventAt.UTC()
	now := time.Now().UTC()
	p.SubscriptionStatus = u.Status
	p.SubscriptionPlan = model.PlanFor(u.Status)
	if u.SubscriptionID != "" {
		sub := u.SubscriptionID
		p.StripeSubscriptionID = &sub
	}
	p.SubscriptionEventAt = &eventAt
	p.UpdatedAt = &now
	return p.ID, true, nil
}

// MessageStore is an in-memory DemoMessageRepositoryInterface enforcing the transition table.
type MessageStore struct {
	mu       sync.Mutex
	messages map[string]*model.DemoMessage
	order    []string

	CreateErr error
	// FailOn makes the transition to the given status return an error.
	FailOn map[model.MessageStatus]error
}

var _ repository.DemoMessageRepositoryInterface = (*MessageStore)(nil)

func NewMessageStore() *MessageStore {
	return &MessageStore{messages: map[string]*model.DemoMessage{}, FailOn: map[model.MessageStatus]error{}}
}

// Get returns a copy of a stored message, or nil.
func (s *MessageStore) Get(id string) *model.DemoMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *MessageStore) Create(ctx context.Context, m *model.DemoMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Status = model.MessagePending
	m.CreatedAt = time.Now().UTC().Add(time.Duration(len(s.order)) * time.Microsecond)
	cp := *m
	s.messages[m.ID] = &cp
	s.order = append(s.order, m.ID)
	return nil
}

func (s *MessageStore) GetByID(ctx context.Context, id string) (*model.DemoMessage, error) {
	m := s.Get(id)
	if m == nil {
		return nil, appErrors.NewMessageNotFound(id)
	}
	return m, nil
}

func (s *MessageStore) transition(op, id string, to model.MessageStatus, apply func(m *model.DemoMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailOn[to]; err != nil {
		return appErrors.E(appErrors.KindPersistence, op, err)
	}
	m, ok := s.messages[id]
	if !ok || !model.CanTransition(m.Status, to) {
		return appErrors.E(appErrors.KindIllegalTransition, op, fmt.Errorf("message %s cannot move to %s", id, to))
	}
	m.Status = to
	apply(m)
	return nil
}

func (s *MessageStore) MarkGenerated(ctx context.Context, id string, c *model.EmailContent) error {
	return s.transition("MarkGenerated", id, model.MessageGenerated, func(m *model.DemoMessage) {
		m.GeneratedMessage = strPtr(c.HTMLContent)
		m.EmailSubject = strPtr(c.Subject)
		m.SenderName = strPtr(c.SenderName)
		m.SenderCompany = strPtr(c.SenderCompany)
		m.PlainTextContent = strPtr(c.PlainTextContent)
	})
}

func (s *MessageStore) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return s.transition("MarkSent", id, model.MessageSent, func(m *model.DemoMessage) {
		t := sentAt.UTC()
		m.SentAt = &t
	})
}

func (s *MessageStore) MarkFailed(ctx context.Context, id string, reason string) error {
	return s.transition("MarkFailed", id, model.MessageFailed, func(m *model.DemoMessage) {
		m.LastError = strPtr(reason)
	})
}

func (s *MessageStore) ListByUser(ctx context.Context, userID string, status model.MessageStatus, offset, limit int) ([]*model.DemoMessage, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*model.DemoMessage
	for _, m := range s.messages {
		if m.UserID == userID && (status == "" || m.Status == status) {
			cp := *m
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if offset >= total {
		return []*model.DemoMessage{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *MessageStore) StatusCounts(ctx context.Context, userID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{"pending": 0, "generated": 0, "sent": 0, "failed": 0}
	for _, m := range s.messages {
		if m.UserID == userID {
			counts[string(m.Status)]++
		}
	}
	return counts, nil
}

// ErrBoom is a generic failure for injecting errors.
var ErrBoom = errors.New("boom")

func strPtr(s string) *string { return &s }
