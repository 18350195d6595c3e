// internal/service/identity_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	appErrors "github.com/unclebandit/helpflow-backend/internal/errors"
	"github.com/unclebandit/helpflow-backend/internal/model"
	"github.com/unclebandit/helpflow-backend/internal/queue"
	"github.com/unclebandit/helpflow-backend/internal/repository"
)

// Identity provider event types the backend acts on.
const (
	IdentityUserCreated = "user.created"
	IdentityUserUpdated = "user.updated"
	IdentityUserDeleted = "user.deleted"
)

// IdentityEvent is the verified webhook envelope.
type IdentityEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type IdentityResult struct {
	Message   string
	ProfileID string
}

type clerkUser struct {
	ID                    string `json:"id"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// PrimaryEmail returns the address whose id matches primary_email_address_id.
func (u *clerkUser) PrimaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return strings.TrimSpace(e.EmailAddress)
		}
	}
	return ""
}

type IdentityService struct {
	Profiles repository.ProfileRepositoryInterface
	Events   queue.Publisher
	Now      func() time.Time
}

// Apply mirrors one identity event onto the profiles table.
func (s *IdentityService) Apply(ctx context.Context, evt IdentityEvent) (*IdentityResult, error) {
	switch evt.Type {
	case IdentityUserCreated:
		return s.userCreated(ctx, evt.Data)
	case IdentityUserUpdated:
		return s.userUpdated(ctx, evt.Data)
	case IdentityUserDeleted:
		return s.userDeleted(ctx, evt.Data)
	default:
		log.Ctx(ctx).Info().Str("type", evt.Type).Msg("unhandled identity webhook type")
		return &IdentityResult{Message: fmt.Sprintf("Webhook %s received but not processed", evt.Type)}, nil
	}
}

func (s *IdentityService) decodeUser(op string, data json.RawMessage) (*clerkUser, error) {
	var u clerkUser
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, appErrors.E(appErrors.KindMalformedPayload, op, err)
	}
	if strings.TrimSpace(u.ID) == "" {
		return nil, appErrors.E(appErrors.KindMalformedPayload, op, errors.New("user id missing"))
	}
	return &u, nil
}

func (s *IdentityService) userCreated(ctx context.Context, data json.RawMessage) (*IdentityResult, error) {
	const op = "identity.userCreated"
	u, err := s.decodeUser(op, data)
	if err != nil {
		return nil, err
	}
	email := u.PrimaryEmail()
	if email == "" {
		log.Ctx(ctx).Warn().Str("clerk_user_id", u.ID).Msg("no primary email found for user")
		return nil, appErrors.E(appErrors.KindMissingPrimaryEmail, op, fmt.Errorf("user %s has no primary email", u.ID))
	}

	profile := model.NewProfile(u.ID, email)
	if err := s.Profiles.Create(ctx, profile); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.E(appErrors.KindPersistence, op, err)
		}
		existing, getErr := s.Profiles.GetByClerkID(ctx, u.ID)
		if getErr != nil {
			return nil, appErrors.E(appErrors.KindPersistence, op, getErr)
		}
		log.Ctx(ctx).Info().Str("clerk_user_id", u.ID).Msg("duplicate user.created delivery, profile already exists")
		return &IdentityResult{Message: "User profile already exists", ProfileID: existing.ID}, nil
	}

	log.Ctx(ctx).Info().Str("clerk_user_id", u.ID).Str("profile_id", profile.ID).Msg("created profile")
	s.publish(ctx, model.TopicProfileCreated, profile)
	return &IdentityResult{Message: "User profile created successfully", ProfileID: profile.ID}, nil
}

func (s *IdentityService) userUpdated(ctx context.Context, data json.RawMessage) (*IdentityResult, error) {
	const op = "identity.userUpdated"
	u, err := s.decodeUser(op, data)
	if err != nil {
		return nil, err
	}
	email := u.PrimaryEmail()
	if email == "" {
		log.Ctx(ctx).Warn().Str("clerk_user_id", u.ID).Msg("user.updated without resolvable primary email")
		return &IdentityResult{Message: "No primary email to update"}, nil
	}

	found, err := s.Profiles.UpdateEmail(ctx, u.ID, email)
	if err != nil {
		return nil, appErrors.E(appErrors.KindPersistence, op, err)
	}
	if !found {
		log.Ctx(ctx).Warn().Str("clerk_user_id", u.ID).Msg("user.updated for unknown profile")
		return &IdentityResult{Message: "profile not found"}, nil
	}

	s.publish(ctx, model.TopicProfileUpdated, &model.Profile{ClerkUserID: u.ID})
	return &IdentityResult{Message: "User profile updated successfully"}, nil
}

func (s *IdentityService) userDeleted(ctx context.Context, data json.RawMessage) (*IdentityResult, error) {
	const op = "identity.userDeleted"
	u, err := s.decodeUser(op, data)
	if err != nil {
		return nil, err
	}

	found, err := s.Profiles.DeleteByClerkID(ctx, u.ID)
	if err != nil {
		return nil, appErrors.E(appErrors.KindPersistence, op, err)
	}
	if !found {
		log.Ctx(ctx).Info().Str("clerk_user_id", u.ID).Msg("user.deleted for unknown profile")
		return &IdentityResult{Message: "profile not found"}, nil
	}

	s.publish(ctx, model.TopicProfileDeleted, &model.Profile{ClerkUserID: u.ID})
	return &IdentityResult{Message: "User profile deleted successfully"}, nil
}

func (s *IdentityService) publish(ctx context.Context, topic string, p *model.Profile) {
	queue.PublishBestEffort(ctx, s.Events, topic, model.ProfileEvent{
		ClerkUserID:        p.ClerkUserID,
		ProfileID:          p.ID,
		SubscriptionStatus: p.SubscriptionStatus,
		SubscriptionPlan:   p.SubscriptionPlan,
		OccurredAt:         now(s.Now),
	})
}

func now(fn func() time.Time) time.Time {
	if fn != nil {
		return fn().UTC()
	}
	return time.Now().UTC()
}
