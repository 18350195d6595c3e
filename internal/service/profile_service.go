// internal/service/profile_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/helpflow-backend/internal/errors"
	"github.com/unclebandit/helpflow-backend/internal/model"
	"github.com/unclebandit/helpflow-backend/internal/queue"
	"github.com/unclebandit/helpflow-backend/internal/repository"
)

type ProfileService struct {
	Profiles repository.ProfileRepositoryInterface
	Messages repository.DemoMessageRepositoryInterface
	Events   queue.Publisher
}

// GetOrCreateProfile returns the profile for a Clerk user. When none exists and an email is
// given, an inactive/free profile is created.
func (s *ProfileService) GetOrCreateProfile(ctx context.Context, clerkUserID, email string) (*model.Profile, bool, error) {
	const op = "profiles.GetOrCreate"
	clerkUserID, email = strings.TrimSpace(clerkUserID), strings.TrimSpace(email)
	if clerkUserID == "" {
		return nil, false, appErrors.E(appErrors.KindMissingFields, op, errors.New("clerk user id is required"))
	}

	p, err := s.Profiles.GetByClerkID(ctx, clerkUserID)
	if err == nil {
		return p, false, nil
	}
	if !appErrors.Is(err, appErrors.KindNotFound) {
		return nil, false, appErrors.E(appErrors.KindPersistence, op, err)
	}
	if email == "" {
		return nil, false, err
	}

	p = model.NewProfile(clerkUserID, email)
	if err := s.Profiles.Create(ctx, p); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, false, appErrors.E(appErrors.KindPersistence, op, err)
		}
		// created concurrently by the identity webhook
		existing, getErr := s.Profiles.GetByClerkID(ctx, clerkUserID)
		if getErr != nil {
			return nil, false, appErrors.E(appErrors.KindPersistence, op, getErr)
		}
		return existing, false, nil
	}

	queue.PublishBestEffort(ctx, s.Events, model.TopicProfileCreated, model.ProfileEvent{
		ClerkUserID:        p.ClerkUserID,
		ProfileID:          p.ID,
		SubscriptionStatus: p.SubscriptionStatus,
		SubscriptionPlan:   p.SubscriptionPlan,
		OccurredAt:         p.CreatedAt,
	})
	return p, true, nil
}

// maxListOffset caps (page-1)*pageSize so the OFFSET never overflows.
const maxListOffset = math.MaxInt32

type MessagePage struct {
	Messages     []*model.DemoMessage `json:"messages"`
	Pagination   map[string]int       `json:"pagination"`
	StatusCounts map[string]int       `json:"status_counts"`
}

// ListMessages fetches a user's messages with pagination. ownerClerkID, when set, must own userID.
func (s *ProfileService) ListMessages(ctx context.Context, userID, ownerClerkID string, page, pageSize int, status string) (*MessagePage, error) {
	const op = "profiles.ListMessages"
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, appErrors.E(appErrors.KindMissingFields, op, errors.New("userId is required"))
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, appErrors.E(appErrors.KindMalformedPayload, op, fmt.Errorf("userId is not a profile id: %w", err))
	}
	filter := model.MessageStatus(strings.TrimSpace(status))
	if filter != "" && !filter.Valid() {
		return nil, appErrors.E(appErrors.KindMalformedPayload, op, fmt.Errorf("unknown status %q", status))
	}
	if ownerClerkID != "" {
		p, err := s.Profiles.GetByID(ctx, userID)
		if err != nil {
			if appErrors.Is(err, appErrors.KindNotFound) {
				return nil, appErrors.E(appErrors.KindForbidden, op, err)
			}
			return nil, appErrors.E(appErrors.KindPersistence, op, err)
		}
		if p.ClerkUserID != ownerClerkID {
			return nil, appErrors.E(appErrors.KindForbidden, op, errors.New("profile belongs to another user"))
		}
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	if page-1 > maxListOffset/pageSize {
		return nil, appErrors.E(appErrors.KindMalformedPayload, op, fmt.Errorf("page %d out of range", page))
	}
	offset := (page - 1) * pageSize

	messages, total, err := s.Messages.ListByUser(ctx, userID, filter, offset, pageSize)
	if err != nil {
		return nil, appErrors.E(appErrors.KindPersistence, op, err)
	}
	counts, err := s.Messages.StatusCounts(ctx, userID)
	if err != nil {
		return nil, appErrors.E(appErrors.KindPersistence, op, err)
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &MessagePage{
		Messages: messages,
		Pagination: map[string]int{
			"page":        page,
			"page_size":   pageSize,
			"total_count": total,
			"total_pages": totalPages,
		},
		StatusCounts: counts,
	}, nil
}
