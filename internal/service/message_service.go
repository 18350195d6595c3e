// internal/service/message_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/unclebandit/helpflow-backend/internal/delivery"
	appErrors "github.com/unclebandit/helpflow-backend/internal/errors"
	"github.com/unclebandit/helpflow-backend/internal/generator"
	"github.com/unclebandit/helpflow-backend/internal/metrics"
	"github.com/unclebandit/helpflow-backend/internal/model"
	"github.com/unclebandit/helpflow-backend/internal/queue"
	"github.com/unclebandit/helpflow-backend/internal/repository"
)

type GenerateRequest struct {
	RecipientEmail string `json:"recipientEmail"`
	MessageTopic   string `json:"messageTopic"`
	UserID         string `json:"userId"`

	// OwnerClerkID, when set, must own the profile named by UserID.
	OwnerClerkID string `json:"-"`
}

type GenerateResult struct {
	Success   bool                `json:"success"`
	Delivered bool                `json:"delivered"`
	Message   string              `json:"message"`
	EmailData *model.EmailContent `json:"emailData"`
	MessageID string              `json:"messageId"`
	Status    model.MessageStatus `json:"status"`
}

type MessageService struct {
	Messages  repository.DemoMessageRepositoryInterface
	Profiles  repository.ProfileRepositoryInterface
	Generator generator.Generator
	Sender    delivery.Sender
	Events    queue.Publisher
	Now       func() time.Time
}

// Generate runs one message through pending -> generated -> sent, or into failed.
func (s *MessageService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	const op = "messages.Generate"
	req.RecipientEmail = strings.TrimSpace(req.RecipientEmail)
	req.MessageTopic = strings.TrimSpace(req.MessageTopic)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.RecipientEmail == "" || req.MessageTopic == "" || req.UserID == "" {
		return nil, appErrors.E(appErrors.KindMissingFields, op, errors.New("recipientEmail, messageTopic and userId are required"))
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		return nil, appErrors.E(appErrors.KindMalformedPayload, op, fmt.Errorf("userId is not a profile id: %w", err))
	}
	if err := s.checkOwner(ctx, op, req.UserID, req.OwnerClerkID); err != nil {
		return nil, err
	}

	msg := &model.DemoMessage{
		UserID:         req.UserID,
		RecipientEmail: req.RecipientEmail,
		MessageTopic:   req.MessageTopic,
	}
	if err := s.Messages.Create(ctx, msg); err != nil {
		return nil, appErrors.E(appErrors.KindPersistence, op, err)
	}
	s.transitioned(ctx, msg, model.MessagePending, "")
	logger := log.Ctx(ctx).With().Str("message_id", msg.ID).Logger()

	start := time.Now()
	content, err := s.Generator.Generate(ctx, generator.Request{RecipientEmail: msg.RecipientEmail, Topic: msg.MessageTopic})
	metrics.ObserveGeneration(time.Since(start).Seconds())
	if err != nil {
		logger.Error().Err(err).Msg("AI generation error")
		s.fail(ctx, msg, "generation: "+err.Error())
		return nil, appErrors.E(appErrors.KindGenerationFailed, op, err)
	}

	if err := s.Messages.MarkGenerated(ctx, msg.ID, content); err != nil {
		logger.Error().Err(err).Msg("failed to store generated message")
		s.fail(ctx, msg, "store generated content: "+err.Error())
		return nil, appErrors.E(appErrors.KindPersistence, op, err)
	}
	s.transitioned(ctx, msg, model.MessageGenerated, "")

	result := &GenerateResult{Success: true, EmailData: content, MessageID: msg.ID}

	if s.Sender != nil && s.Sender.Enabled() {
		err := s.Sender.Send(ctx, delivery.Payload{
			MessageID:        msg.ID,
			RecipientEmail:   msg.RecipientEmail,
			MessageTopic:     msg.MessageTopic,
			EmailSubject:     content.Subject,
			SenderName:       content.SenderName,
			SenderCompany:    content.SenderCompany,
			GeneratedMessage: content.HTMLContent,
			PlainTextContent: content.PlainTextContent,
		})
		if err != nil {
			logger.Warn().Err(appErrors.E(appErrors.KindDeliveryFailed, op, err)).Msg("delivery webhook error")
			s.fail(ctx, msg, "delivery: "+err.Error())
			result.Delivered = false
			result.Message = "Message generated but email sending failed"
			result.Status = model.MessageFailed
			return result, nil
		}
	}

	if err := s.Messages.MarkSent(ctx, msg.ID, now(s.Now)); err != nil {
		logger.Error().Err(err).Msg("failed to mark message sent")
	} else {
		s.transitioned(ctx, msg, model.MessageSent, "")
	}

	result.Delivered = true
	result.Message = "Message generated and sent successfully"
	result.Status = model.MessageSent
	return result, nil
}

// GetMessage returns one demo message. ownerClerkID, when set, must own the message's profile.
func (s *MessageService) GetMessage(ctx context.Context, id, ownerClerkID string) (*model.DemoMessage, error) {
	const op = "messages.Get"
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.E(appErrors.KindNotFound, op, appErrors.NewMessageNotFound(id))
	}
	msg, err := s.Messages.GetByID(ctx, id)
	if err != nil {
		if appErrors.Is(err, appErrors.KindNotFound) {
			return nil, err
		}
		return nil, appErrors.E(appErrors.KindPersistence, op, err)
	}
	if err := s.checkOwner(ctx, op, msg.UserID, ownerClerkID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *MessageService) checkOwner(ctx context.Context, op, profileID, ownerClerkID string) error {
	if ownerClerkID == "" || s.Profiles == nil {
		return nil
	}
	p, err := s.Profiles.GetByID(ctx, profileID)
	if err != nil {
		if appErrors.Is(err, appErrors.KindNotFound) {
			return appErrors.E(appErrors.KindForbidden, op, err)
		}
		return appErrors.E(appErrors.KindPersistence, op, err)
	}
	if p.ClerkUserID != ownerClerkID {
		return appErrors.E(appErrors.KindForbidden, op, errors.New("profile belongs to another user"))
	}
	return nil
}

// fail moves the message to failed; a failure to do so is only logged.
func (s *MessageService) fail(ctx context.Context, msg *model.DemoMessage, reason string) {
	if err := s.Messages.MarkFailed(ctx, msg.ID, reason); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("message_id", msg.ID).Msg("failed to mark message failed")
		return
	}
	s.transitioned(ctx, msg, model.MessageFailed, reason)
}

func (s *MessageService) transitioned(ctx context.Context, msg *model.DemoMessage, to model.MessageStatus, reason string) {
	msg.Status = to
	metrics.RecordTransition(string(to))
	queue.PublishBestEffort(ctx, s.Events, model.TopicMessageStatusChanged, model.MessageEvent{
		MessageID:  msg.ID,
		UserID:     msg.UserID,
		Status:     to,
		Reason:     reason,
		OccurredAt: now(s.Now),
	})
}
