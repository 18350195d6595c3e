// internal/model/demo_message.go
package model

import (
	"fmt"
	"time"
)

type MessageStatus string

const (
	MessagePending   MessageStatus = "pending"
	MessageGenerated MessageStatus = "generated"
	MessageSent      MessageStatus = "sent"
	MessageFailed    MessageStatus = "failed"
)

// transitionSources lists, for each target status, the statuses a message may leave to reach it.
var transitionSources = map[MessageStatus][]MessageStatus{
	MessageGenerated: {MessagePending},
	MessageSent:      {MessageGenerated},
	MessageFailed:    {MessagePending, MessageGenerated},
}

// TransitionSources returns the statuses from which to is reachable.
func TransitionSources(to MessageStatus) []MessageStatus {
	return append([]MessageStatus(nil), transitionSources[to]...)
}

// CanTransition reports whether a message may move from one status to another.
func CanTransition(from, to MessageStatus) bool {
	for _, s := range transitionSources[to] {
		if s == from {
			return true
		}
	}
	return false
}

func (s MessageStatus) Valid() bool {
	switch s {
	case MessagePending, MessageGenerated, MessageSent, MessageFailed:
		return true
	}
	return false
}

type DemoMessage struct {
	ID               string        `db:"id" json:"id"`
	UserID           string        `db:"user_id" json:"user_id"`
	RecipientEmail   string        `db:"recipient_email" json:"recipient_email"`
	MessageTopic     string        `db:"message_topic" json:"message_topic"`
	GeneratedMessage *string       `db:"generated_message" json:"generated_message,omitempty"`
	EmailSubject     *string       `db:"email_subject" json:"email_subject,omitempty"`
	SenderName       *string       `db:"sender_name" json:"sender_name,omitempty"`
	SenderCompany    *string       `db:"sender_company" json:"sender_company,omitempty"`
	PlainTextContent *string       `db:"plain_text_content" json:"plain_text_content,omitempty"`
	Status           MessageStatus `db:"status" json:"status"` // pending, generated, sent, failed
	LastError        *string       `db:"last_error" json:"last_error,omitempty"`
	SentAt           *time.Time    `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}

// EmailContent is the structured output of one generation call.
type EmailContent struct {
	Subject          string `json:"subject"`
	SenderName       string `json:"senderName"`
	SenderCompany    string `json:"senderCompany"`
	HTMLContent      string `json:"htmlContent"`
	PlainTextContent string `json:"textContent"`
}

// Validate checks the fields a deliverable email cannot do without.
func (c *EmailContent) Validate() error {
	switch {
	case c == nil:
		return fmt.Errorf("email content is empty")
	case c.Subject == "":
		return fmt.Errorf("email content missing subject")
	case c.HTMLContent == "":
		return fmt.Errorf("email content missing html body")
	case c.PlainTextContent == "":
		return fmt.Errorf("email content missing plain text body")
	}
	return nil
}
