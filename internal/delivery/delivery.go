// internal/delivery/delivery.go
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Payload is the JSON body posted to the delivery workflow.
type Payload struct {
	MessageID        string `json:"message_id"`
	RecipientEmail   string `json:"recipient_email"`
	MessageTopic     string `json:"message_topic"`
	EmailSubject     string `json:"email_subject"`
	SenderName       string `json:"sender_name"`
	SenderCompany    string `json:"sender_company"`
	GeneratedMessage string `json:"generated_message"`
	PlainTextContent string `json:"plain_text_content"`
}

// Sender hands a generated email to the downstream delivery workflow.
type Sender interface {
	// Enabled reports whether a delivery endpoint is configured.
	Enabled() bool
	Send(ctx context.Context, p Payload) error
}

// WebhookSender posts payloads to an HTTP endpoint (an n8n workflow in production).
type WebhookSender struct {
	url    string
	client *http.Client
}

var _ Sender = (*WebhookSender)(nil)

func NewWebhookSender(url string, client *http.Client) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebhookSender{url: strings.TrimSpace(url), client: client}
}

func (s *WebhookSender) Enabled() bool {
	return s != nil && s.url != ""
}

// Send returns an error for transport failures and any non-2xx answer.
func (s *WebhookSender) Send(ctx context.Context, p Payload) error {
	if !s.Enabled() {
		return fmt.Errorf("delivery webhook not configured")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal delivery payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivery request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("delivery webhook answered %s", resp.Status)
	}
	return nil
}
