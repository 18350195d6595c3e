package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/unclebandit/helpflow-backend/internal/model"
)

// ErrEmptyOutput is returned when the model answers without usable content.
var ErrEmptyOutput = errors.New("no message generated")

// Request describes one email to generate.
type Request struct {
	RecipientEmail string
	Topic          string
}

// Generator turns a topic into a complete email.
type Generator interface {
	Generate(ctx context.Context, req Request) (*model.EmailContent, error)
}

const systemPrompt = `You are an assistant that writes professional, friendly business emails.
Write a complete email about the topic the user provides. The email must be ready to send:
no placeholders such as [Name] or [Company], no instructions to the reader, no markdown.
Invent a plausible sender name and sender company and sign the email with them.
Respond with a single JSON object and nothing else, using exactly these keys:
  "subject": the email subject line,
  "senderName": the name the email is signed with,
  "senderCompany": the company the sender represents,
  "htmlContent": the full email body as simple, inline-styled HTML,
  "textContent": the same email body as plain text.`

// ParseEmailContent extracts the structured email from raw model output.
func ParseEmailContent(raw string) (*model.EmailContent, error) {
	body := stripCodeFence(strings.TrimSpace(raw))
	if body == "" {
		return nil, ErrEmptyOutput
	}
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("model output is not valid JSON")
	}

	fields := gjson.GetMany(body, "subject", "senderName", "senderCompany", "htmlContent", "textContent")
	content := &model.EmailContent{
		Subject:          strings.TrimSpace(fields[0].String()),
		SenderName:       strings.TrimSpace(fields[1].String()),
		SenderCompany:    strings.TrimSpace(fields[2].String()),
		HTMLContent:      strings.TrimSpace(fields[3].String()),
		PlainTextContent: strings.TrimSpace(fields[4].String()),
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}
	return content, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
