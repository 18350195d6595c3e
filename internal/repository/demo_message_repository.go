// internal/repository/demo_message_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/helpflow-backend/internal/errors"
	"github.com/unclebandit/helpflow-backend/internal/model"
)

type DemoMessageRepositoryInterface interface {
	Create(ctx context.Context, m *model.DemoMessage) error
	GetByID(ctx context.Context, id string) (*model.DemoMessage, error)
	MarkGenerated(ctx context.Context, id string, content *model.EmailContent) error
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
	ListByUser(ctx context.Context, userID string, status model.MessageStatus, offset, limit int) ([]*model.DemoMessage, int, error)
	StatusCounts(ctx context.Context, userID string) (map[string]int, error)
}

type DemoMessageRepository struct {
	DB *sqlx.DB
}

var _ DemoMessageRepositoryInterface = (*DemoMessageRepository)(nil)

const messageColumns = `id, user_id, recipient_email, message_topic, generated_message, email_subject,
        sender_name, sender_company, plain_text_content, status, last_error, sent_at, created_at`

// Create inserts a pending message.
func (r *DemoMessageRepository) Create(ctx context.Context, m *model.DemoMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Status = model.MessagePending
	m.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO demo_messages (id, user_id, recipient_email, message_topic, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.DB.ExecContext(ctx, query, m.ID, m.UserID, m.RecipientEmail, m.MessageTopic, m.Status, m.CreatedAt)
	return err
}

func (r *DemoMessageRepository) GetByID(ctx context.Context, id string) (*model.DemoMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM demo_messages WHERE id=$1`
	var m model.DemoMessage
	if err := r.DB.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewMessageNotFound(id)
		}
		return nil, err
	}
	return &m, nil
}

func (r *DemoMessageRepository) MarkGenerated(ctx context.Context, id string, content *model.EmailContent) error {
	return r.transition(ctx, "MarkGenerated", id, model.MessageGenerated,
		[]string{"generated_message", "email_subject", "sender_name", "sender_company", "plain_text_content"},
		content.HTMLContent, content.Subject, content.SenderName, content.SenderCompany, content.PlainTextContent,
	)
}

func (r *DemoMessageRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.transition(ctx, "MarkSent", id, model.MessageSent, []string{"sent_at"}, sentAt.UTC())
}

func (r *DemoMessageRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.transition(ctx, "MarkFailed", id, model.MessageFailed, []string{"last_error"}, reason)
}

// transition moves a message to status `to` only from one of its allowed source statuses.
func (r *DemoMessageRepository) transition(ctx context.Context, op, id string, to model.MessageStatus, columns []string, values ...any) error {
	sets := []string{"status=$1"}
	args := []any{to}
	for i, col := range columns {
		sets = append(sets, fmt.Sprintf("%s=$%d", col, i+2))
		args = append(args, values[i])
	}

	sources := model.TransitionSources(to)
	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	n := len(args)
	query := fmt.Sprintf(
		`UPDATE demo_messages SET %s WHERE id=$%d AND status = ANY($%d)`,
		strings.Join(sets, ", "), n+1, n+2,
	)
	args = append(args, id, pq.Array(from))

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return appErrors.E(appErrors.KindPersistence, op, err)
	}
	ok, err := affected(res)
	if err != nil {
		return appErrors.E(appErrors.KindPersistence, op, err)
	}
	if !ok {
		return appErrors.E(appErrors.KindIllegalTransition, op,
			fmt.Errorf("message %s cannot move to %s", id, to))
	}
	return nil
}

// ListByUser returns a page of a user's messages, newest first, and the total matching count.
func (r *DemoMessageRepository) ListByUser(ctx context.Context, userID string, status model.MessageStatus, offset, limit int) ([]*model.DemoMessage, int, error) {
	where := ` WHERE user_id=$1`
	args := []any{userID}
	if status != "" {
		where += ` AND status=$2`
		args = append(args, status)
	}

	var total int
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM demo_messages`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + messageColumns + ` FROM demo_messages` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	messages := []*model.DemoMessage{}
	if err := r.DB.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *DemoMessageRepository) StatusCounts(ctx context.Context, userID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM demo_messages WHERE user_id=$1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{
		string(model.MessagePending):   0,
		string(model.MessageGenerated): 0,
		string(model.MessageSent):      0,
		string(model.MessageFailed):    0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
