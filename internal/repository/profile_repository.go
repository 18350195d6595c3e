// internal/repository/profile_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/helpflow-backend/internal/errors"
	"github.com/unclebandit/helpflow-backend/internal/model"
)

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

const uniqueViolation = "23505"

type ProfileRepositoryInterface interface {
	Create(ctx context.Context, p *model.Profile) error
	GetByClerkID(ctx context.Context, clerkUserID string) (*model.Profile, error)
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	UpdateEmail(ctx context.Context, clerkUserID, email string) (bool, error)
	DeleteByClerkID(ctx context.Context, clerkUserID string) (bool, error)
	SetStripeCustomerID(ctx context.Context, clerkUserID, customerID string) (bool, error)
	UpdateSubscription(ctx context.Context, u model.SubscriptionUpdate) (string, bool, error)
}

type ProfileRepository struct {
	DB *sqlx.DB
}

var _ ProfileRepositoryInterface = (*ProfileRepository)(nil)

const profileColumns = `id, clerk_user_id, email, subscription_status, subscription_plan,
        stripe_customer_id, stripe_subscription_id, subscription_event_at, created_at, updated_at`

func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.SubscriptionStatus == "" {
		p.SubscriptionStatus = model.SubscriptionInactive
	}
	p.SubscriptionPlan = model.PlanFor(p.SubscriptionStatus)
	p.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO profiles (id, clerk_user_id, email, subscription_status, subscription_plan, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.DB.ExecContext(ctx, query, p.ID, p.ClerkUserID, p.Email, p.SubscriptionStatus, p.SubscriptionPlan, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile %s: %w", p.ClerkUserID, ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *ProfileRepository) GetByClerkID(ctx context.Context, clerkUserID string) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE clerk_user_id=$1`
	var p model.Profile
	if err := r.DB.GetContext(ctx, &p, query, clerkUserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewProfileNotFound(clerkUserID)
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id=$1`
	var p model.Profile
	if err := r.DB.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewProfileNotFound(id)
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) UpdateEmail(ctx context.Context, clerkUserID, email string) (bool, error) {
	query := `UPDATE profiles SET email=$1, updated_at=$2 WHERE clerk_user_id=$3`
	res, err := r.DB.ExecContext(ctx, query, email, time.Now().UTC(), clerkUserID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// DeleteByClerkID removes the profile; its demo messages go with it via ON DELETE CASCADE.
func (r *ProfileRepository) DeleteByClerkID(ctx context.Context, clerkUserID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM profiles WHERE clerk_user_id=$1`, clerkUserID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// SetStripeCustomerID stores the customer id unless one is already recorded.
func (r *ProfileRepository) SetStripeCustomerID(ctx context.Context, clerkUserID, customerID string) (bool, error) {
	query := `
        UPDATE profiles SET stripe_customer_id=$1, updated_at=$2
        WHERE clerk_user_id=$3 AND stripe_customer_id IS NULL
    `
	res, err := r.DB.ExecContext(ctx, query, customerID, time.Now().UTC(), clerkUserID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// UpdateSubscription applies a billing-driven status change. Events older than the last
// applied one are skipped; the returned bool reports whether a row changed.
func (r *ProfileRepository) UpdateSubscription(ctx context.Context, u model.SubscriptionUpdate) (string, bool, error) {
	var subscriptionID *string
	if u.SubscriptionID != "" {
		subscriptionID = &u.SubscriptionID
	}

	query := `
        UPDATE profiles
        SET subscription_status=$1,
            subscription_plan=$2,
            stripe_subscription_id=COALESCE($3, stripe_subscription_id),
            subscription_event_at=$4,
            updated_at=$5
        WHERE clerk_user_id=$6
          AND (subscription_event_at IS NULL OR subscription_event_at <= $4)
        RETURNING id
    `
	var id string
	err := r.DB.QueryRowxContext(ctx, query,
		u.Status, model.PlanFor(u.Status), subscriptionID, u.EventAt.UTC(), time.Now().UTC(), u.ClerkUserID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
