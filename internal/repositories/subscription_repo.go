package repositories

import (
	"context"
	"errors"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) error
	// GetByUserID returns nil, nil when the user has never been billed.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	GetByProcessorCustomerID(ctx context.Context, customerID string) (*models.Subscription, error)
	Update(ctx context.Context, subscription *models.Subscription) error
	ListByStatus(ctx context.Context, status models.SubscriptionStatus, limit, offset int) ([]*models.Subscription, error)
}

type subscriptionRepo struct {
	db DB
}

func NewSubscriptionRepo(db DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

const subscriptionColumns = `id, user_id, plan_tier, status, period_start, period_end, cancel_at_period_end, processor_customer_id, processor_subscription_id, created_at, updated_at`

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanTier, &sub.Status, &sub.PeriodStart, &sub.PeriodEnd, &sub.CancelAtPeriodEnd, &sub.ProcessorCustomerID, &sub.ProcessorSubscriptionID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *subscriptionRepo) Create(ctx context.Context, subscription *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, plan_tier, status, period_start, period_end, cancel_at_period_end, processor_customer_id, processor_subscription_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, subscription.ID, subscription.UserID, subscription.PlanTier, subscription.Status, subscription.PeriodStart, subscription.PeriodEnd, subscription.CancelAtPeriodEnd, subscription.ProcessorCustomerID, subscription.ProcessorSubscriptionID)
	return err
}

func (r *subscriptionRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
	`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func (r *subscriptionRepo) GetByProcessorCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE processor_customer_id = $1
	`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func (r *subscriptionRepo) Update(ctx context.Context, subscription *models.Subscription) error {
	query := `
		UPDATE subscriptions
		SET plan_tier = $1, status = $2, period_start = $3, period_end = $4, cancel_at_period_end = $5, processor_customer_id = $6, processor_subscription_id = $7, updated_at = NOW()
		WHERE id = $8
	`
	_, err := r.db.Exec(ctx, query, subscription.PlanTier, subscription.Status, subscription.PeriodStart, subscription.PeriodEnd, subscription.CancelAtPeriodEnd, subscription.ProcessorCustomerID, subscription.ProcessorSubscriptionID, subscription.ID)
	return err
}

func (r *subscriptionRepo) ListByStatus(ctx context.Context, status models.SubscriptionStatus, limit, offset int) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = $1
		ORDER BY period_end ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subscriptions []*models.Subscription
	for rows.Next() {
		sub := &models.Subscription{}
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.PlanTier, &sub.Status, &sub.PeriodStart, &sub.PeriodEnd, &sub.CancelAtPeriodEnd, &sub.ProcessorCustomerID, &sub.ProcessorSubscriptionID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, sub)
	}
	return subscriptions, rows.Err()
}
