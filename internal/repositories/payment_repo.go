package repositories

import (
	"context"
	"errors"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.PaymentAttempt) error
	Update(ctx context.Context, payment *models.PaymentAttempt) error
	// GetLatest returns the most recent attempt by creation time, or
	// nil, nil when the subscription has no payment history.
	GetLatest(ctx context.Context, subscriptionID uuid.UUID) (*models.PaymentAttempt, error)
	GetLatestSucceeded(ctx context.Context, subscriptionID uuid.UUID) (*models.PaymentAttempt, error)
	GetByExternalID(ctx context.Context, subscriptionID uuid.UUID, externalID string) (*models.PaymentAttempt, error)
	List(ctx context.Context, subscriptionID uuid.UUID, limit int) ([]*models.PaymentAttempt, error)
	// UpsertByExternalID inserts the attempt or, when a row with the same
	// processor payment id already exists, overwrites its status, amount
	// and paid timestamp. This is the idempotency barrier for webhook
	// replays: running it twice leaves exactly one row.
	UpsertByExternalID(ctx context.Context, payment *models.PaymentAttempt) error
}

type paymentRepo struct {
	db DB
}

func NewPaymentRepo(db DB) PaymentRepository {
	return &paymentRepo{db: db}
}

const paymentColumns = `id, subscription_id, amount, currency, status, description, origin, external_payment_id, receipt_object, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*models.PaymentAttempt, error) {
	p := &models.PaymentAttempt{}
	err := row.Scan(&p.ID, &p.SubscriptionID, &p.Amount, &p.Currency, &p.Status, &p.Description, &p.Origin, &p.ExternalPaymentID, &p.ReceiptObject, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) Create(ctx context.Context, payment *models.PaymentAttempt) error {
	query := `
		INSERT INTO payments (id, subscription_id, amount, currency, status, description, origin, external_payment_id, receipt_object, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, payment.ID, payment.SubscriptionID, payment.Amount, payment.Currency, payment.Status, payment.Description, payment.Origin, payment.ExternalPaymentID, payment.ReceiptObject, payment.PaidAt)
	return err
}

func (r *paymentRepo) Update(ctx context.Context, payment *models.PaymentAttempt) error {
	query := `
		UPDATE payments
		SET amount = $1, currency = $2, status = $3, description = $4, receipt_object = $5, paid_at = $6, updated_at = NOW()
		WHERE id = $7
	`
	_, err := r.db.Exec(ctx, query, payment.Amount, payment.Currency, payment.Status, payment.Description, payment.ReceiptObject, payment.PaidAt, payment.ID)
	return err
}

func (r *paymentRepo) GetLatest(ctx context.Context, subscriptionID uuid.UUID) (*models.PaymentAttempt, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE subscription_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	p, err := scanPayment(r.db.QueryRow(ctx, query, subscriptionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) GetLatestSucceeded(ctx context.Context, subscriptionID uuid.UUID) (*models.PaymentAttempt, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE subscription_id = $1 AND status = 'succeeded'
		ORDER BY created_at DESC
		LIMIT 1
	`
	p, err := scanPayment(r.db.QueryRow(ctx, query, subscriptionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) GetByExternalID(ctx context.Context, subscriptionID uuid.UUID, externalID string) (*models.PaymentAttempt, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE subscription_id = $1 AND external_payment_id = $2
	`
	p, err := scanPayment(r.db.QueryRow(ctx, query, subscriptionID, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) List(ctx context.Context, subscriptionID uuid.UUID, limit int) ([]*models.PaymentAttempt, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE subscription_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, subscriptionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.PaymentAttempt
	for rows.Next() {
		p := &models.PaymentAttempt{}
		if err := rows.Scan(&p.ID, &p.SubscriptionID, &p.Amount, &p.Currency, &p.Status, &p.Description, &p.Origin, &p.ExternalPaymentID, &p.ReceiptObject, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *paymentRepo) UpsertByExternalID(ctx context.Context, payment *models.PaymentAttempt) error {
	query := `
		INSERT INTO payments (id, subscription_id, amount, currency, status, description, origin, external_payment_id, receipt_object, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (subscription_id, external_payment_id) WHERE external_payment_id IS NOT NULL
		DO UPDATE SET amount = EXCLUDED.amount, currency = EXCLUDED.currency, status = EXCLUDED.status, paid_at = EXCLUDED.paid_at, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, payment.ID, payment.SubscriptionID, payment.Amount, payment.Currency, payment.Status, payment.Description, payment.Origin, payment.ExternalPaymentID, payment.ReceiptObject, payment.PaidAt)
	return err
}
