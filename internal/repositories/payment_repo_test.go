package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type PaymentRepoTestSuite struct {
	suite.Suite
	mock           pgxmock.PgxPoolIface
	repo           PaymentRepository
	subscriptionID uuid.UUID
	context        context.Context
}

func (suite *PaymentRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewPaymentRepo(mock)
	suite.subscriptionID = uuid.New()
	suite.context = context.Background()
}

func (suite *PaymentRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestPaymentRepoTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentRepoTestSuite))
}

func paymentRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "subscription_id", "amount", "currency", "status", "description", "origin", "external_payment_id", "receipt_object", "paid_at", "created_at", "updated_at"})
}

func (suite *PaymentRepoTestSuite) TestCreate_Success() {
	payment := &models.PaymentAttempt{
		ID:             uuid.New(),
		SubscriptionID: suite.subscriptionID,
		Amount:         59.0,
		Currency:       "USD",
		Status:         models.PaymentStatusSucceeded,
		Origin:         models.PaymentOriginManual,
	}

	suite.mock.ExpectExec(`
			INSERT INTO payments \(id, subscription_id, amount, currency, status, description, origin, external_payment_id, receipt_object, paid_at, created_at, updated_at\)
			VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, NOW\(\), NOW\(\)\)
		`).WithArgs(payment.ID, payment.SubscriptionID, payment.Amount, payment.Currency, payment.Status, payment.Description, payment.Origin, payment.ExternalPaymentID, payment.ReceiptObject, payment.PaidAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, payment)
	assert.NoError(suite.T(), err)
}

func (suite *PaymentRepoTestSuite) TestCreate_DatabaseError() {
	payment := &models.PaymentAttempt{
		ID:             uuid.New(),
		SubscriptionID: suite.subscriptionID,
		Status:         models.PaymentStatusPending,
		Origin:         models.PaymentOriginProcessor,
	}

	suite.mock.ExpectExec(`INSERT INTO payments`).
		WithArgs(payment.ID, payment.SubscriptionID, payment.Amount, payment.Currency, payment.Status, payment.Description, payment.Origin, payment.ExternalPaymentID, payment.ReceiptObject, payment.PaidAt).
		WillReturnError(errors.New("database connection failed"))

	err := suite.repo.Create(suite.context, payment)
	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "database connection failed")
}

func (suite *PaymentRepoTestSuite) TestGetLatest_Success() {
	paymentID := uuid.New()
	now := time.Now()

	suite.mock.ExpectQuery(`
			SELECT id, subscription_id, amount, currency, status, description, origin, external_payment_id, receipt_object, paid_at, created_at, updated_at
			FROM payments
			WHERE subscription_id = \$1
			ORDER BY created_at DESC
			LIMIT 1
		`).WithArgs(suite.subscriptionID).
		WillReturnRows(paymentRows().
			AddRow(paymentID, suite.subscriptionID, 59.0, "USD", models.PaymentStatusSucceeded, nil, models.PaymentOriginProcessor, nil, nil, &now, now, now))

	result, err := suite.repo.GetLatest(suite.context, suite.subscriptionID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), paymentID, result.ID)
	assert.Equal(suite.T(), models.PaymentStatusSucceeded, result.Status)
}

func (suite *PaymentRepoTestSuite) TestGetLatest_NoHistory() {
	suite.mock.ExpectQuery(`
			SELECT id, subscription_id, amount, currency, status, description, origin, external_payment_id, receipt_object, paid_at, created_at, updated_at
			FROM payments
			WHERE subscription_id = \$1
			ORDER BY created_at DESC
			LIMIT 1
		`).WithArgs(suite.subscriptionID).
		WillReturnError(pgx.ErrNoRows)

	result, err := suite.repo.GetLatest(suite.context, suite.subscriptionID)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), result)
}

func (suite *PaymentRepoTestSuite) TestGetLatestSucceeded_FiltersByStatus() {
	paymentID := uuid.New()
	now := time.Now()

	suite.mock.ExpectQuery(`
			SELECT id, subscription_id, amount, currency, status, description, origin, external_payment_id, receipt_object, paid_at, created_at, updated_at
			FROM payments
			WHERE subscription_id = \$1 AND status = 'succeeded'
			ORDER BY created_at DESC
			LIMIT 1
		`).WithArgs(suite.subscriptionID).
		WillReturnRows(paymentRows().
			AddRow(paymentID, suite.subscriptionID, 29.0, "USD", models.PaymentStatusSucceeded, nil, models.PaymentOriginProcessor, nil, nil, &now, now, now))

	result, err := suite.repo.GetLatestSucceeded(suite.context, suite.subscriptionID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), paymentID, result.ID)
}

func (suite *PaymentRepoTestSuite) TestGetByExternalID_Found() {
	paymentID := uuid.New()
	externalID := "pay_123"
	now := time.Now()

	suite.mock.ExpectQuery(`
			SELECT id, subscription_id, amount, currency, status, description, origin, external_payment_id, receipt_object, paid_at, created_at, updated_at
			FROM payments
			WHERE subscription_id = \$1 AND external_payment_id = \$2
		`).WithArgs(suite.subscriptionID, externalID).
		WillReturnRows(paymentRows().
			AddRow(paymentID, suite.subscriptionID, 59.0, "USD", models.PaymentStatusFailed, nil, models.PaymentOriginProcessor, &externalID, nil, nil, now, now))

	result, err := suite.repo.GetByExternalID(suite.context, suite.subscriptionID, externalID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), externalID, *result.ExternalPaymentID)
}

func (suite *PaymentRepoTestSuite) TestGetByExternalID_NotFound() {
	suite.mock.ExpectQuery(`
			SELECT id, subscription_id, amount, currency, status, description, origin, external_payment_id, receipt_object, paid_at, created_at, updated_at
			FROM payments
			WHERE subscription_id = \$1 AND external_payment_id = \$2
		`).WithArgs(suite.subscriptionID, "pay_missing").
		WillReturnError(pgx.ErrNoRows)

	result, err := suite.repo.GetByExternalID(suite.context, suite.subscriptionID, "pay_missing")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), result)
}

func (suite *PaymentRepoTestSuite) TestList_Success() {
	now := time.Now()
	rows := paymentRows().
		AddRow(uuid.New(), suite.subscriptionID, 59.0, "USD", models.PaymentStatusSucceeded, nil, models.PaymentOriginProcessor, nil, nil, &now, now, now).
		AddRow(uuid.New(), suite.subscriptionID, 59.0, "USD", models.PaymentStatusFailed, nil, models.PaymentOriginProcessor, nil, nil, nil, now.AddDate(0, -1, 0), now)

	suite.mock.ExpectQuery(`
			SELECT id, subscription_id, amount, currency, status, description, origin, external_payment_id, receipt_object, paid_at, created_at, updated_at
			FROM payments
			WHERE subscription_id = \$1
			ORDER BY created_at DESC
			LIMIT \$2
		`).WithArgs(suite.subscriptionID, 10).
		WillReturnRows(rows)

	result, err := suite.repo.List(suite.context, suite.subscriptionID, 10)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), result, 2)
	assert.Equal(suite.T(), models.PaymentStatusSucceeded, result[0].Status)
	assert.Equal(suite.T(), models.PaymentStatusFailed, result[1].Status)
}

func (suite *PaymentRepoTestSuite) TestList_Empty() {
	suite.mock.ExpectQuery(`
			SELECT id, subscription_id, amount, currency, status, description, origin, external_payment_id, receipt_object, paid_at, created_at, updated_at
			FROM payments
			WHERE subscription_id = \$1
			ORDER BY created_at DESC
			LIMIT \$2
		`).WithArgs(suite.subscriptionID, 20).
		WillReturnRows(paymentRows())

	result, err := suite.repo.List(suite.context, suite.subscriptionID, 20)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), result)
}

func (suite *PaymentRepoTestSuite) TestUpdate_Success() {
	now := time.Now()
	payment := &models.PaymentAttempt{
		ID:             uuid.New(),
		SubscriptionID: suite.subscriptionID,
		Amount:         75.0,
		Currency:       "USD",
		Status:         models.PaymentStatusSucceeded,
		Origin:         models.PaymentOriginManual,
		PaidAt:         &now,
	}

	suite.mock.ExpectExec(`
			UPDATE payments
			SET amount = \$1, currency = \$2, status = \$3, description = \$4, receipt_object = \$5, paid_at = \$6, updated_at = NOW\(\)
			WHERE id = \$7
		`).WithArgs(payment.Amount, payment.Currency, payment.Status, payment.Description, payment.ReceiptObject, payment.PaidAt, payment.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.Update(suite.context, payment)
	assert.NoError(suite.T(), err)
}

func (suite *PaymentRepoTestSuite) TestUpsertByExternalID_InsertAndReplay() {
	externalID := "pay_replay"
	now := time.Now()
	payment := &models.PaymentAttempt{
		ID:                uuid.New(),
		SubscriptionID:    suite.subscriptionID,
		Amount:            59.0,
		Currency:          "USD",
		Status:            models.PaymentStatusSucceeded,
		Origin:            models.PaymentOriginProcessor,
		ExternalPaymentID: &externalID,
		PaidAt:            &now,
	}

	upsert := `
			INSERT INTO payments \(id, subscription_id, amount, currency, status, description, origin, external_payment_id, receipt_object, paid_at, created_at, updated_at\)
			VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, NOW\(\), NOW\(\)\)
			ON CONFLICT \(subscription_id, external_payment_id\) WHERE external_payment_id IS NOT NULL
			DO UPDATE SET amount = EXCLUDED\.amount, currency = EXCLUDED\.currency, status = EXCLUDED\.status, paid_at = EXCLUDED\.paid_at, updated_at = NOW\(\)
		`

	// First delivery inserts.
	suite.mock.ExpectExec(upsert).
		WithArgs(payment.ID, payment.SubscriptionID, payment.Amount, payment.Currency, payment.Status, payment.Description, payment.Origin, payment.ExternalPaymentID, payment.ReceiptObject, payment.PaidAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.UpsertByExternalID(suite.context, payment)
	assert.NoError(suite.T(), err)

	// Replay takes the conflict path and updates the existing row.
	replay := &models.PaymentAttempt{
		ID:                uuid.New(),
		SubscriptionID:    suite.subscriptionID,
		Amount:            59.0,
		Currency:          "USD",
		Status:            models.PaymentStatusSucceeded,
		Origin:            models.PaymentOriginProcessor,
		ExternalPaymentID: &externalID,
		PaidAt:            &now,
	}
	suite.mock.ExpectExec(upsert).
		WithArgs(replay.ID, replay.SubscriptionID, replay.Amount, replay.Currency, replay.Status, replay.Description, replay.Origin, replay.ExternalPaymentID, replay.ReceiptObject, replay.PaidAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = suite.repo.UpsertByExternalID(suite.context, replay)
	assert.NoError(suite.T(), err)
}

func (suite *PaymentRepoTestSuite) TestContextCancellation() {
	cancelledCtx, cancel := context.WithCancel(suite.context)
	cancel()

	payment := &models.PaymentAttempt{
		ID:             uuid.New(),
		SubscriptionID: suite.subscriptionID,
		Status:         models.PaymentStatusPending,
		Origin:         models.PaymentOriginManual,
	}

	suite.mock.ExpectExec(`INSERT INTO payments`).
		WithArgs(payment.ID, payment.SubscriptionID, payment.Amount, payment.Currency, payment.Status, payment.Description, payment.Origin, payment.ExternalPaymentID, payment.ReceiptObject, payment.PaidAt).
		WillReturnError(context.Canceled)

	err := suite.repo.Create(cancelledCtx, payment)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), context.Canceled, err)
}
