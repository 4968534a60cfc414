package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// MockWebhookReconciler mocks the WebhookReconciler interface for testing
type MockWebhookReconciler struct {
	mock.Mock
}

func (m *MockWebhookReconciler) Process(ctx context.Context, event *services.ProcessorEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockCacheService mocks the caching.CacheService interface for testing
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) MarkReminderSent(ctx context.Context, userID uuid.UUID, day time.Time) error {
	args := m.Called(ctx, userID, day)
	return args.Error(0)
}

func (m *MockCacheService) WasReminderSent(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error) {
	args := m.Called(ctx, userID, day)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) IncrementRateLimit(ctx context.Context, key string, window time.Duration) error {
	args := m.Called(ctx, key, window)
	return args.Error(0)
}

func (m *MockCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) GetString(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

const testWebhookSecret = "test-webhook-secret"

func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type WebhookHandlersTestSuite struct {
	suite.Suite
	mockReconciler *MockWebhookReconciler
	handler        *WebhookHandlers
	echo           *echo.Echo
}

func (suite *WebhookHandlersTestSuite) SetupTest() {
	suite.mockReconciler = new(MockWebhookReconciler)
	suite.handler = NewWebhookHandlers(suite.mockReconciler, nil, testWebhookSecret)
	suite.echo = echo.New()
}

func (suite *WebhookHandlersTestSuite) TearDownTest() {
	suite.mockReconciler.AssertExpectations(suite.T())
}

func (suite *WebhookHandlersTestSuite) postWebhook(body []byte, signature string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set("X-Processor-Signature", signature)
	}
	rec := httptest.NewRecorder()
	return suite.echo.NewContext(req, rec), rec
}

func (suite *WebhookHandlersTestSuite) TestProcessorWebhook_MissingSignature() {
	body := []byte(`{"id":"evt_1","type":"payment_succeeded","customer_id":"cus_1"}`)
	c, _ := suite.postWebhook(body, "")

	err := suite.handler.ProcessorWebhook(c)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusBadRequest, httpErr.Code)
	suite.mockReconciler.AssertNotCalled(suite.T(), "Process")
}

func (suite *WebhookHandlersTestSuite) TestProcessorWebhook_InvalidSignature() {
	body := []byte(`{"id":"evt_2","type":"payment_succeeded","customer_id":"cus_1"}`)
	c, _ := suite.postWebhook(body, "deadbeef")

	err := suite.handler.ProcessorWebhook(c)

	// The payload never reaches the reconciler; the processor sees a
	// non-2xx and retries with a good signature or not at all.
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusUnauthorized, httpErr.Code)
	suite.mockReconciler.AssertNotCalled(suite.T(), "Process")
}

func (suite *WebhookHandlersTestSuite) TestProcessorWebhook_SignatureOverDifferentBody() {
	signed := []byte(`{"id":"evt_3","type":"payment_succeeded","customer_id":"cus_1"}`)
	tampered := []byte(`{"id":"evt_3","type":"payment_succeeded","customer_id":"cus_2"}`)
	c, _ := suite.postWebhook(tampered, signPayload(testWebhookSecret, signed))

	err := suite.handler.ProcessorWebhook(c)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusUnauthorized, httpErr.Code)
	suite.mockReconciler.AssertNotCalled(suite.T(), "Process")
}

func (suite *WebhookHandlersTestSuite) TestProcessorWebhook_MalformedPayload() {
	body := []byte(`{"id":`)
	c, _ := suite.postWebhook(body, signPayload(testWebhookSecret, body))

	err := suite.handler.ProcessorWebhook(c)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusBadRequest, httpErr.Code)
	suite.mockReconciler.AssertNotCalled(suite.T(), "Process")
}

func (suite *WebhookHandlersTestSuite) TestProcessorWebhook_ReconcilerError() {
	body := []byte(`{"id":"evt_4","type":"payment_succeeded","customer_id":"cus_1","data":{"payment_id":"pay_1"}}`)
	c, _ := suite.postWebhook(body, signPayload(testWebhookSecret, body))

	suite.mockReconciler.On("Process", mock.Anything, mock.MatchedBy(func(e *services.ProcessorEvent) bool {
		return e.ID == "evt_4" && e.Type == services.EventPaymentSucceeded
	})).Return(errors.New("payments table unavailable")).Once()

	err := suite.handler.ProcessorWebhook(c)

	// Storage failures surface as a 500 so the processor redelivers.
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusInternalServerError, httpErr.Code)
}

func (suite *WebhookHandlersTestSuite) TestProcessorWebhook_VerifiedEventAcknowledged() {
	body := []byte(`{"id":"evt_5","type":"payment_succeeded","customer_id":"cus_1","data":{"payment_id":"pay_1","amount":59,"currency":"USD"}}`)
	c, rec := suite.postWebhook(body, signPayload(testWebhookSecret, body))

	suite.mockReconciler.On("Process", mock.Anything, mock.MatchedBy(func(e *services.ProcessorEvent) bool {
		return e.ID == "evt_5" && e.Data.PaymentID == "pay_1"
	})).Return(nil).Once()

	err := suite.handler.ProcessorWebhook(c)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), `"status":"success"`)
}

func (suite *WebhookHandlersTestSuite) TestProcessorWebhook_UnknownKindStillAcknowledged() {
	// The reconciler treats unknown event types as a no-op; the handler
	// must still answer 200 so the processor stops redelivering them.
	body := []byte(`{"id":"evt_6","type":"invoice.finalized","customer_id":"cus_1"}`)
	c, rec := suite.postWebhook(body, signPayload(testWebhookSecret, body))

	suite.mockReconciler.On("Process", mock.Anything, mock.MatchedBy(func(e *services.ProcessorEvent) bool {
		return e.Type == "invoice.finalized"
	})).Return(nil).Once()

	err := suite.handler.ProcessorWebhook(c)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
}

func (suite *WebhookHandlersTestSuite) TestProcessorWebhook_RateLimited() {
	mockCache := new(MockCacheService)
	handler := NewWebhookHandlers(suite.mockReconciler, mockCache, testWebhookSecret)

	body := []byte(`{"id":"evt_7","type":"payment_succeeded","customer_id":"cus_1"}`)
	c, _ := suite.postWebhook(body, signPayload(testWebhookSecret, body))

	mockCache.On("IsRateLimited", mock.Anything, mock.Anything, webhookRateLimit, webhookRateWindow).
		Return(true, nil).Once()

	err := handler.ProcessorWebhook(c)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusTooManyRequests, httpErr.Code)
	suite.mockReconciler.AssertNotCalled(suite.T(), "Process")
	mockCache.AssertExpectations(suite.T())
}

func TestWebhookHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(WebhookHandlersTestSuite))
}
