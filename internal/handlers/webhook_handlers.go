package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/caching"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/services"

	"github.com/labstack/echo/v4"
)

const (
	webhookRateLimit  = 120
	webhookRateWindow = time.Minute
)

// WebhookHandlers handles inbound payment-processor webhooks
type WebhookHandlers struct {
	reconciler    services.WebhookReconciler
	cacheSvc      caching.CacheService
	webhookSecret string
}

// NewWebhookHandlers creates a new webhook handlers instance
func NewWebhookHandlers(reconciler services.WebhookReconciler, cacheSvc caching.CacheService, webhookSecret string) *WebhookHandlers {
	return &WebhookHandlers{
		reconciler:    reconciler,
		cacheSvc:      cacheSvc,
		webhookSecret: webhookSecret,
	}
}

// verifySignature verifies the HMAC-SHA256 webhook signature
func (h *WebhookHandlers) verifySignature(signature string, body []byte) bool {
	hash := hmac.New(sha256.New, []byte(h.webhookSecret))
	hash.Write(body)
	expectedSignature := hex.EncodeToString(hash.Sum(nil))

	// Constant time comparison to prevent timing attacks
	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}

// ProcessorWebhook handles POST /webhooks/payments
func (h *WebhookHandlers) ProcessorWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	if h.cacheSvc != nil {
		key := "webhook:" + c.RealIP()
		limited, err := h.cacheSvc.IsRateLimited(ctx, key, webhookRateLimit, webhookRateWindow)
		if err != nil {
			log.Printf("Rate limit check failed: %v", err)
		} else if limited {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
		}
		if err := h.cacheSvc.IncrementRateLimit(ctx, key, webhookRateWindow); err != nil {
			log.Printf("Rate limit increment failed: %v", err)
		}
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	signature := c.Request().Header.Get("X-Processor-Signature")
	if signature == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing processor signature")
	}

	// Unverifiable payloads are rejected with a non-2xx so the
	// processor retries; nothing is applied to the ledger.
	if !h.verifySignature(signature, body) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid webhook signature")
	}

	var event services.ProcessorEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to parse webhook payload")
	}

	if err := h.reconciler.Process(ctx, &event); err != nil {
		log.Printf("Failed to process webhook event %s (%s): %v", event.ID, event.Type, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to process event")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "success",
		"event":  event.Type,
	})
}
