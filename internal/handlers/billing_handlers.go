package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/common"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxReceiptSize = 10 << 20 // 10 MiB

// BillingHandlers handles HTTP requests for billing status and manual
// trainer corrections
type BillingHandlers struct {
	statusSvc   services.BillingStatusService
	overrideSvc services.PaymentOverrideService
	receiptSvc  services.ReceiptService
}

// NewBillingHandlers creates a new billing handlers instance
func NewBillingHandlers(
	statusSvc services.BillingStatusService,
	overrideSvc services.PaymentOverrideService,
	receiptSvc services.ReceiptService,
) *BillingHandlers {
	return &BillingHandlers{
		statusSvc:   statusSvc,
		overrideSvc: overrideSvc,
		receiptSvc:  receiptSvc,
	}
}

// GetBillingStatus handles GET /billing/status
func (h *BillingHandlers) GetBillingStatus(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	overview, err := h.statusSvc.Overview(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load billing status")
	}

	return c.JSON(http.StatusOK, overview)
}

// ListPayments handles GET /billing/payments
func (h *BillingHandlers) ListPayments(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	limit := 20
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 {
			limit = l
		}
	}
	limit, _ = common.ValidatePaginationParams(limit, 0)

	payments, err := h.statusSvc.PaymentHistory(ctx, userID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load payment history")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"payments": payments,
		"limit":    limit,
	})
}

// ListPlans handles GET /billing/plans
func (h *BillingHandlers) ListPlans(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"plans": h.statusSvc.AvailablePlans(),
	})
}

type setClientPaymentRequest struct {
	Amount      *float64 `json:"amount"`
	DueDate     *string  `json:"due_date"`
	PlanType    *string  `json:"plan_type"`
	Status      *string  `json:"status"`
	Description *string  `json:"description"`
}

// SetClientPayment handles PUT /trainer/clients/:id/payment. The
// trainer relationship check happens in middleware before this runs.
func (h *BillingHandlers) SetClientPayment(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, err := common.ValidateUUID(c.Param("id"), "client id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req setClientPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if req.Amount == nil && req.DueDate == nil && req.PlanType == nil && req.Status == nil {
		return common.SendValidationError(c, "body", "at least one of amount, due_date, plan_type, status is required")
	}

	override := &services.PaymentOverrideRequest{
		Amount:      req.Amount,
		PlanTier:    req.PlanType,
		Status:      req.Status,
		Description: req.Description,
	}

	if req.Amount != nil {
		if err := common.ValidatePositiveFloat(*req.Amount, "amount", 100000); err != nil {
			return common.SendValidationError(c, "amount", err.Error())
		}
	}
	if req.DueDate != nil {
		due, err := common.ValidateDateFormat(*req.DueDate, "due_date")
		if err != nil {
			return common.SendValidationError(c, "due_date", err.Error())
		}
		override.DueDate = &due
	}

	result, err := h.overrideSvc.SetClientPayment(ctx, clientID, override)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	effects := make([]map[string]interface{}, 0, len(result.Effects))
	for _, effect := range result.Effects {
		effects = append(effects, map[string]interface{}{
			"kind": effect.Kind,
			"ok":   effect.Err == nil,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":      "Client payment updated successfully",
		"subscription": result.Subscription,
		"payment":      result.Payment,
		"effects":      effects,
	})
}

// UploadReceipt handles POST /trainer/clients/:id/payment/receipt
func (h *BillingHandlers) UploadReceipt(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, err := common.ValidateUUID(c.Param("id"), "client id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("receipt")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Receipt file is required")
	}
	if file.Size > maxReceiptSize {
		return echo.NewHTTPError(http.StatusBadRequest, "Receipt file too large")
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read receipt file")
	}
	defer src.Close()

	objectName := fmt.Sprintf("%s/%s-%s", clientID.String(), uuid.New().String(), file.Filename)
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.receiptSvc.Upload(ctx, objectName, src, file.Size, contentType); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store receipt")
	}

	payment, err := h.overrideSvc.AttachReceipt(ctx, clientID, objectName)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	url, err := h.receiptSvc.GetPresignedURL(objectName, 24*time.Hour)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate receipt URL")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":     "Receipt uploaded successfully",
		"payment":     payment,
		"receipt_url": url,
	})
}
