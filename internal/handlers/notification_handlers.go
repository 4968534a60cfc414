package handlers

import (
	"net/http"
	"strconv"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/common"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/repositories"

	"github.com/labstack/echo/v4"
)

// NotificationHandlers handles HTTP requests for the notification feed
type NotificationHandlers struct {
	notificationRepo repositories.NotificationRepository
}

// NewNotificationHandlers creates a new notification handlers instance
func NewNotificationHandlers(notificationRepo repositories.NotificationRepository) *NotificationHandlers {
	return &NotificationHandlers{notificationRepo: notificationRepo}
}

// ListNotifications handles GET /notifications
func (h *NotificationHandlers) ListNotifications(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	limit := 50
	offset := 0
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil {
			limit = l
		}
	}
	if offsetParam := c.QueryParam("offset"); offsetParam != "" {
		if o, err := strconv.Atoi(offsetParam); err == nil {
			offset = o
		}
	}
	limit, offset = common.ValidatePaginationParams(limit, offset)

	notifications, err := h.notificationRepo.List(ctx, userID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load notifications")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"limit":         limit,
		"offset":        offset,
	})
}

// MarkNotificationRead handles PUT /notifications/:id/read
func (h *NotificationHandlers) MarkNotificationRead(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	notificationID, err := common.ValidateUUID(c.Param("id"), "notification id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.notificationRepo.MarkRead(ctx, userID, notificationID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to mark notification read")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Notification marked as read",
	})
}
