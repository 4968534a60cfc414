package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies feed entries
type NotificationType string

const (
	NotificationTypePaymentReminder NotificationType = "payment_reminder"
	NotificationTypePaymentUpdated  NotificationType = "payment_updated"
	NotificationTypeSystem          NotificationType = "system"
)

// Notification is one entry in a user's in-app feed
type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
