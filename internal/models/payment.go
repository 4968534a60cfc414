package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the state of a single collection attempt
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentOrigin records who produced the ledger entry. Manual trainer
// corrections may only overwrite manual-origin records; processor rows
// are appended to, never edited by hand.
type PaymentOrigin string

const (
	PaymentOriginProcessor PaymentOrigin = "processor"
	PaymentOriginManual    PaymentOrigin = "manual"
)

// PaymentAttempt is one recorded attempt to collect payment, successful
// or not. Ordering is by created_at descending; the newest row defines
// "most recent".
type PaymentAttempt struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	SubscriptionID    uuid.UUID     `json:"subscription_id" db:"subscription_id"`
	Amount            float64       `json:"amount" db:"amount"`
	Currency          string        `json:"currency" db:"currency"`
	Status            PaymentStatus `json:"status" db:"status"`
	Description       *string       `json:"description" db:"description"`
	Origin            PaymentOrigin `json:"origin" db:"origin"`
	ExternalPaymentID *string       `json:"external_payment_id" db:"external_payment_id"`
	ReceiptObject     *string       `json:"receipt_object" db:"receipt_object"`
	PaidAt            *time.Time    `json:"paid_at" db:"paid_at"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}
