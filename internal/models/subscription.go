package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanTier is the subscription plan level
type PlanTier string

const (
	PlanTierBasic        PlanTier = "basic"
	PlanTierPremium      PlanTier = "premium"
	PlanTierProfessional PlanTier = "professional"
)

// SubscriptionStatus is the lifecycle state of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// BillingStatus is the user-facing payment status derived from the ledger
type BillingStatus string

const (
	BillingStatusPaid    BillingStatus = "paid"
	BillingStatusPending BillingStatus = "pending"
	BillingStatusOverdue BillingStatus = "overdue"
)

// Subscription is the single billing relationship record for one user.
// There is at most one per user; cancellation is a status transition,
// rows are never deleted.
type Subscription struct {
	ID                      uuid.UUID          `json:"id" db:"id"`
	UserID                  uuid.UUID          `json:"user_id" db:"user_id"`
	PlanTier                PlanTier           `json:"plan_tier" db:"plan_tier"`
	Status                  SubscriptionStatus `json:"status" db:"status"`
	PeriodStart             time.Time          `json:"period_start" db:"period_start"`
	PeriodEnd               time.Time          `json:"period_end" db:"period_end"`
	CancelAtPeriodEnd       bool               `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	ProcessorCustomerID     *string            `json:"processor_customer_id" db:"processor_customer_id"`
	ProcessorSubscriptionID *string            `json:"processor_subscription_id" db:"processor_subscription_id"`
	CreatedAt               time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time          `json:"updated_at" db:"updated_at"`
}

func ValidPlanTier(tier string) bool {
	switch PlanTier(tier) {
	case PlanTierBasic, PlanTierPremium, PlanTierProfessional:
		return true
	}
	return false
}
