package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/models"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/repositories"

	"github.com/google/uuid"
)

// PlanConfig represents a subscription plan configuration
type PlanConfig struct {
	Tier        models.PlanTier `json:"tier"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Currency    string          `json:"currency"`
	Interval    string          `json:"interval"`
	Features    []string        `json:"features"`
}

// Predefined plans
var availablePlans = map[models.PlanTier]PlanConfig{
	models.PlanTierBasic: {
		Tier:        models.PlanTierBasic,
		Name:        "Basic",
		Description: "Individual coaching essentials",
		Amount:      29.0,
		Currency:    "USD",
		Interval:    "monthly",
		Features: []string{
			"Routine tracking",
			"In-app messaging",
		},
	},
	models.PlanTierPremium: {
		Tier:        models.PlanTierPremium,
		Name:        "Premium",
		Description: "Full coaching toolkit",
		Amount:      59.0,
		Currency:    "USD",
		Interval:    "monthly",
		Features: []string{
			"Everything in Basic",
			"Custom meal plans",
			"Video check-ins",
		},
	},
	models.PlanTierProfessional: {
		Tier:        models.PlanTierProfessional,
		Name:        "Professional",
		Description: "For trainers running a full client roster",
		Amount:      119.0,
		Currency:    "USD",
		Interval:    "monthly",
		Features: []string{
			"Everything in Premium",
			"Unlimited clients",
			"Priority support",
		},
	},
}

// BillingOverview is the user-facing billing summary returned by the
// status read endpoint.
type BillingOverview struct {
	Status      models.BillingStatus `json:"status"`
	Amount      float64              `json:"amount"`
	DueDate     time.Time            `json:"due_date"`
	Plan        models.PlanTier      `json:"plan"`
	LastPayment *time.Time           `json:"last_payment"`
}

// DeriveStatus maps a subscription and its most recent payment attempt
// to the user-facing status. Priority order, first match wins:
//
//  1. no subscription      -> pending (a never-billed user is never overdue)
//  2. latest is SUCCEEDED  -> paid (wins even if the period has lapsed)
//  3. latest is PENDING    -> pending
//  4. period end in past   -> overdue
//  5. otherwise            -> pending
func DeriveStatus(sub *models.Subscription, latest *models.PaymentAttempt) models.BillingStatus {
	if sub == nil {
		return models.BillingStatusPending
	}
	if latest != nil {
		switch latest.Status {
		case models.PaymentStatusSucceeded:
			return models.BillingStatusPaid
		case models.PaymentStatusPending:
			return models.BillingStatusPending
		}
	}
	if sub.PeriodEnd.Before(time.Now()) {
		return models.BillingStatusOverdue
	}
	return models.BillingStatusPending
}

// BillingStatusService assembles the user-facing billing overview from
// ledger state. It re-reads current state on every call; subscription
// state is never cached in process.
type BillingStatusService interface {
	Overview(ctx context.Context, userID uuid.UUID) (*BillingOverview, error)
	PaymentHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*models.PaymentAttempt, error)
	AvailablePlans() []PlanConfig
	PlanConfigFor(tier models.PlanTier) (PlanConfig, bool)
}

type billingStatusService struct {
	subscriptionRepo repositories.SubscriptionRepository
	paymentRepo      repositories.PaymentRepository
}

func NewBillingStatusService(subscriptionRepo repositories.SubscriptionRepository, paymentRepo repositories.PaymentRepository) BillingStatusService {
	return &billingStatusService{
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
	}
}

func (s *billingStatusService) Overview(ctx context.Context, userID uuid.UUID) (*BillingOverview, error) {
	sub, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	if sub == nil {
		// Never billed: default pending, amount 0, due in 30 days.
		return &BillingOverview{
			Status:  models.BillingStatusPending,
			Amount:  0,
			DueDate: time.Now().AddDate(0, 0, 30),
			Plan:    models.PlanTierBasic,
		}, nil
	}

	latest, err := s.paymentRepo.GetLatest(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest payment: %w", err)
	}

	overview := &BillingOverview{
		Status:  DeriveStatus(sub, latest),
		DueDate: sub.PeriodEnd,
		Plan:    sub.PlanTier,
	}

	// Displayed amount is the most recent attempt regardless of status,
	// so a trainer sees what was attempted, not just what succeeded.
	if latest != nil {
		overview.Amount = latest.Amount
	}

	// Last successful payment date comes from the most recent SUCCEEDED
	// record specifically, which may differ from the latest row overall.
	lastSucceeded, err := s.paymentRepo.GetLatestSucceeded(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get last successful payment: %w", err)
	}
	if lastSucceeded != nil {
		if lastSucceeded.PaidAt != nil {
			overview.LastPayment = lastSucceeded.PaidAt
		} else {
			overview.LastPayment = &lastSucceeded.CreatedAt
		}
	}

	return overview, nil
}

func (s *billingStatusService) PaymentHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*models.PaymentAttempt, error) {
	sub, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub == nil {
		return []*models.PaymentAttempt{}, nil
	}

	if limit <= 0 {
		limit = 20
	}
	return s.paymentRepo.List(ctx, sub.ID, limit)
}

func (s *billingStatusService) AvailablePlans() []PlanConfig {
	plans := make([]PlanConfig, 0, len(availablePlans))
	for _, tier := range []models.PlanTier{models.PlanTierBasic, models.PlanTierPremium, models.PlanTierProfessional} {
		plans = append(plans, availablePlans[tier])
	}
	return plans
}

func (s *billingStatusService) PlanConfigFor(tier models.PlanTier) (PlanConfig, bool) {
	plan, ok := availablePlans[tier]
	return plan, ok
}
