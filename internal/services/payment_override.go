package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/models"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/repositories"

	"github.com/google/uuid"
)

// PaymentOverrideRequest carries a trainer's manual billing correction.
// All fields are optional; only supplied fields are applied.
type PaymentOverrideRequest struct {
	Amount      *float64
	DueDate     *time.Time
	PlanTier    *string
	Status      *string
	Description *string
}

// SideEffect records one attempted best-effort side effect of a manual
// edit. Callers can inspect attempted-but-failed effects without
// conflating them with the primary transactional outcome.
type SideEffect struct {
	Kind string `json:"kind"`
	Err  error  `json:"-"`
}

// OverrideResult is the primary result of a manual edit plus the
// best-effort effect list.
type OverrideResult struct {
	Subscription *models.Subscription   `json:"subscription"`
	Payment      *models.PaymentAttempt `json:"payment,omitempty"`
	Effects      []SideEffect           `json:"-"`
}

// PaymentOverrideService is the trainer-facing correction path. Its edits
// are authoritative until the next processor event arrives.
type PaymentOverrideService interface {
	SetClientPayment(ctx context.Context, userID uuid.UUID, req *PaymentOverrideRequest) (*OverrideResult, error)
	AttachReceipt(ctx context.Context, userID uuid.UUID, objectName string) (*models.PaymentAttempt, error)
}

type paymentOverrideService struct {
	subscriptionRepo repositories.SubscriptionRepository
	paymentRepo      repositories.PaymentRepository
	notificationRepo repositories.NotificationRepository
	realtime         RealtimeService
}

func NewPaymentOverrideService(
	subscriptionRepo repositories.SubscriptionRepository,
	paymentRepo repositories.PaymentRepository,
	notificationRepo repositories.NotificationRepository,
	realtime RealtimeService,
) PaymentOverrideService {
	return &paymentOverrideService{
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		notificationRepo: notificationRepo,
		realtime:         realtime,
	}
}

// mapCallerStatus aligns the trainer-facing status vocabulary with the
// payment enum. Unmapped inputs are rejected, never silently defaulted.
func mapCallerStatus(status string) (models.PaymentStatus, error) {
	switch status {
	case "paid", "succeeded":
		return models.PaymentStatusSucceeded, nil
	case "pending":
		return models.PaymentStatusPending, nil
	case "overdue":
		return models.PaymentStatusFailed, nil
	default:
		return "", fmt.Errorf("unrecognized payment status %q", status)
	}
}

func (s *paymentOverrideService) SetClientPayment(ctx context.Context, userID uuid.UUID, req *PaymentOverrideRequest) (*OverrideResult, error) {
	// Validate everything before touching the ledger.
	var mappedStatus *models.PaymentStatus
	if req.Status != nil {
		mapped, err := mapCallerStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		mappedStatus = &mapped
	}
	if req.PlanTier != nil && !models.ValidPlanTier(*req.PlanTier) {
		return nil, fmt.Errorf("unrecognized plan tier %q", *req.PlanTier)
	}
	if req.Amount != nil && *req.Amount < 0 {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	sub, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	created := false
	if sub == nil {
		now := time.Now()
		sub = &models.Subscription{
			ID:          uuid.New(),
			UserID:      userID,
			PlanTier:    models.PlanTierBasic,
			Status:      models.SubscriptionStatusActive,
			PeriodStart: now,
			PeriodEnd:   now.AddDate(0, 0, 30),
		}
		created = true
	}

	if req.PlanTier != nil {
		sub.PlanTier = models.PlanTier(*req.PlanTier)
	}
	if req.DueDate != nil {
		sub.PeriodEnd = *req.DueDate
		if sub.PeriodEnd.Before(sub.PeriodStart) {
			sub.PeriodStart = sub.PeriodEnd
		}
	}

	if created {
		if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}
	} else {
		if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to update subscription: %w", err)
		}
	}

	result := &OverrideResult{Subscription: sub}

	if req.Amount != nil || mappedStatus != nil {
		payment, err := s.applyPaymentEdit(ctx, sub, req, mappedStatus)
		if err != nil {
			return nil, err
		}
		result.Payment = payment
	}

	result.Effects = s.emitEditEffects(ctx, sub, req)
	return result, nil
}

// applyPaymentEdit updates the most recent payment attempt in place when
// it is a manual-origin record; a processor-sourced record is never
// overwritten by hand, a new manual row is appended instead. Repeated
// manual edits therefore correct the same ledger entry rather than
// piling up duplicates.
func (s *paymentOverrideService) applyPaymentEdit(ctx context.Context, sub *models.Subscription, req *PaymentOverrideRequest, mappedStatus *models.PaymentStatus) (*models.PaymentAttempt, error) {
	latest, err := s.paymentRepo.GetLatest(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest payment: %w", err)
	}

	if latest != nil && latest.Origin == models.PaymentOriginManual {
		if req.Amount != nil {
			latest.Amount = *req.Amount
		}
		if req.Description != nil {
			latest.Description = req.Description
		}
		if mappedStatus != nil {
			latest.Status = *mappedStatus
			if *mappedStatus == models.PaymentStatusSucceeded && latest.PaidAt == nil {
				now := time.Now()
				latest.PaidAt = &now
			}
		}
		if err := s.paymentRepo.Update(ctx, latest); err != nil {
			return nil, fmt.Errorf("failed to update payment: %w", err)
		}
		return latest, nil
	}

	status := models.PaymentStatusSucceeded
	if mappedStatus != nil {
		status = *mappedStatus
	}

	payment := &models.PaymentAttempt{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		Currency:       "USD",
		Status:         status,
		Description:    req.Description,
		Origin:         models.PaymentOriginManual,
	}
	if req.Amount != nil {
		payment.Amount = *req.Amount
	}
	if status == models.PaymentStatusSucceeded {
		now := time.Now()
		payment.PaidAt = &now
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return payment, nil
}

// emitEditEffects notifies the affected user about the change. Both
// effects are fire-and-forget: failures are recorded on the effect list
// and logged, never propagated.
func (s *paymentOverrideService) emitEditEffects(ctx context.Context, sub *models.Subscription, req *PaymentOverrideRequest) []SideEffect {
	var effects []SideEffect

	message := "Your trainer updated your billing details."
	if req.Amount != nil && req.DueDate != nil {
		message = fmt.Sprintf("Your trainer set your payment to %.2f, due %s.", *req.Amount, req.DueDate.Format("Jan 2, 2006"))
	} else if req.Amount != nil {
		message = fmt.Sprintf("Your trainer set your payment amount to %.2f.", *req.Amount)
	} else if req.DueDate != nil {
		message = fmt.Sprintf("Your payment due date is now %s.", req.DueDate.Format("Jan 2, 2006"))
	}

	notification := &models.Notification{
		ID:      uuid.New(),
		UserID:  sub.UserID,
		Title:   "Billing updated",
		Message: message,
		Type:    models.NotificationTypePaymentUpdated,
	}
	notifyErr := s.notificationRepo.Create(ctx, notification)
	if notifyErr != nil {
		log.Printf("Failed to create billing notification for user %s: %v", sub.UserID, notifyErr)
	}
	effects = append(effects, SideEffect{Kind: "notification", Err: notifyErr})

	if s.realtime != nil {
		latest, err := s.paymentRepo.GetLatest(ctx, sub.ID)
		if err == nil {
			payload := map[string]interface{}{
				"status":   DeriveStatus(sub, latest),
				"due_date": sub.PeriodEnd,
			}
			err = s.realtime.Emit(ctx, sub.UserID, "billing.status", payload)
		}
		if err != nil {
			log.Printf("Failed to push billing status to user %s: %v", sub.UserID, err)
		}
		effects = append(effects, SideEffect{Kind: "realtime", Err: err})
	}

	return effects
}

// AttachReceipt links an uploaded receipt object to the client's most
// recent payment attempt.
func (s *paymentOverrideService) AttachReceipt(ctx context.Context, userID uuid.UUID, objectName string) (*models.PaymentAttempt, error) {
	sub, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub == nil {
		return nil, fmt.Errorf("user has no subscription")
	}

	latest, err := s.paymentRepo.GetLatest(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest payment: %w", err)
	}
	if latest == nil {
		return nil, fmt.Errorf("subscription has no payment to attach a receipt to")
	}

	latest.ReceiptObject = &objectName
	if err := s.paymentRepo.Update(ctx, latest); err != nil {
		return nil, fmt.Errorf("failed to attach receipt: %w", err)
	}
	return latest, nil
}
