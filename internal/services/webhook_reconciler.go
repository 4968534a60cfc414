package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/models"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/repositories"

	"github.com/google/uuid"
)

// Processor event kinds the reconciler understands. Anything else is
// acknowledged and skipped so new processor event types never break
// delivery.
const (
	EventPaymentSucceeded    = "payment.succeeded"
	EventPaymentFailed       = "payment.failed"
	EventSubscriptionUpdated = "subscription.updated"
	EventSubscriptionDeleted = "subscription.deleted"
)

// ProcessorEvent is the normalized shape of an inbound payment-processor
// webhook event after signature verification.
type ProcessorEvent struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	CustomerID string             `json:"customer_id"`
	Data       ProcessorEventData `json:"data"`
}

type ProcessorEventData struct {
	PaymentID         string     `json:"payment_id,omitempty"`
	Amount            float64    `json:"amount,omitempty"`
	Currency          string     `json:"currency,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	Status            string     `json:"status,omitempty"`
	PeriodStart       *time.Time `json:"period_start,omitempty"`
	PeriodEnd         *time.Time `json:"period_end,omitempty"`
	CancelAtPeriodEnd *bool      `json:"cancel_at_period_end,omitempty"`
}

// WebhookReconciler applies verified processor events to the billing
// ledger. Every handler is idempotent: the processor retries delivery,
// so running the same payload twice must produce the same end state.
type WebhookReconciler interface {
	Process(ctx context.Context, event *ProcessorEvent) error
}

type webhookReconciler struct {
	subscriptionRepo repositories.SubscriptionRepository
	paymentRepo      repositories.PaymentRepository
	notificationRepo repositories.NotificationRepository
	realtime         RealtimeService
}

func NewWebhookReconciler(
	subscriptionRepo repositories.SubscriptionRepository,
	paymentRepo repositories.PaymentRepository,
	notificationRepo repositories.NotificationRepository,
	realtime RealtimeService,
) WebhookReconciler {
	return &webhookReconciler{
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		notificationRepo: notificationRepo,
		realtime:         realtime,
	}
}

func (r *webhookReconciler) Process(ctx context.Context, event *ProcessorEvent) error {
	switch event.Type {
	case EventPaymentSucceeded:
		return r.applyPayment(ctx, event, models.PaymentStatusSucceeded)
	case EventPaymentFailed:
		return r.applyPayment(ctx, event, models.PaymentStatusFailed)
	case EventSubscriptionUpdated:
		return r.applySubscriptionUpdate(ctx, event)
	case EventSubscriptionDeleted:
		return r.applySubscriptionDelete(ctx, event)
	default:
		// Forward compatibility: acknowledge so the processor stops
		// retrying something we will never handle.
		log.Printf("Skipping unknown processor event type %q (event %s)", event.Type, event.ID)
		return nil
	}
}

func (r *webhookReconciler) applyPayment(ctx context.Context, event *ProcessorEvent, status models.PaymentStatus) error {
	if event.Data.PaymentID == "" {
		return fmt.Errorf("event %s: missing payment_id", event.ID)
	}

	sub, err := r.subscriptionRepo.GetByProcessorCustomerID(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to look up subscription for customer %s: %w", event.CustomerID, err)
	}
	if sub == nil {
		// No local subscription maps to this customer; retrying will not
		// change that, so acknowledge instead of forcing a retry loop.
		log.Printf("No subscription for processor customer %s, skipping event %s", event.CustomerID, event.ID)
		return nil
	}

	existing, err := r.paymentRepo.GetByExternalID(ctx, sub.ID, event.Data.PaymentID)
	if err != nil {
		return fmt.Errorf("failed to check existing payment %s: %w", event.Data.PaymentID, err)
	}
	// A failed attempt never overrides an already-succeeded record
	// for the same payment; late or reordered deliveries must not
	// downgrade evidence of a paid period.
	if status == models.PaymentStatusFailed && existing != nil && existing.Status == models.PaymentStatusSucceeded {
		log.Printf("Ignoring payment.failed for already-succeeded payment %s (event %s)", event.Data.PaymentID, event.ID)
		return nil
	}
	// A redelivery of an already-recorded attempt with the same status
	// changes nothing; still converge the rows below, but do not notify
	// the user again.
	replay := existing != nil && existing.Status == status

	externalID := event.Data.PaymentID
	payment := &models.PaymentAttempt{
		ID:                uuid.New(),
		SubscriptionID:    sub.ID,
		Amount:            event.Data.Amount,
		Currency:          event.Data.Currency,
		Status:            status,
		Origin:            models.PaymentOriginProcessor,
		ExternalPaymentID: &externalID,
	}
	if status == models.PaymentStatusSucceeded {
		paidAt := time.Now()
		if event.Data.PaidAt != nil {
			paidAt = *event.Data.PaidAt
		}
		payment.PaidAt = &paidAt
	}

	if err := r.paymentRepo.UpsertByExternalID(ctx, payment); err != nil {
		return fmt.Errorf("failed to upsert payment %s: %w", event.Data.PaymentID, err)
	}

	if status == models.PaymentStatusSucceeded {
		sub.Status = models.SubscriptionStatusActive
	} else {
		sub.Status = models.SubscriptionStatusPastDue
	}
	if err := r.subscriptionRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to update subscription %s: %w", sub.ID, err)
	}

	if !replay {
		r.emitFollowUps(ctx, sub, payment)
	}
	return nil
}

// mapProcessorStatus aligns the processor's status vocabulary with the
// local enum. Unrecognized values are rejected, never stored.
func mapProcessorStatus(status string) (models.SubscriptionStatus, error) {
	switch strings.ToLower(status) {
	case "active", "trialing":
		return models.SubscriptionStatusActive, nil
	case "past_due", "unpaid":
		return models.SubscriptionStatusPastDue, nil
	case "canceled", "cancelled":
		return models.SubscriptionStatusCancelled, nil
	default:
		return "", fmt.Errorf("unrecognized processor subscription status %q", status)
	}
}

func (r *webhookReconciler) applySubscriptionUpdate(ctx context.Context, event *ProcessorEvent) error {
	sub, err := r.subscriptionRepo.GetByProcessorCustomerID(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to look up subscription for customer %s: %w", event.CustomerID, err)
	}
	if sub == nil {
		log.Printf("No subscription for processor customer %s, skipping event %s", event.CustomerID, event.ID)
		return nil
	}

	if event.Data.Status != "" {
		mapped, err := mapProcessorStatus(event.Data.Status)
		if err != nil {
			return fmt.Errorf("event %s: %w", event.ID, err)
		}
		sub.Status = mapped
	}

	// The processor is authoritative for period boundaries; overwrite
	// whatever is stored locally.
	if event.Data.PeriodStart != nil {
		sub.PeriodStart = *event.Data.PeriodStart
	}
	if event.Data.PeriodEnd != nil {
		sub.PeriodEnd = *event.Data.PeriodEnd
	}
	if event.Data.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *event.Data.CancelAtPeriodEnd
	}

	if err := r.subscriptionRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to update subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (r *webhookReconciler) applySubscriptionDelete(ctx context.Context, event *ProcessorEvent) error {
	sub, err := r.subscriptionRepo.GetByProcessorCustomerID(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to look up subscription for customer %s: %w", event.CustomerID, err)
	}
	if sub == nil {
		log.Printf("No subscription for processor customer %s, skipping event %s", event.CustomerID, event.ID)
		return nil
	}

	// Cancellation is a status transition, never a row removal.
	sub.Status = models.SubscriptionStatusCancelled
	if err := r.subscriptionRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to cancel subscription %s: %w", sub.ID, err)
	}
	return nil
}

// emitFollowUps pushes best-effort notifications after a payment
// transition. Failures here never fail the ledger write that already
// happened.
func (r *webhookReconciler) emitFollowUps(ctx context.Context, sub *models.Subscription, payment *models.PaymentAttempt) {
	status := DeriveStatus(sub, payment)

	var title, message string
	if payment.Status == models.PaymentStatusSucceeded {
		title = "Payment received"
		message = fmt.Sprintf("Your payment of %.2f %s was received.", payment.Amount, payment.Currency)
	} else {
		title = "Payment failed"
		message = fmt.Sprintf("Your payment of %.2f %s could not be collected. Please update your payment method.", payment.Amount, payment.Currency)
	}

	notification := &models.Notification{
		ID:      uuid.New(),
		UserID:  sub.UserID,
		Title:   title,
		Message: message,
		Type:    models.NotificationTypePaymentUpdated,
	}
	if err := r.notificationRepo.Create(ctx, notification); err != nil {
		log.Printf("Failed to create payment notification for user %s: %v", sub.UserID, err)
	}

	if r.realtime != nil {
		payload := map[string]interface{}{
			"status": status,
			"amount": payment.Amount,
		}
		if err := r.realtime.Emit(ctx, sub.UserID, "billing.status", payload); err != nil {
			log.Printf("Failed to push billing status to user %s: %v", sub.UserID, err)
		}
	}
}
