package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/caching"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/models"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/repositories"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/services"

	"github.com/google/uuid"
)

// ReminderClass buckets a subscription by due-date distance.
type ReminderClass string

const (
	ReminderUpcoming ReminderClass = "upcoming"
	ReminderOverdue  ReminderClass = "overdue"
	ReminderUrgent   ReminderClass = "urgent"
)

const sweepPageSize = 200

// ClassifyDueDate buckets by calendar days until the due date:
// 1..3 days out is upcoming, 0 to 7 days late is overdue, more than
// 7 days late is urgent. Anything else is outside the reminder windows.
func ClassifyDueDate(daysUntilDue int) (ReminderClass, bool) {
	switch {
	case daysUntilDue > 0 && daysUntilDue <= 3:
		return ReminderUpcoming, true
	case daysUntilDue >= -7 && daysUntilDue <= 0:
		return ReminderOverdue, true
	case daysUntilDue < -7:
		return ReminderUrgent, true
	}
	return "", false
}

// DaysUntilDue counts whole calendar days from today to the due date,
// negative when the due date has passed. Both dates are normalized to
// UTC midnights so every day is exactly 24 hours; subtracting local
// midnights would miscount across DST transitions.
func DaysUntilDue(periodEnd, now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	due := time.Date(periodEnd.Year(), periodEnd.Month(), periodEnd.Day(), 0, 0, 0, 0, time.UTC)
	return int(due.Sub(today).Hours() / 24)
}

// PaymentReminderJob is the daily sweep that reminds clients about
// upcoming and overdue payments. It must not run concurrently with
// itself; the scheduler registers it as a singleton job.
type PaymentReminderJob struct {
	subscriptionRepo repositories.SubscriptionRepository
	paymentRepo      repositories.PaymentRepository
	userRepo         repositories.UserRepository
	notificationRepo repositories.NotificationRepository
	cacheSvc         caching.CacheService
	emailSvc         services.EmailService
}

func NewPaymentReminderJob(
	subscriptionRepo repositories.SubscriptionRepository,
	paymentRepo repositories.PaymentRepository,
	userRepo repositories.UserRepository,
	notificationRepo repositories.NotificationRepository,
	cacheSvc caching.CacheService,
	emailSvc services.EmailService,
) *PaymentReminderJob {
	return &PaymentReminderJob{
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		cacheSvc:         cacheSvc,
		emailSvc:         emailSvc,
	}
}

// Run sweeps all active subscriptions once. A failure on one
// subscription is logged and the sweep continues.
func (j *PaymentReminderJob) Run(ctx context.Context) error {
	log.Printf("Starting payment reminder sweep")

	now := time.Now()
	processed := 0
	reminded := 0

	for offset := 0; ; offset += sweepPageSize {
		subs, err := j.subscriptionRepo.ListByStatus(ctx, models.SubscriptionStatusActive, sweepPageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list active subscriptions: %w", err)
		}
		if len(subs) == 0 {
			break
		}

		for _, sub := range subs {
			processed++
			sent, err := j.processSubscription(ctx, sub, now)
			if err != nil {
				log.Printf("Reminder sweep failed for subscription %s: %v", sub.ID, err)
				continue
			}
			if sent {
				reminded++
			}
		}

		if len(subs) < sweepPageSize {
			break
		}
	}

	log.Printf("Completed payment reminder sweep: %d subscriptions checked, %d reminders sent", processed, reminded)
	return nil
}

func (j *PaymentReminderJob) processSubscription(ctx context.Context, sub *models.Subscription, now time.Time) (bool, error) {
	class, ok := ClassifyDueDate(DaysUntilDue(sub.PeriodEnd, now))
	if !ok {
		return false, nil
	}

	// A period the ledger already shows as paid needs no reminder.
	latest, err := j.paymentRepo.GetLatest(ctx, sub.ID)
	if err != nil {
		return false, fmt.Errorf("failed to get latest payment: %w", err)
	}
	if services.DeriveStatus(sub, latest) == models.BillingStatusPaid {
		return false, nil
	}

	// Dedup: at most one reminder per user per calendar day. The Redis
	// mark is a fast path; the notifications table is the durable record.
	if j.cacheSvc != nil {
		if marked, err := j.cacheSvc.WasReminderSent(ctx, sub.UserID, now); err == nil && marked {
			return false, nil
		}
	}
	already, err := j.notificationRepo.ExistsForUserToday(ctx, sub.UserID, models.NotificationTypePaymentReminder)
	if err != nil {
		return false, fmt.Errorf("failed to check reminder dedup: %w", err)
	}
	if already {
		return false, nil
	}

	client, err := j.userRepo.GetByID(ctx, sub.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to load client: %w", err)
	}

	subject, clientMsg, trainerMsg := reminderCopy(class, sub, client.Name)

	// Email send and notification creation are separable effects: a
	// bounced email must not suppress the in-app reminder.
	if _, err := j.emailSvc.Send(client.Email, subject, reminderEmailBody(class, sub, client.Name)); err != nil {
		log.Printf("Failed to send reminder email to %s: %v", client.Email, err)
	}

	notification := &models.Notification{
		ID:      uuid.New(),
		UserID:  client.ID,
		Title:   subject,
		Message: clientMsg,
		Type:    models.NotificationTypePaymentReminder,
	}
	if err := j.notificationRepo.Create(ctx, notification); err != nil {
		return false, fmt.Errorf("failed to create client notification: %w", err)
	}

	trainer, err := j.userRepo.GetTrainerForClient(ctx, client.ID)
	if err != nil {
		log.Printf("Failed to look up trainer for client %s: %v", client.ID, err)
	} else if trainer != nil {
		trainerNotification := &models.Notification{
			ID:      uuid.New(),
			UserID:  trainer.ID,
			Title:   fmt.Sprintf("Client payment %s", class),
			Message: trainerMsg,
			Type:    models.NotificationTypePaymentReminder,
		}
		if err := j.notificationRepo.Create(ctx, trainerNotification); err != nil {
			log.Printf("Failed to create trainer notification for %s: %v", trainer.ID, err)
		}
	}

	if j.cacheSvc != nil {
		if err := j.cacheSvc.MarkReminderSent(ctx, sub.UserID, now); err != nil {
			log.Printf("Failed to mark reminder sent for user %s: %v", sub.UserID, err)
		}
	}

	return true, nil
}

func reminderCopy(class ReminderClass, sub *models.Subscription, clientName string) (subject, clientMsg, trainerMsg string) {
	due := sub.PeriodEnd.Format("Jan 2, 2006")
	switch class {
	case ReminderUpcoming:
		subject = "Payment due soon"
		clientMsg = fmt.Sprintf("Your subscription payment is due on %s.", due)
		trainerMsg = fmt.Sprintf("%s's payment is due on %s.", clientName, due)
	case ReminderOverdue:
		subject = "Payment overdue"
		clientMsg = fmt.Sprintf("Your subscription payment was due on %s. Please pay as soon as possible.", due)
		trainerMsg = fmt.Sprintf("%s's payment was due on %s and has not been received.", clientName, due)
	case ReminderUrgent:
		subject = "Payment urgently overdue"
		clientMsg = fmt.Sprintf("Your subscription payment was due on %s and is more than a week late. Your access may be suspended.", due)
		trainerMsg = fmt.Sprintf("%s's payment is more than a week overdue (due %s).", clientName, due)
	}
	return subject, clientMsg, trainerMsg
}

func reminderEmailBody(class ReminderClass, sub *models.Subscription, clientName string) string {
	_, clientMsg, _ := reminderCopy(class, sub, clientName)
	return fmt.Sprintf(`
		<html>
		<body>
			<p>Hi %s,</p>
			<p>%s</p>
			<p>— The TrainFit team</p>
		</body>
		</html>
	`, clientName, clientMsg)
}
