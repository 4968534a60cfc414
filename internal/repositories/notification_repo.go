package repositories

import (
	"context"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/models"

	"github.com/google/uuid"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	// ExistsForUserToday reports whether a notification of the given type
	// was already created for the user during the current calendar day.
	// The reminder sweep uses it to cap reminders at one per user per day.
	ExistsForUserToday(ctx context.Context, userID uuid.UUID, notificationType models.NotificationType) (bool, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}

type notificationRepo struct {
	db DB
}

func NewNotificationRepo(db DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, title, message, type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
	`
	_, err := r.db.Exec(ctx, query, notification.ID, notification.UserID, notification.Title, notification.Message, notification.Type)
	return err
}

func (r *notificationRepo) ExistsForUserToday(ctx context.Context, userID uuid.UUID, notificationType models.NotificationType) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND type = $2 AND created_at >= date_trunc('day', NOW())
		)
	`
	err := r.db.QueryRow(ctx, query, userID, notificationType).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *notificationRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, title, message, type, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE user_id = $1 AND id = $2
	`
	_, err := r.db.Exec(ctx, query, userID, notificationID)
	return err
}
