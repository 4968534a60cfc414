package repositories

import (
	"context"
	"errors"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// GetTrainerForClient returns the client's trainer, or nil when the
	// client has no trainer relationship.
	GetTrainerForClient(ctx context.Context, clientID uuid.UUID) (*models.User, error)
	HasClientRelationship(ctx context.Context, trainerID, clientID uuid.UUID) (bool, error)
}

type userRepo struct {
	db DB
}

func NewUserRepo(db DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, name, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetTrainerForClient(ctx context.Context, clientID uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT u.id, u.email, u.name, u.role, u.created_at, u.updated_at
		FROM users u
		JOIN trainer_clients tc ON tc.trainer_id = u.id
		WHERE tc.client_id = $1
	`
	err := r.db.QueryRow(ctx, query, clientID).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepo) HasClientRelationship(ctx context.Context, trainerID, clientID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM trainer_clients
			WHERE trainer_id = $1 AND client_id = $2
		)
	`
	err := r.db.QueryRow(ctx, query, trainerID, clientID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
