package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole distinguishes trainers from their clients
type UserRole string

const (
	UserRoleTrainer UserRole = "trainer"
	UserRoleClient  UserRole = "client"
)

type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      UserRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TrainerClient links a trainer to one of their clients
type TrainerClient struct {
	TrainerID uuid.UUID `json:"trainer_id" db:"trainer_id"`
	ClientID  uuid.UUID `json:"client_id" db:"client_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
