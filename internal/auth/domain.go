package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account able to sign in.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
