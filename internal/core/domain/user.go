package domain

import (
	"time"

	"github.com/google/uuid"
)

// User owns bills, payment methods and transactions. PasswordHash and
// PasswordSalt never leave the storage layer.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	PasswordSalt string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
