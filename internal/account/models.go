package account

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a registered user of the service.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	DateOfBirth  time.Time `json:"date_of_birth"`
	PhoneNumber  string    `json:"phone_number"`
	ProfilePhoto *string   `json:"profile_photo,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SafeAccount removes sensitive fields for response payloads.
func (a Account) SafeAccount() Account {
	a.PasswordHash = ""
	return a
}
