package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/nursat/filevault/internal/account"
)

// Claims describes the validated identity extracted from a bearer token.
type Claims struct {
	AccountID uuid.UUID
	Email     string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// LoginResult bundles the issued bearer token with the account profile.
type LoginResult struct {
	Account     account.Account
	AccessToken string
	ExpiresAt   time.Time
}
