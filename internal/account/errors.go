package account

import "errors"

var (
	// ErrEmailAlreadyExists indicates the email is already registered.
	ErrEmailAlreadyExists = errors.New("email already exists")
	// ErrInvalidCredentials is returned when a credential check fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound signals that the account could not be located.
	ErrAccountNotFound = errors.New("account not found")
)
