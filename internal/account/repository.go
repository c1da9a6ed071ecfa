package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repositoryTimeout = 5 * time.Second

const accountColumns = `id, email, password_hash, first_name, last_name, date_of_birth, phone_number, profile_photo, created_at, updated_at`

// Repository provides database access for accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs an account repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create persists a new account record.
func (r *Repository) Create(ctx context.Context, acc Account) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
INSERT INTO accounts (id, email, password_hash, first_name, last_name, date_of_birth, phone_number, profile_photo)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + accountColumns + `;`

	row := r.pool.QueryRow(ctx, query,
		acc.ID,
		acc.Email,
		acc.PasswordHash,
		acc.FirstName,
		acc.LastName,
		acc.DateOfBirth,
		acc.PhoneNumber,
		acc.ProfilePhoto,
	)

	stored, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrEmailAlreadyExists
		}
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	return stored, nil
}

// FindByEmail fetches an account by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1;`

	acc, err := scanAccount(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("find account by email: %w", err)
	}
	return acc, nil
}

// FindByID fetches an account by identifier.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1;`

	acc, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("find account by id: %w", err)
	}
	return acc, nil
}

// UpdateProfile mutates the mutable profile fields. Email is immutable.
func (r *Repository) UpdateProfile(ctx context.Context, acc Account) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
UPDATE accounts
SET first_name = $2,
    last_name = $3,
    date_of_birth = $4,
    phone_number = $5,
    profile_photo = $6,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + accountColumns + `;`

	row := r.pool.QueryRow(ctx, query,
		acc.ID,
		acc.FirstName,
		acc.LastName,
		acc.DateOfBirth,
		acc.PhoneNumber,
		acc.ProfilePhoto,
	)

	stored, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("update profile: %w", err)
	}
	return stored, nil
}

// UpdatePasswordHash replaces the stored credential hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1;`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var acc Account
	err := row.Scan(
		&acc.ID,
		&acc.Email,
		&acc.PasswordHash,
		&acc.FirstName,
		&acc.LastName,
		&acc.DateOfBirth,
		&acc.PhoneNumber,
		&acc.ProfilePhoto,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	return acc, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
