package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repositoryTimeout = 5 * time.Second

// Repository stores password-reset tokens.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateResetToken saves a hashed single-use reset token for the account.
func (r *Repository) CreateResetToken(ctx context.Context, tokenHash string, accountID uuid.UUID, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
INSERT INTO password_reset_tokens (token_hash, account_id, expires_at)
VALUES ($1, $2, $3);`

	if _, err := r.pool.Exec(ctx, query, tokenHash, accountID, expiresAt); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken marks an unused, unexpired reset token as used and
// returns the account it belongs to. The update is the single serialization
// point, so a token can be consumed at most once.
func (r *Repository) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
UPDATE password_reset_tokens
SET used_at = $2
WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
RETURNING account_id;`

	var accountID uuid.UUID
	if err := r.pool.QueryRow(ctx, query, tokenHash, now).Scan(&accountID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrResetTokenInvalid
		}
		return uuid.Nil, fmt.Errorf("consume reset token: %w", err)
	}
	return accountID, nil
}
