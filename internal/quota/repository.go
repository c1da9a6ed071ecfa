package quota

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

// Repository persists the per-account ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a quota repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Reserve performs the check-and-increment as one statement. The guarded
// upsert either admits the full reservation or changes nothing, so two
// concurrent reservations cannot both squeeze past the cap.
func (r *Repository) Reserve(ctx context.Context, accountID uuid.UUID, bytes, capBytes int64) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
INSERT INTO quota_ledger (account_id, consumed_bytes, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (account_id)
DO UPDATE SET consumed_bytes = quota_ledger.consumed_bytes + EXCLUDED.consumed_bytes,
              updated_at = NOW()
WHERE quota_ledger.consumed_bytes + EXCLUDED.consumed_bytes <= $3
RETURNING consumed_bytes;`

	var consumed int64
	if err := r.pool.QueryRow(ctx, query, accountID, bytes, capBytes).Scan(&consumed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("reserve quota: %w", err)
	}
	return nil
}

// Release decrements consumed bytes, floored at zero against double-release.
func (r *Repository) Release(ctx context.Context, accountID uuid.UUID, bytes int64) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
UPDATE quota_ledger
SET consumed_bytes = GREATEST(consumed_bytes - $2, 0),
    updated_at = NOW()
WHERE account_id = $1;`

	if _, err := r.pool.Exec(ctx, query, accountID, bytes); err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	return nil
}

// Consumed returns the account's current ledger balance. Accounts without a
// ledger row have consumed nothing.
func (r *Repository) Consumed(ctx context.Context, accountID uuid.UUID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	var consumed int64
	err := r.pool.QueryRow(ctx, `
SELECT consumed_bytes FROM quota_ledger WHERE account_id = $1;`, accountID).Scan(&consumed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read quota ledger: %w", err)
	}
	return consumed, nil
}
