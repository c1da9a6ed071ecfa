package share

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

const tokenColumns = `token, file_id, owner_id, recipient_email, message, filename, size_bytes, object_name, created_at, expires_at, accessed, accessed_at, revoked_at`

// Repository persists share tokens.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a share-token repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a freshly issued token.
func (r *Repository) Create(ctx context.Context, t Token) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
INSERT INTO share_tokens (token, file_id, owner_id, recipient_email, message, filename, size_bytes, object_name, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + tokenColumns + `;`

	row := r.pool.QueryRow(ctx, query,
		t.Token,
		t.FileID,
		t.OwnerID,
		t.RecipientEmail,
		t.Message,
		t.Filename,
		t.SizeBytes,
		t.ObjectName,
		t.ExpiresAt,
	)

	stored, err := scanToken(row)
	if err != nil {
		return Token{}, fmt.Errorf("create share token: %w", err)
	}
	return stored, nil
}

// Redeem marks a live token as accessed and returns it. The guarded update
// is the serialization point against concurrent revocation: a delete that
// commits first makes this update match nothing. The accessed timestamp is
// written once, on first redemption.
func (r *Repository) Redeem(ctx context.Context, token string, now time.Time) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
UPDATE share_tokens
SET accessed = TRUE,
    accessed_at = COALESCE(accessed_at, $2)
WHERE token = $1 AND revoked_at IS NULL AND expires_at > $2
RETURNING ` + tokenColumns + `;`

	stored, err := scanToken(r.pool.QueryRow(ctx, query, token, now))
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Token{}, fmt.Errorf("redeem share token: %w", err)
	}

	// Distinguish expired from unknown for the caller; revoked tokens
	// report as unknown so deleted files leave no trace.
	var expiresAt time.Time
	var revokedAt *time.Time
	lookupErr := r.pool.QueryRow(ctx, `
SELECT expires_at, revoked_at FROM share_tokens WHERE token = $1;`, token).Scan(&expiresAt, &revokedAt)
	if lookupErr != nil {
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return Token{}, ErrTokenNotFound
		}
		return Token{}, fmt.Errorf("inspect share token: %w", lookupErr)
	}
	if revokedAt != nil {
		return Token{}, ErrTokenNotFound
	}
	return Token{}, ErrTokenExpired
}

// ListForOwner returns every token the account has issued, newest first.
func (r *Repository) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]Token, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT ` + tokenColumns + `
FROM share_tokens
WHERE owner_id = $1
ORDER BY created_at DESC;`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list share tokens: %w", err)
	}
	defer rows.Close()

	var tokens []Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate share tokens: %w", err)
	}
	return tokens, nil
}

func scanToken(row pgx.Row) (Token, error) {
	var t Token
	err := row.Scan(
		&t.Token,
		&t.FileID,
		&t.OwnerID,
		&t.RecipientEmail,
		&t.Message,
		&t.Filename,
		&t.SizeBytes,
		&t.ObjectName,
		&t.CreatedAt,
		&t.ExpiresAt,
		&t.Accessed,
		&t.AccessedAt,
		&t.RevokedAt,
	)
	return t, err
}
