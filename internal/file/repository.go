package file

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

const fileColumns = `id, owner_id, original_filename, size_bytes, object_name, uploaded_at`

// Repository provides access to file metadata storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new file repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts metadata for a new file.
func (r *Repository) Create(ctx context.Context, meta StoredFile) (StoredFile, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO files (id, owner_id, original_filename, size_bytes, object_name)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + fileColumns + `;`

	row := r.pool.QueryRow(ctx, query,
		meta.ID,
		meta.OwnerID,
		meta.OriginalFilename,
		meta.SizeBytes,
		meta.ObjectName,
	)

	stored, err := scanFile(row)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create file metadata: %w", err)
	}
	return stored, nil
}

// List returns one page of the owner's files, newest first, optionally
// filtered by a case-insensitive filename substring, plus the total count.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID, search string, limit, offset int) ([]StoredFile, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	pattern := "%" + escapeLike(search) + "%"

	var total int64
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM files WHERE owner_id = $1 AND original_filename ILIKE $2;`,
		ownerID, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count files: %w", err)
	}

	query := `
SELECT ` + fileColumns + `
FROM files
WHERE owner_id = $1 AND original_filename ILIKE $2
ORDER BY uploaded_at DESC
LIMIT $3 OFFSET $4;`

	rows, err := r.pool.Query(ctx, query, ownerID, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []StoredFile
	for rows.Next() {
		meta, err := scanFile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan file metadata: %w", err)
		}
		files = append(files, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate files: %w", err)
	}
	return files, total, nil
}

// Get fetches metadata for a single file scoped to its owner.
func (r *Repository) Get(ctx context.Context, ownerID, fileID uuid.UUID) (StoredFile, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND owner_id = $2;`

	meta, err := scanFile(r.pool.QueryRow(ctx, query, fileID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoredFile{}, ErrFileNotFound
		}
		return StoredFile{}, fmt.Errorf("get file metadata: %w", err)
	}
	return meta, nil
}

// DeleteCascade removes the file row, revokes every share token referencing
// it and returns the file's bytes to the owner's quota ledger, all in one
// transaction. A redemption racing with the delete either completes before
// the transaction commits or observes the revocation.
func (r *Repository) DeleteCascade(ctx context.Context, ownerID, fileID uuid.UUID) (StoredFile, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return StoredFile{}, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
DELETE FROM files WHERE id = $1 AND owner_id = $2
RETURNING ` + fileColumns + `;`

	meta, err := scanFile(tx.QueryRow(ctx, query, fileID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoredFile{}, ErrFileNotFound
		}
		return StoredFile{}, fmt.Errorf("delete file metadata: %w", err)
	}

	if _, err := tx.Exec(ctx, `
UPDATE share_tokens SET revoked_at = NOW() WHERE file_id = $1 AND revoked_at IS NULL;`, fileID); err != nil {
		return StoredFile{}, fmt.Errorf("revoke share tokens: %w", err)
	}

	if _, err := tx.Exec(ctx, `
UPDATE quota_ledger
SET consumed_bytes = GREATEST(consumed_bytes - $2, 0),
    updated_at = NOW()
WHERE account_id = $1;`, ownerID, meta.SizeBytes); err != nil {
		return StoredFile{}, fmt.Errorf("release quota: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return StoredFile{}, fmt.Errorf("commit delete: %w", err)
	}
	return meta, nil
}

func scanFile(row pgx.Row) (StoredFile, error) {
	var meta StoredFile
	err := row.Scan(
		&meta.ID,
		&meta.OwnerID,
		&meta.OriginalFilename,
		&meta.SizeBytes,
		&meta.ObjectName,
		&meta.UploadedAt,
	)
	return meta, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
