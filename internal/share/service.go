package share

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/nursat/filevault/internal/config"
	"github.com/nursat/filevault/internal/file"
)

// 32 random bytes gives 256 bits of entropy, comfortably past the minimum
// needed to resist token enumeration.
const tokenBytes = 32

// tokenStore abstracts token persistence.
type tokenStore interface {
	Create(ctx context.Context, t Token) (Token, error)
	Redeem(ctx context.Context, token string, now time.Time) (Token, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]Token, error)
}

// fileResolver resolves files scoped to their owner.
type fileResolver interface {
	Get(ctx context.Context, ownerID, fileID uuid.UUID) (file.StoredFile, error)
}

type objectStore interface {
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

// Service issues, redeems and audits share tokens.
type Service struct {
	repo         tokenStore
	files        fileResolver
	objectStore  objectStore
	objectBucket string
	limits       config.LimitsConfig
	nowFunc      func() time.Time
}

// NewService constructs a share service.
func NewService(repo tokenStore, files fileResolver, store objectStore, objectBucket string, limits config.LimitsConfig) *Service {
	return &Service{
		repo:         repo,
		files:        files,
		objectStore:  store,
		objectBucket: objectBucket,
		limits:       limits,
		nowFunc:      time.Now,
	}
}

// IssueInput carries the parameters of a share request.
type IssueInput struct {
	FileID         uuid.UUID
	RecipientEmail string
	DurationHours  int
	Message        string
}

// Issue mints a share token for a file the issuer owns. The filename, size
// and object location are snapshotted so the audit trail survives the file.
func (s *Service) Issue(ctx context.Context, ownerID uuid.UUID, input IssueInput) (Token, error) {
	if !s.limits.AllowsDuration(input.DurationHours) {
		return Token{}, ErrInvalidDuration
	}

	meta, err := s.files.Get(ctx, ownerID, input.FileID)
	if err != nil {
		return Token{}, err
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return Token{}, fmt.Errorf("generate share token: %w", err)
	}

	now := s.nowFunc()
	t := Token{
		Token:      base64.RawURLEncoding.EncodeToString(raw),
		FileID:     meta.ID,
		OwnerID:    ownerID,
		Filename:   meta.OriginalFilename,
		SizeBytes:  meta.SizeBytes,
		ObjectName: meta.ObjectName,
		ExpiresAt:  now.Add(time.Duration(input.DurationHours) * time.Hour),
	}
	if recipient := strings.TrimSpace(input.RecipientEmail); recipient != "" {
		t.RecipientEmail = &recipient
	}
	if message := strings.TrimSpace(input.Message); message != "" {
		t.Message = &message
	}

	return s.repo.Create(ctx, t)
}

// Redeem exchanges a token for the shared file's metadata and content
// stream. No authentication is involved; the token is the credential.
func (s *Service) Redeem(ctx context.Context, rawToken string) (Token, io.ReadCloser, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return Token{}, nil, ErrTokenNotFound
	}

	t, err := s.repo.Redeem(ctx, rawToken, s.nowFunc())
	if err != nil {
		return Token{}, nil, err
	}

	object, err := s.objectStore.GetObject(ctx, s.objectBucket, t.ObjectName, minio.GetObjectOptions{})
	if err != nil {
		return Token{}, nil, fmt.Errorf("fetch shared object: %w", err)
	}

	return t, object, nil
}

// ListForAccount returns the account's issued tokens for audit display.
func (s *Service) ListForAccount(ctx context.Context, ownerID uuid.UUID) ([]Token, error) {
	tokens, err := s.repo.ListForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = []Token{}
	}
	return tokens, nil
}
