package file

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// metadataStore abstracts metadata persistence.
type metadataStore interface {
	Create(ctx context.Context, meta StoredFile) (StoredFile, error)
	List(ctx context.Context, ownerID uuid.UUID, search string, limit, offset int) ([]StoredFile, int64, error)
	Get(ctx context.Context, ownerID, fileID uuid.UUID) (StoredFile, error)
	DeleteCascade(ctx context.Context, ownerID, fileID uuid.UUID) (StoredFile, error)
}

// quotaLedger is the admission gate for storage bytes.
type quotaLedger interface {
	Reserve(ctx context.Context, accountID uuid.UUID, bytes int64) error
	Release(ctx context.Context, accountID uuid.UUID, bytes int64) error
}

type objectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Service manages file lifecycle operations.
type Service struct {
	repo         metadataStore
	quota        quotaLedger
	objectStore  objectStore
	objectBucket string
	maxFileSize  int64
	pageSize     int
}

// NewService constructs a file service.
func NewService(repo metadataStore, quota quotaLedger, store objectStore, objectBucket string, maxFileSize int64, pageSize int) *Service {
	return &Service{
		repo:         repo,
		quota:        quota,
		objectStore:  store,
		objectBucket: objectBucket,
		maxFileSize:  maxFileSize,
		pageSize:     pageSize,
	}
}

// Upload admits the file against the per-file cap and the owner's quota,
// then persists content and metadata. The quota reservation happens before
// any bytes reach storage; every failure path afterwards releases it.
func (s *Service) Upload(ctx context.Context, ownerID uuid.UUID, fileHeader *multipart.FileHeader) (StoredFile, error) {
	if fileHeader == nil {
		return StoredFile{}, fmt.Errorf("missing file payload")
	}

	size := fileHeader.Size
	if size <= 0 {
		return StoredFile{}, fmt.Errorf("empty file payload")
	}
	if size > s.maxFileSize {
		return StoredFile{}, ErrFileTooLarge
	}

	if err := s.quota.Reserve(ctx, ownerID, size); err != nil {
		return StoredFile{}, err
	}

	fileID := uuid.New()
	objectName := fmt.Sprintf("%s/%s", ownerID.String(), fileID.String())

	src, err := fileHeader.Open()
	if err != nil {
		s.compensate(ctx, ownerID, size)
		return StoredFile{}, fmt.Errorf("open upload file: %w", err)
	}
	defer src.Close()

	// The declared length bounds the write: PutObject reads exactly size
	// bytes, so content can never outgrow the reservation mid-stream.
	putOpts := minio.PutObjectOptions{ContentType: detectContentType(fileHeader)}
	if _, err := s.objectStore.PutObject(ctx, s.objectBucket, objectName, src, size, putOpts); err != nil {
		s.compensate(ctx, ownerID, size)
		return StoredFile{}, fmt.Errorf("%w: store object: %v", ErrStorageFailure, err)
	}

	meta := StoredFile{
		ID:               fileID,
		OwnerID:          ownerID,
		OriginalFilename: sanitizeFilename(fileHeader.Filename),
		SizeBytes:        size,
		ObjectName:       objectName,
	}

	stored, err := s.repo.Create(ctx, meta)
	if err != nil {
		_ = s.objectStore.RemoveObject(ctx, s.objectBucket, objectName, minio.RemoveObjectOptions{})
		s.compensate(ctx, ownerID, size)
		return StoredFile{}, fmt.Errorf("%w: persist metadata: %v", ErrStorageFailure, err)
	}

	return stored, nil
}

// maxPageSize bounds client-requested page lengths.
const maxPageSize = 100

// List returns one page of the owner's files. perPage overrides the default
// page length when positive; it is clamped to maxPageSize.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, search string, page, perPage int) (Listing, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = s.pageSize
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}
	offset := (page - 1) * perPage

	files, total, err := s.repo.List(ctx, ownerID, strings.TrimSpace(search), perPage, offset)
	if err != nil {
		return Listing{}, err
	}
	if files == nil {
		files = []StoredFile{}
	}
	return Listing{Files: files, TotalFiles: total}, nil
}

// Get returns metadata for a single owned file.
func (s *Service) Get(ctx context.Context, ownerID, fileID uuid.UUID) (StoredFile, error) {
	return s.repo.Get(ctx, ownerID, fileID)
}

// Download retrieves metadata and the content stream for an owned file.
func (s *Service) Download(ctx context.Context, ownerID, fileID uuid.UUID) (StoredFile, io.ReadCloser, error) {
	meta, err := s.repo.Get(ctx, ownerID, fileID)
	if err != nil {
		return StoredFile{}, nil, err
	}

	object, err := s.objectStore.GetObject(ctx, s.objectBucket, meta.ObjectName, minio.GetObjectOptions{})
	if err != nil {
		return StoredFile{}, nil, fmt.Errorf("%w: fetch object: %v", ErrStorageFailure, err)
	}

	return meta, object, nil
}

// Delete removes the file. Metadata removal, share-token revocation and the
// quota release commit atomically; the content object is removed after.
func (s *Service) Delete(ctx context.Context, ownerID, fileID uuid.UUID) error {
	meta, err := s.repo.DeleteCascade(ctx, ownerID, fileID)
	if err != nil {
		return err
	}

	if err := s.objectStore.RemoveObject(ctx, s.objectBucket, meta.ObjectName, minio.RemoveObjectOptions{}); err != nil {
		// The record and tokens are already gone; an orphaned object is
		// recoverable by storage-side cleanup.
		return fmt.Errorf("%w: remove object: %v", ErrStorageFailure, err)
	}
	return nil
}

func (s *Service) compensate(ctx context.Context, ownerID uuid.UUID, bytes int64) {
	_ = s.quota.Release(ctx, ownerID, bytes)
}

func detectContentType(fileHeader *multipart.FileHeader) string {
	if fileHeader == nil {
		return "application/octet-stream"
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		return "upload"
	}
	return name
}
