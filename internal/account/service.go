package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/nursat/filevault/internal/config"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxPasswordLength  = 72 // bcrypt limit
	profilePhotoPrefix = "profile-photos"
)

// accountStore abstracts the persistence layer.
type accountStore interface {
	Create(ctx context.Context, acc Account) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (Account, error)
	UpdateProfile(ctx context.Context, acc Account) (Account, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type photoStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Service encapsulates account use cases.
type Service struct {
	store       accountStore
	photos      photoStore
	photoBucket string
	cfg         config.AuthConfig
	nowFunc     func() time.Time
}

// NewService creates a Service with dependencies. photos may be nil when
// profile photo storage is not configured.
func NewService(store accountStore, photos photoStore, photoBucket string, cfg config.AuthConfig) *Service {
	return &Service{
		store:       store,
		photos:      photos,
		photoBucket: photoBucket,
		cfg:         cfg,
		nowFunc:     time.Now,
	}
}

// RegisterInput carries data for account registration.
type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	PhoneNumber string
	Photo       *multipart.FileHeader
}

// ProfileInput carries the mutable profile fields.
type ProfileInput struct {
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	PhoneNumber string
	Photo       *multipart.FileHeader
}

// Register creates a new account, hashing the credential and storing the
// optional profile photo.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Account, error) {
	if err := validateCredentials(input.Email, input.Password); err != nil {
		return Account{}, err
	}

	hashed, err := hashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	acc := Account{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		DateOfBirth:  input.DateOfBirth,
		PhoneNumber:  strings.TrimSpace(input.PhoneNumber),
	}

	if input.Photo != nil {
		objectName, err := s.storePhoto(ctx, acc.ID, input.Photo)
		if err != nil {
			return Account{}, err
		}
		acc.ProfilePhoto = &objectName
	}

	stored, err := s.store.Create(ctx, acc)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return Account{}, ErrEmailAlreadyExists
		}
		return Account{}, fmt.Errorf("create account: %w", err)
	}

	return stored.SafeAccount(), nil
}

// Verify checks an email/credential pair and returns the matching account.
// Unknown email and wrong credential are indistinguishable to the caller.
func (s *Service) Verify(ctx context.Context, email, password string) (Account, error) {
	if err := validateCredentials(email, password); err != nil {
		return Account{}, ErrInvalidCredentials
	}

	acc, err := s.store.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, fmt.Errorf("find account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}

	return acc, nil
}

// LookupByEmail fetches an account by email address.
func (s *Service) LookupByEmail(ctx context.Context, email string) (Account, error) {
	acc, err := s.store.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return Account{}, err
	}
	return acc.SafeAccount(), nil
}

// Get fetches an account by identifier.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	acc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	return acc.SafeAccount(), nil
}

// UpdateProfile mutates the account's profile fields. Email stays untouched.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (Account, error) {
	acc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Account{}, err
	}

	acc.FirstName = strings.TrimSpace(input.FirstName)
	acc.LastName = strings.TrimSpace(input.LastName)
	acc.DateOfBirth = input.DateOfBirth
	acc.PhoneNumber = strings.TrimSpace(input.PhoneNumber)

	if input.Photo != nil {
		objectName, err := s.storePhoto(ctx, acc.ID, input.Photo)
		if err != nil {
			return Account{}, err
		}
		acc.ProfilePhoto = &objectName
	}

	stored, err := s.store.UpdateProfile(ctx, acc)
	if err != nil {
		return Account{}, err
	}
	return stored.SafeAccount(), nil
}

// VerifyPassword re-checks the account's current credential.
func (s *Service) VerifyPassword(ctx context.Context, id uuid.UUID, password string) error {
	acc, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ChangePassword re-verifies the current credential before accepting the new
// one. A valid session alone is not enough for this operation.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if err := s.VerifyPassword(ctx, id, current); err != nil {
		return err
	}
	return s.setPassword(ctx, id, next)
}

// ResetPassword replaces the credential without the current one. Callers must
// have authenticated the account through the reset-token flow.
func (s *Service) ResetPassword(ctx context.Context, id uuid.UUID, next string) error {
	return s.setPassword(ctx, id, next)
}

func (s *Service) setPassword(ctx context.Context, id uuid.UUID, next string) error {
	if len(next) < 8 || len(next) > maxPasswordLength {
		return ErrInvalidCredentials
	}
	hashed, err := hashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdatePasswordHash(ctx, id, hashed)
}

func (s *Service) storePhoto(ctx context.Context, accountID uuid.UUID, header *multipart.FileHeader) (string, error) {
	if s.photos == nil {
		return "", fmt.Errorf("photo storage not configured")
	}

	photo, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open profile photo: %w", err)
	}
	defer photo.Close()

	objectName := fmt.Sprintf("%s/%s%s", profilePhotoPrefix, accountID.String(), path.Ext(header.Filename))
	opts := minio.PutObjectOptions{ContentType: header.Header.Get("Content-Type")}

	if _, err := s.photos.PutObject(ctx, s.photoBucket, objectName, photo, header.Size, opts); err != nil {
		return "", fmt.Errorf("store profile photo: %w", err)
	}
	return objectName, nil
}

func hashPassword(password string, cost int) (string, error) {
	if len(password) > maxPasswordLength {
		return "", fmt.Errorf("password exceeds maximum length of %d characters", maxPasswordLength)
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func validateCredentials(email, password string) error {
	if len(strings.TrimSpace(email)) == 0 || len(strings.TrimSpace(password)) == 0 {
		return ErrInvalidCredentials
	}

	if len(password) < 8 || len(password) > maxPasswordLength {
		return ErrInvalidCredentials
	}
	return nil
}
