package account

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/nursat/filevault/internal/config"
	"golang.org/x/crypto/bcrypt"
)

var testAuthConfig = config.AuthConfig{
	TokenSecret: "unit-test-secret",
	BcryptCost:  bcrypt.MinCost,
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		Email:       email,
		Password:    "password123",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		DateOfBirth: time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC),
		PhoneNumber: "+77001234567",
	}
}

func TestRegisterHashesCredentialAndNormalizesEmail(t *testing.T) {
	store := newFakeStore()
	service := NewService(store, nil, "", testAuthConfig)

	acc, err := service.Register(context.Background(), registerInput("  Ada@Example.COM "))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if acc.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", acc.Email)
	}
	if acc.PasswordHash != "" {
		t.Fatal("returned account must not expose the password hash")
	}

	stored := store.accounts[acc.ID]
	if stored.PasswordHash == "password123" {
		t.Fatal("credential stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")); err != nil {
		t.Fatalf("stored hash does not match credential: %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	store := newFakeStore()
	service := NewService(store, nil, "", testAuthConfig)

	if _, err := service.Register(context.Background(), registerInput("dup@example.com")); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	_, err := service.Register(context.Background(), registerInput("dup@example.com"))
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestRegisterRejectsWeakCredentials(t *testing.T) {
	service := NewService(newFakeStore(), nil, "", testAuthConfig)

	cases := []RegisterInput{
		{Email: "", Password: "password123"},
		{Email: "a@b.com", Password: ""},
		{Email: "a@b.com", Password: "short"},
		{Email: "a@b.com", Password: strings.Repeat("x", 73)},
	}
	for _, input := range cases {
		if _, err := service.Register(context.Background(), input); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("input %+v: expected ErrInvalidCredentials, got %v", input, err)
		}
	}
}

func TestRegisterStoresProfilePhoto(t *testing.T) {
	store := newFakeStore()
	photos := &fakePhotoStore{objects: map[string][]byte{}}
	service := NewService(store, photos, "filevault", testAuthConfig)

	input := registerInput("photo@example.com")
	input.Photo = buildPhotoHeader(t, "avatar.png", []byte("png bytes"))

	acc, err := service.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if acc.ProfilePhoto == nil {
		t.Fatal("expected profile photo reference")
	}
	if !strings.HasPrefix(*acc.ProfilePhoto, profilePhotoPrefix+"/") {
		t.Fatalf("unexpected photo object name: %s", *acc.ProfilePhoto)
	}
	if _, ok := photos.objects[*acc.ProfilePhoto]; !ok {
		t.Fatal("photo content not stored")
	}
}

func TestVerifyFailuresAreIndistinguishable(t *testing.T) {
	store := newFakeStore()
	service := NewService(store, nil, "", testAuthConfig)

	if _, err := service.Register(context.Background(), registerInput("v@example.com")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	_, wrongPass := service.Verify(context.Background(), "v@example.com", "not the pass")
	_, unknown := service.Verify(context.Background(), "ghost@example.com", "password123")

	if !errors.Is(wrongPass, ErrInvalidCredentials) || !errors.Is(unknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", wrongPass, unknown)
	}
}

func TestVerifyAcceptsCaseInsensitiveEmail(t *testing.T) {
	store := newFakeStore()
	service := NewService(store, nil, "", testAuthConfig)

	if _, err := service.Register(context.Background(), registerInput("case@example.com")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if _, err := service.Verify(context.Background(), "CASE@Example.com", "password123"); err != nil {
		t.Fatalf("Verify with differently-cased email returned error: %v", err)
	}
}

func TestChangePasswordRequiresCurrentCredential(t *testing.T) {
	store := newFakeStore()
	service := NewService(store, nil, "", testAuthConfig)

	acc, err := service.Register(context.Background(), registerInput("cp@example.com"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	err = service.ChangePassword(context.Background(), acc.ID, "wrong current", "next password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := service.ChangePassword(context.Background(), acc.ID, "password123", "next password"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	if _, err := service.Verify(context.Background(), "cp@example.com", "next password"); err != nil {
		t.Fatalf("new credential rejected: %v", err)
	}
	if _, err := service.Verify(context.Background(), "cp@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old credential still valid: %v", err)
	}
}

func TestUpdateProfileLeavesEmailUntouched(t *testing.T) {
	store := newFakeStore()
	service := NewService(store, nil, "", testAuthConfig)

	acc, err := service.Register(context.Background(), registerInput("up@example.com"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	updated, err := service.UpdateProfile(context.Background(), acc.ID, ProfileInput{
		FirstName:   "Grace",
		LastName:    "Hopper",
		DateOfBirth: time.Date(1985, 6, 1, 0, 0, 0, 0, time.UTC),
		PhoneNumber: "+77009876543",
	})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}

	if updated.FirstName != "Grace" || updated.LastName != "Hopper" {
		t.Fatalf("profile fields not updated: %+v", updated)
	}
	if updated.Email != "up@example.com" {
		t.Fatalf("email must not change, got %q", updated.Email)
	}
}

// --- helpers & fakes ---

func buildPhotoHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("profile_photo", filename)
	if err != nil {
		t.Fatalf("CreateFormFile error: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(int64(len(content)) + 1024); err != nil {
		t.Fatalf("ParseMultipartForm: %v", err)
	}

	return req.MultipartForm.File["profile_photo"][0]
}

type fakeStore struct {
	accounts map[uuid.UUID]Account
	byEmail  map[string]uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[uuid.UUID]Account),
		byEmail:  make(map[string]uuid.UUID),
	}
}

func (f *fakeStore) Create(ctx context.Context, acc Account) (Account, error) {
	if _, exists := f.byEmail[acc.Email]; exists {
		return Account{}, ErrEmailAlreadyExists
	}
	acc.CreatedAt = time.Now()
	acc.UpdatedAt = acc.CreatedAt
	f.accounts[acc.ID] = acc
	f.byEmail[acc.Email] = acc.ID
	return acc, nil
}

func (f *fakeStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	id, ok := f.byEmail[email]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return f.accounts[id], nil
}

func (f *fakeStore) FindByID(ctx context.Context, id uuid.UUID) (Account, error) {
	acc, ok := f.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (f *fakeStore) UpdateProfile(ctx context.Context, acc Account) (Account, error) {
	if _, ok := f.accounts[acc.ID]; !ok {
		return Account{}, ErrAccountNotFound
	}
	acc.UpdatedAt = time.Now()
	f.accounts[acc.ID] = acc
	return acc, nil
}

func (f *fakeStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	acc, ok := f.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	acc.PasswordHash = passwordHash
	acc.UpdatedAt = time.Now()
	f.accounts[id] = acc
	return nil
}

type fakePhotoStore struct {
	objects map[string][]byte
}

func (f *fakePhotoStore) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[objectName] = content
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, nil
}
