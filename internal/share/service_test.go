package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/nursat/filevault/internal/config"
	"github.com/nursat/filevault/internal/file"
)

var testLimits = config.LimitsConfig{
	MaxFileSizeBytes:  100 * 1024 * 1024,
	QuotaBytes:        1024 * 1024 * 1024,
	FilesPerPage:      10,
	ShareDurationsHrs: []int{1, 24, 72, 168, 720},
}

func newTestEnv() (*Service, *fakeTokenStore, *fakeFiles, *fakeObjects) {
	tokens := newFakeTokenStore()
	files := &fakeFiles{files: map[uuid.UUID]file.StoredFile{}}
	objects := &fakeObjects{objects: map[string][]byte{}}
	service := NewService(tokens, files, objects, "filevault", testLimits)
	return service, tokens, files, objects
}

func addFile(files *fakeFiles, objects *fakeObjects, ownerID uuid.UUID, name string, content []byte) file.StoredFile {
	meta := file.StoredFile{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		OriginalFilename: name,
		SizeBytes:        int64(len(content)),
		ObjectName:       fmt.Sprintf("%s/%s", ownerID, name),
		UploadedAt:       time.Now(),
	}
	files.files[meta.ID] = meta
	objects.objects[meta.ObjectName] = content
	return meta
}

func TestIssueAndRedeemRoundtrip(t *testing.T) {
	service, _, files, objects := newTestEnv()
	ownerID := uuid.New()
	meta := addFile(files, objects, ownerID, "report.pdf", []byte("pdf bytes"))

	issued, err := service.Issue(context.Background(), ownerID, IssueInput{
		FileID:         meta.ID,
		RecipientEmail: "friend@example.com",
		DurationHours:  24,
		Message:        "here you go",
	})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if issued.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if len(issued.Token) < 40 {
		t.Fatalf("token too short to be unguessable: %d chars", len(issued.Token))
	}
	if issued.Accessed {
		t.Fatal("fresh token must not be marked accessed")
	}
	if issued.Filename != "report.pdf" || issued.SizeBytes != int64(len("pdf bytes")) {
		t.Fatalf("metadata snapshot mismatch: %+v", issued)
	}

	redeemed, reader, err := service.Redeem(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("Redeem returned error: %v", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read shared content: %v", err)
	}
	if string(content) != "pdf bytes" {
		t.Fatalf("unexpected content: %q", content)
	}
	if !redeemed.Accessed {
		t.Fatal("redeemed token must be marked accessed")
	}
	if redeemed.AccessedAt == nil {
		t.Fatal("expected accessed_at to be set")
	}
}

func TestIssueRejectsDisallowedDuration(t *testing.T) {
	service, tokens, files, objects := newTestEnv()
	ownerID := uuid.New()
	meta := addFile(files, objects, ownerID, "a.txt", []byte("x"))

	for _, hours := range []int{0, -1, 2, 48, 1000} {
		_, err := service.Issue(context.Background(), ownerID, IssueInput{FileID: meta.ID, DurationHours: hours})
		if !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("duration %d: expected ErrInvalidDuration, got %v", hours, err)
		}
	}
	if len(tokens.tokens) != 0 {
		t.Fatalf("rejected issues created %d tokens", len(tokens.tokens))
	}
}

func TestIssueRejectsForeignFile(t *testing.T) {
	service, _, files, objects := newTestEnv()
	meta := addFile(files, objects, uuid.New(), "theirs.txt", []byte("x"))

	_, err := service.Issue(context.Background(), uuid.New(), IssueInput{FileID: meta.ID, DurationHours: 24})
	if !errors.Is(err, file.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestRedeemIsIdempotent(t *testing.T) {
	service, _, files, objects := newTestEnv()
	ownerID := uuid.New()
	meta := addFile(files, objects, ownerID, "doc.txt", []byte("content"))

	issued, err := service.Issue(context.Background(), ownerID, IssueInput{FileID: meta.ID, DurationHours: 24})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	first, reader, err := service.Redeem(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("first Redeem returned error: %v", err)
	}
	reader.Close()

	second, reader, err := service.Redeem(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("second Redeem returned error: %v", err)
	}
	reader.Close()

	if !second.Accessed {
		t.Fatal("token must stay accessed")
	}
	if !first.AccessedAt.Equal(*second.AccessedAt) {
		t.Fatalf("accessed_at changed between redemptions: %v vs %v", first.AccessedAt, second.AccessedAt)
	}
}

func TestRedeemExpiredTokenIsTerminal(t *testing.T) {
	service, _, files, objects := newTestEnv()
	ownerID := uuid.New()
	meta := addFile(files, objects, ownerID, "old.txt", []byte("x"))

	now := time.Now()
	service.nowFunc = func() time.Time { return now }

	issued, err := service.Issue(context.Background(), ownerID, IssueInput{FileID: meta.ID, DurationHours: 1})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	service.nowFunc = func() time.Time { return now.Add(2 * time.Hour) }

	_, _, err = service.Redeem(context.Background(), issued.Token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	// Still expired on retry; expiry never un-happens.
	_, _, err = service.Redeem(context.Background(), issued.Token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired on retry, got %v", err)
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	service, _, _, _ := newTestEnv()

	for _, token := range []string{"", "   ", "nonsense", "QUJDREVGR0hJSktMTU5PUFFSU1RVVldYWVphYmNkZWZnaGk"} {
		_, _, err := service.Redeem(context.Background(), token)
		if !errors.Is(err, ErrTokenNotFound) {
			t.Fatalf("token %q: expected ErrTokenNotFound, got %v", token, err)
		}
	}
}

func TestRedeemRevokedTokenReportsNotFound(t *testing.T) {
	service, tokens, files, objects := newTestEnv()
	ownerID := uuid.New()
	meta := addFile(files, objects, ownerID, "gone.txt", []byte("x"))

	issued, err := service.Issue(context.Background(), ownerID, IssueInput{FileID: meta.ID, DurationHours: 24})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	revokedAt := time.Now()
	rec := tokens.tokens[issued.Token]
	rec.RevokedAt = &revokedAt
	tokens.tokens[issued.Token] = rec

	_, _, err = service.Redeem(context.Background(), issued.Token)
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for revoked token, got %v", err)
	}
}

func TestTokensAreUnique(t *testing.T) {
	service, _, files, objects := newTestEnv()
	ownerID := uuid.New()
	meta := addFile(files, objects, ownerID, "f.txt", []byte("x"))

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		issued, err := service.Issue(context.Background(), ownerID, IssueInput{FileID: meta.ID, DurationHours: 24})
		if err != nil {
			t.Fatalf("Issue returned error: %v", err)
		}
		if seen[issued.Token] {
			t.Fatalf("duplicate token issued: %s", issued.Token)
		}
		seen[issued.Token] = true
	}
}

func TestListForAccountShowsIssuedTokens(t *testing.T) {
	service, _, files, objects := newTestEnv()
	ownerID := uuid.New()
	meta := addFile(files, objects, ownerID, "shared.txt", []byte("x"))

	other := uuid.New()
	otherMeta := addFile(files, objects, other, "private.txt", []byte("y"))
	if _, err := service.Issue(context.Background(), other, IssueInput{FileID: otherMeta.ID, DurationHours: 24}); err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := service.Issue(context.Background(), ownerID, IssueInput{FileID: meta.ID, DurationHours: 24}); err != nil {
			t.Fatalf("Issue returned error: %v", err)
		}
	}

	listed, err := service.ListForAccount(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("ListForAccount returned error: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(listed))
	}
	for _, tok := range listed {
		if tok.OwnerID != ownerID {
			t.Fatalf("listing leaked foreign token: %+v", tok)
		}
	}
}

// --- fakes ---

type fakeTokenStore struct {
	tokens map[string]Token
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]Token)}
}

func (f *fakeTokenStore) Create(ctx context.Context, t Token) (Token, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	f.tokens[t.Token] = t
	return t, nil
}

func (f *fakeTokenStore) Redeem(ctx context.Context, token string, now time.Time) (Token, error) {
	rec, ok := f.tokens[token]
	if !ok || rec.RevokedAt != nil {
		return Token{}, ErrTokenNotFound
	}
	if !rec.ExpiresAt.After(now) {
		return Token{}, ErrTokenExpired
	}
	rec.Accessed = true
	if rec.AccessedAt == nil {
		at := now
		rec.AccessedAt = &at
	}
	f.tokens[token] = rec
	return rec, nil
}

func (f *fakeTokenStore) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]Token, error) {
	var out []Token
	for _, rec := range f.tokens {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeFiles struct {
	files map[uuid.UUID]file.StoredFile
}

func (f *fakeFiles) Get(ctx context.Context, ownerID, fileID uuid.UUID) (file.StoredFile, error) {
	rec, ok := f.files[fileID]
	if !ok || rec.OwnerID != ownerID {
		return file.StoredFile{}, file.ErrFileNotFound
	}
	return rec, nil
}

type fakeObjects struct {
	objects map[string][]byte
}

func (f *fakeObjects) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	content, ok := f.objects[objectName]
	if !ok {
		return nil, fmt.Errorf("object %q not found", objectName)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}
