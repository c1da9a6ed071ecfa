package quota

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

const testCap = 1024 * 1024 * 1024

func TestReserveAdmitsUpToCap(t *testing.T) {
	ledger := newFakeLedger()
	service := NewService(ledger, testCap)
	accountID := uuid.New()

	if err := service.Reserve(context.Background(), accountID, testCap); err != nil {
		t.Fatalf("Reserve at cap returned error: %v", err)
	}
	if got := ledger.consumed[accountID]; got != testCap {
		t.Fatalf("expected consumed %d, got %d", testCap, got)
	}
}

func TestReserveRejectsOverCapWithoutMutation(t *testing.T) {
	ledger := newFakeLedger()
	service := NewService(ledger, testCap)
	accountID := uuid.New()

	if err := service.Reserve(context.Background(), accountID, testCap-10); err != nil {
		t.Fatalf("first Reserve returned error: %v", err)
	}

	err := service.Reserve(context.Background(), accountID, 11)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if got := ledger.consumed[accountID]; got != testCap-10 {
		t.Fatalf("rejected reservation mutated ledger: consumed %d", got)
	}
}

func TestReserveRejectsOversizedRequestBeforeLedger(t *testing.T) {
	ledger := newFakeLedger()
	service := NewService(ledger, testCap)

	err := service.Reserve(context.Background(), uuid.New(), testCap+1)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if ledger.reserveCalls != 0 {
		t.Fatalf("expected no ledger call for oversized request, got %d", ledger.reserveCalls)
	}
}

func TestReserveRejectsNonPositive(t *testing.T) {
	service := NewService(newFakeLedger(), testCap)

	if err := service.Reserve(context.Background(), uuid.New(), 0); err == nil {
		t.Fatal("expected error for zero reservation")
	}
	if err := service.Reserve(context.Background(), uuid.New(), -5); err == nil {
		t.Fatal("expected error for negative reservation")
	}
}

func TestConcurrentReservesAdmitExactlyOne(t *testing.T) {
	ledger := newFakeLedger()
	service := NewService(ledger, testCap)
	accountID := uuid.New()

	// Two reservations that individually fit but together exceed the cap.
	size := int64(600 * 1024 * 1024)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = service.Reserve(context.Background(), accountID, size)
		}(i)
	}
	wg.Wait()

	var admitted, rejected int
	for _, err := range results {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, ErrQuotaExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if admitted != 1 || rejected != 1 {
		t.Fatalf("expected exactly one admission, got admitted=%d rejected=%d", admitted, rejected)
	}
	if got := ledger.consumed[accountID]; got != size {
		t.Fatalf("expected consumed %d, got %d", size, got)
	}
}

func TestReleaseFloorsAtZero(t *testing.T) {
	ledger := newFakeLedger()
	service := NewService(ledger, testCap)
	accountID := uuid.New()

	if err := service.Reserve(context.Background(), accountID, 100); err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}
	if err := service.Release(context.Background(), accountID, 500); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if got := ledger.consumed[accountID]; got != 0 {
		t.Fatalf("expected consumed floored at 0, got %d", got)
	}
}

func TestReleaseIgnoresNonPositive(t *testing.T) {
	ledger := newFakeLedger()
	service := NewService(ledger, testCap)

	if err := service.Release(context.Background(), uuid.New(), 0); err != nil {
		t.Fatalf("Release(0) returned error: %v", err)
	}
	if ledger.releaseCalls != 0 {
		t.Fatalf("expected no ledger call, got %d", ledger.releaseCalls)
	}
}

func TestUsageReportsAvailable(t *testing.T) {
	ledger := newFakeLedger()
	service := NewService(ledger, testCap)
	accountID := uuid.New()

	if err := service.Reserve(context.Background(), accountID, 300); err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}

	usage, err := service.Usage(context.Background(), accountID)
	if err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}
	if usage.ConsumedBytes != 300 {
		t.Fatalf("expected consumed 300, got %d", usage.ConsumedBytes)
	}
	if usage.QuotaBytes != testCap {
		t.Fatalf("expected quota %d, got %d", testCap, usage.QuotaBytes)
	}
	if usage.AvailableBytes != testCap-300 {
		t.Fatalf("expected available %d, got %d", testCap-300, usage.AvailableBytes)
	}
}

func TestUsageForUntouchedAccountIsZero(t *testing.T) {
	service := NewService(newFakeLedger(), testCap)

	usage, err := service.Usage(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}
	if usage.ConsumedBytes != 0 {
		t.Fatalf("expected zero consumption, got %d", usage.ConsumedBytes)
	}
}

// --- fakes ---

// fakeLedger mirrors the guarded-upsert semantics of the real repository:
// check and increment happen under one lock.
type fakeLedger struct {
	mu           sync.Mutex
	consumed     map[uuid.UUID]int64
	reserveCalls int
	releaseCalls int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{consumed: make(map[uuid.UUID]int64)}
}

func (f *fakeLedger) Reserve(ctx context.Context, accountID uuid.UUID, bytes, capBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserveCalls++
	if f.consumed[accountID]+bytes > capBytes {
		return ErrQuotaExceeded
	}
	f.consumed[accountID] += bytes
	return nil
}

func (f *fakeLedger) Release(ctx context.Context, accountID uuid.UUID, bytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls++
	next := f.consumed[accountID] - bytes
	if next < 0 {
		next = 0
	}
	f.consumed[accountID] = next
	return nil
}

func (f *fakeLedger) Consumed(ctx context.Context, accountID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.consumed[accountID], nil
}
