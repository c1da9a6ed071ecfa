package quota

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ledgerStore abstracts the persistence layer.
type ledgerStore interface {
	Reserve(ctx context.Context, accountID uuid.UUID, bytes, capBytes int64) error
	Release(ctx context.Context, accountID uuid.UUID, bytes int64) error
	Consumed(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// Service enforces the per-account storage cap.
type Service struct {
	repo       ledgerStore
	quotaBytes int64
}

// NewService constructs a quota service with the configured cap.
func NewService(repo ledgerStore, quotaBytes int64) *Service {
	return &Service{repo: repo, quotaBytes: quotaBytes}
}

// Reserve admits bytes against the account's cap, or fails with
// ErrQuotaExceeded without mutating the ledger.
func (s *Service) Reserve(ctx context.Context, accountID uuid.UUID, bytes int64) error {
	if bytes <= 0 {
		return fmt.Errorf("reservation must be positive, got %d", bytes)
	}
	if bytes > s.quotaBytes {
		return ErrQuotaExceeded
	}
	return s.repo.Reserve(ctx, accountID, bytes, s.quotaBytes)
}

// Release returns bytes to the account. Safe to call with amounts larger
// than the balance; the ledger floors at zero.
func (s *Service) Release(ctx context.Context, accountID uuid.UUID, bytes int64) error {
	if bytes <= 0 {
		return nil
	}
	return s.repo.Release(ctx, accountID, bytes)
}

// Usage reports the account's consumption against the cap.
func (s *Service) Usage(ctx context.Context, accountID uuid.UUID) (Usage, error) {
	consumed, err := s.repo.Consumed(ctx, accountID)
	if err != nil {
		return Usage{}, err
	}

	available := s.quotaBytes - consumed
	if available < 0 {
		available = 0
	}

	return Usage{
		ConsumedBytes:  consumed,
		QuotaBytes:     s.quotaBytes,
		AvailableBytes: available,
	}, nil
}
