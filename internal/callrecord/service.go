package callrecord

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for call records.
type Repository interface {
	Create(ctx context.Context, rec Record) error

	// Close marks the record terminal. Implementations must be no-ops for
	// records that are already closed so that duplicate terminations
	// (status webhook racing socket closure) cannot double-write.
	Close(ctx context.Context, providerCallID string, status Status, durationSeconds int, endedAt time.Time) error

	FindByProviderCallID(ctx context.Context, providerCallID string) (Record, bool, error)
}

// Service opens and closes call records. Callers treat it as
// best-effort: persistence failures are logged upstream, never surfaced
// to the provider-facing paths.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidRecord = errors.New("callrecord: invalid record")

func (s *Service) Open(ctx context.Context, providerCallID, from, to, listingID string) error {
	if s.repo == nil {
		return errors.New("callrecord: repository not configured")
	}
	if providerCallID == "" {
		return ErrInvalidRecord
	}
	return s.repo.Create(ctx, Record{
		ID:             uuid.NewString(),
		ProviderCallID: providerCallID,
		From:           from,
		To:             to,
		ListingID:      listingID,
		Status:         StatusInProgress,
		StartedAt:      s.clock().UTC(),
	})
}

func (s *Service) Close(ctx context.Context, providerCallID string, status Status, durationSeconds int) error {
	if s.repo == nil {
		return errors.New("callrecord: repository not configured")
	}
	if providerCallID == "" {
		return ErrInvalidRecord
	}
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return s.repo.Close(ctx, providerCallID, status, durationSeconds, s.clock().UTC())
}
