package meetings

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("meetings: not found")
	ErrInvalidMeeting = errors.New("meetings: invalid meeting")
	ErrNotConfigured  = errors.New("meetings: repository not configured")
)

// Repository is the persistence contract for meeting records.
type Repository interface {
	Insert(ctx context.Context, m Meeting) error
	Get(ctx context.Context, id string) (Meeting, error)
	MarkEnded(ctx context.Context, id string, endedAt time.Time) error
	ListUpcoming(ctx context.Context, ownerID string, after time.Time) ([]Meeting, error)
	ListPrevious(ctx context.Context, ownerID string, before time.Time) ([]Meeting, error)
}

// Service owns meeting records. Writes are idempotent on the call identifier
// so the provider's get-or-create semantics carry through to our store.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Record stores a created meeting. Recording the same identifier twice is a
// no-op, matching the idempotent create-or-get contract upstream.
func (s *Service) Record(ctx context.Context, m Meeting) error {
	if s.repo == nil {
		return ErrNotConfigured
	}
	if m.ID == "" || m.OwnerID == "" {
		return ErrInvalidMeeting
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.clock().UTC()
	}
	if m.StartsAt.IsZero() {
		m.StartsAt = m.CreatedAt
	}

	if _, err := s.repo.Get(ctx, m.ID); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.repo.Insert(ctx, m)
}

// MarkEnded records that the call was terminated.
func (s *Service) MarkEnded(ctx context.Context, id string) error {
	if s.repo == nil {
		return ErrNotConfigured
	}
	if id == "" {
		return ErrInvalidMeeting
	}
	return s.repo.MarkEnded(ctx, id, s.clock().UTC())
}

func (s *Service) Get(ctx context.Context, id string) (Meeting, error) {
	if s.repo == nil {
		return Meeting{}, ErrNotConfigured
	}
	return s.repo.Get(ctx, id)
}

// ListUpcoming returns the owner's meetings starting at or after now.
func (s *Service) ListUpcoming(ctx context.Context, ownerID string) ([]Meeting, error) {
	if s.repo == nil {
		return nil, ErrNotConfigured
	}
	return s.repo.ListUpcoming(ctx, ownerID, s.clock().UTC())
}

// ListPrevious returns the owner's meetings that started before now.
func (s *Service) ListPrevious(ctx context.Context, ownerID string) ([]Meeting, error) {
	if s.repo == nil {
		return nil, ErrNotConfigured
	}
	return s.repo.ListPrevious(ctx, ownerID, s.clock().UTC())
}
