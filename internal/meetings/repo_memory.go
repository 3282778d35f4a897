package meetings

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory repository for tests and local runs.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]Meeting
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Meeting)}
}

func (r *MemoryRepo) Insert(ctx context.Context, m Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[m.ID] = m
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return Meeting{}, ErrNotFound
	}
	return m, nil
}

func (r *MemoryRepo) MarkEnded(ctx context.Context, id string, endedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	m.EndedAt = &endedAt
	r.byID[id] = m
	return nil
}

func (r *MemoryRepo) ListUpcoming(ctx context.Context, ownerID string, after time.Time) ([]Meeting, error) {
	return r.list(ownerID, func(m Meeting) bool { return !m.StartsAt.Before(after) }, true), nil
}

func (r *MemoryRepo) ListPrevious(ctx context.Context, ownerID string, before time.Time) ([]Meeting, error) {
	return r.list(ownerID, func(m Meeting) bool { return m.StartsAt.Before(before) }, false), nil
}

func (r *MemoryRepo) list(ownerID string, keep func(Meeting) bool, ascending bool) []Meeting {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Meeting
	for _, m := range r.byID {
		if m.OwnerID == ownerID && keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].StartsAt.After(out[j].StartsAt)
	})
	return out
}
