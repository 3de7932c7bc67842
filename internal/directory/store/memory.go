package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ledgerbot/internal/directory/models"
	"ledgerbot/pkg/platform/sentinel"
	"ledgerbot/pkg/requestcontext"
)

// InMemory keeps requesters in a map. The mutex is held only for map access.
type InMemory struct {
	mu         sync.RWMutex
	requesters map[int64]models.Requester
}

func NewInMemory() *InMemory {
	return &InMemory{requesters: make(map[int64]models.Requester)}
}

func (s *InMemory) Get(_ context.Context, id int64) (*models.Requester, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requesters[id]
	if !ok {
		return nil, fmt.Errorf("requester %d: %w", id, sentinel.ErrNotFound)
	}
	return &r, nil
}

func (s *InMemory) Status(_ context.Context, id int64) (models.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requesters[id]
	if !ok {
		return models.StatusUnregistered, nil
	}
	return r.Status, nil
}

func (s *InMemory) UpsertPending(ctx context.Context, id int64, name, contact string) (models.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requesters[id]; ok {
		return models.AlreadyPresent, nil
	}
	s.requesters[id] = models.Requester{
		ID:           id,
		Name:         name,
		Contact:      contact,
		Status:       models.StatusPending,
		RegisteredAt: requestcontext.Now(ctx),
	}
	return models.Created, nil
}

func (s *InMemory) SetStatus(_ context.Context, id int64, status models.Status) (models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requesters[id]
	if !ok {
		return "", fmt.Errorf("requester %d: %w", id, sentinel.ErrNotFound)
	}
	previous := r.Status
	if !previous.CanTransitionTo(status) {
		return previous, fmt.Errorf("requester %d %s to %s: %w", id, previous, status, sentinel.ErrInvalidState)
	}
	r.Status = status
	s.requesters[id] = r
	return previous, nil
}

func (s *InMemory) ListByStatus(_ context.Context, status models.Status) ([]models.Requester, error) {
	s.mu.RLock()
	out := make([]models.Requester, 0)
	for _, r := range s.requesters {
		if r.Status == status {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemory) CreateApproved(ctx context.Context, r models.Requester) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requesters[r.ID]; ok {
		return fmt.Errorf("requester %d: %w", r.ID, sentinel.ErrConflict)
	}
	r.Status = models.StatusApproved
	if r.RegisteredAt.IsZero() {
		r.RegisteredAt = requestcontext.Now(ctx)
	}
	s.requesters[r.ID] = r
	return nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requesters), nil
}

func (s *InMemory) Recent(_ context.Context, limit int) ([]models.Requester, error) {
	s.mu.RLock()
	out := make([]models.Requester, 0, len(s.requesters))
	for _, r := range s.requesters {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sortNewestFirst orders by registration time, breaking ties by id so output
// is stable.
func sortNewestFirst(rs []models.Requester) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].RegisteredAt.Equal(rs[j].RegisteredAt) {
			return rs[i].RegisteredAt.After(rs[j].RegisteredAt)
		}
		return rs[i].ID > rs[j].ID
	})
}
