package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"ledgerbot/internal/taxonomy/models"
	"ledgerbot/pkg/platform/sentinel"
)

// InMemory keeps each kind in insertion order with its own id sequence.
type InMemory struct {
	mu     sync.RWMutex
	items  map[models.Kind][]models.Item
	nextID map[models.Kind]int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		items:  make(map[models.Kind][]models.Item),
		nextID: make(map[models.Kind]int64),
	}
}

func (s *InMemory) List(_ context.Context, kind models.Kind) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items[kind]), nil
}

func (s *InMemory) Get(_ context.Context, kind models.Kind, id int64) (models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(kind, id)
	if i < 0 {
		return models.Item{}, fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
	}
	return s.items[kind][i], nil
}

func (s *InMemory) Add(_ context.Context, kind models.Kind, name string) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasName(kind, name) {
		return models.Item{}, fmt.Errorf("%s %q: %w", kind, name, sentinel.ErrConflict)
	}
	s.nextID[kind]++
	item := models.Item{ID: s.nextID[kind], Name: name}
	s.items[kind] = append(s.items[kind], item)
	return item, nil
}

func (s *InMemory) Rename(_ context.Context, kind models.Kind, id int64, name string) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(kind, id)
	if i < 0 {
		return models.Item{}, fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
	}
	if s.items[kind][i].Name != name && s.hasName(kind, name) {
		return models.Item{}, fmt.Errorf("%s %q: %w", kind, name, sentinel.ErrConflict)
	}
	previous := s.items[kind][i]
	s.items[kind][i].Name = name
	return previous, nil
}

func (s *InMemory) Delete(_ context.Context, kind models.Kind, id int64) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(kind, id)
	if i < 0 {
		return models.Item{}, fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
	}
	removed := s.items[kind][i]
	s.items[kind] = slices.Delete(s.items[kind], i, i+1)
	return removed, nil
}

func (s *InMemory) SeedIfEmpty(_ context.Context, kind models.Kind, names []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items[kind]) > 0 {
		return 0, nil
	}
	added := 0
	for _, name := range names {
		if s.hasName(kind, name) {
			continue
		}
		s.nextID[kind]++
		s.items[kind] = append(s.items[kind], models.Item{ID: s.nextID[kind], Name: name})
		added++
	}
	return added, nil
}

func (s *InMemory) index(kind models.Kind, id int64) int {
	return slices.IndexFunc(s.items[kind], func(it models.Item) bool { return it.ID == id })
}

func (s *InMemory) hasName(kind models.Kind, name string) bool {
	return slices.ContainsFunc(s.items[kind], func(it models.Item) bool { return it.Name == name })
}
