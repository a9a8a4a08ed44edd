package repositories

import (
	"context"
	"dropoff-route-service/internal/domain"
	"sort"
	"sync"
)

// In-memory implementation of the BoundStore port, for tests and dry runs.
type MemoryBoundStore struct {
	mu     sync.Mutex
	bounds map[string]domain.Bound
}

func NewMemoryBoundStore() *MemoryBoundStore {
	return &MemoryBoundStore{bounds: make(map[string]domain.Bound)}
}

func (s *MemoryBoundStore) Get(_ context.Context, instance string) (*domain.Bound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bounds[instance]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *MemoryBoundStore) Upsert(_ context.Context, b domain.Bound) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored *domain.Bound
	if cur, ok := s.bounds[b.Instance]; ok {
		stored = &cur
	}
	if !domain.ShouldReplace(stored, b.Cost, b.Optimal) {
		return false, nil
	}
	s.bounds[b.Instance] = b
	return true, nil
}

func (s *MemoryBoundStore) MarkSuboptimal(_ context.Context, instance string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.bounds[instance]; ok {
		b.Optimal = false
		s.bounds[instance] = b
	}
	return nil
}

func (s *MemoryBoundStore) List(_ context.Context) ([]domain.Bound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Bound, 0, len(s.bounds))
	for _, b := range s.bounds {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out, nil
}

func (s *MemoryBoundStore) Close() error { return nil }
