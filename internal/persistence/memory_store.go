package persistence

import (
	"context"
	"sync"

	"github.com/petrijr/connect/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe RunStore backed by a map.
// Runs are cloned on the way in and out.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*api.Run
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs: make(map[string]*api.Run),
	}
}

var _ RunStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveRun(ctx context.Context, run *api.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run.Clone()
	return nil
}

func (s *InMemoryStore) UpdateRun(ctx context.Context, run *api.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return ErrRunNotFound
	}

	s.runs[run.ID] = run.Clone()
	return nil
}

func (s *InMemoryStore) GetRun(ctx context.Context, id string) (*api.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}

	return run.Clone(), nil
}

func (s *InMemoryStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.Run
	for _, run := range s.runs {
		if filter.Matches(run) {
			result = append(result, run.Clone())
		}
	}

	return sortAndLimit(result, filter.Limit), nil
}
