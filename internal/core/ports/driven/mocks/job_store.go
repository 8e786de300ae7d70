package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// MockJobStore is an in-memory JobStore for testing.
type MockJobStore struct {
	mu     sync.RWMutex
	states map[string]domain.ProgressState
	saves  int

	SaveFn func(state *domain.ProgressState) error
}

// NewMockJobStore creates a new MockJobStore
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{states: make(map[string]domain.ProgressState)}
}

func (m *MockJobStore) Save(ctx context.Context, state *domain.ProgressState) error {
	if m.SaveFn != nil {
		if err := m.SaveFn(state); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.JobID] = *state
	m.saves++
	return nil
}

func (m *MockJobStore) Get(ctx context.Context, jobID string) (*domain.ProgressState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &s, nil
}

func (m *MockJobStore) List(ctx context.Context) ([]*domain.ProgressState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.ProgressState, 0, len(m.states))
	for _, s := range m.states {
		s := s
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockJobStore) Delete(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, jobID)
	return nil
}

// SaveCount returns the number of successful saves.
func (m *MockJobStore) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
