package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// MockContentStore is an in-memory ContentStore for testing.
// Units are listed in insertion order.
type MockContentStore struct {
	mu    sync.RWMutex
	units map[domain.ContentRef]*domain.ContentUnit
	order []domain.ContentRef

	GetFn func(ref domain.ContentRef) (*domain.ContentUnit, error)
}

// NewMockContentStore creates a new MockContentStore
func NewMockContentStore() *MockContentStore {
	return &MockContentStore{
		units: make(map[domain.ContentRef]*domain.ContentUnit),
	}
}

// Put stores a unit, replacing any unit with the same ref.
func (m *MockContentStore) Put(units ...*domain.ContentUnit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range units {
		if _, exists := m.units[u.Ref]; !exists {
			m.order = append(m.order, u.Ref)
		}
		m.units[u.Ref] = u
	}
}

func (m *MockContentStore) Get(ctx context.Context, ref domain.ContentRef) (*domain.ContentUnit, error) {
	if m.GetFn != nil {
		return m.GetFn(ref)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, ref)
	}
	return u, nil
}

func (m *MockContentStore) List(ctx context.Context, scope domain.Scope) ([]domain.ContentRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var refs []domain.ContentRef
	for _, ref := range m.order {
		if scope.Contains(ref) {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (m *MockContentStore) Dependents(ctx context.Context, page domain.ContentRef) ([]domain.ContentRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var refs []domain.ContentRef
	for _, ref := range m.order {
		if ref.Type == domain.UnitTypePage {
			continue
		}
		if ref.Wiki == page.Wiki && ref.Space == page.Space && ref.Page == page.Page {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}
