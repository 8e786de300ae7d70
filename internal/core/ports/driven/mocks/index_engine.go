package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// MockIndexEngine is an in-memory IndexEngine for testing.
// Query returns every stored record ordered by id unless QueryFn is set.
type MockIndexEngine struct {
	mu      sync.RWMutex
	records map[string]domain.IndexRecord
	fields  map[string]bool
	queries []*domain.EngineQuery
	inserts int

	// Custom behavior hooks (optional)
	InsertFn func(records []domain.IndexRecord) error
	QueryFn  func(q *domain.EngineQuery) (*domain.RawResponse, error)
	FieldsFn func(ctx context.Context) ([]string, error)
	HealthFn func() error
}

// NewMockIndexEngine creates a new MockIndexEngine
func NewMockIndexEngine() *MockIndexEngine {
	return &MockIndexEngine{
		records: make(map[string]domain.IndexRecord),
		fields:  make(map[string]bool),
	}
}

func (m *MockIndexEngine) Insert(ctx context.Context, records []domain.IndexRecord) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(records); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	for _, rec := range records {
		m.records[rec.ID()] = rec
		for f := range rec {
			m.fields[f] = true
		}
	}
	return nil
}

func (m *MockIndexEngine) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *MockIndexEngine) DeleteByFilter(ctx context.Context, filter map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.records {
		if matches(rec, filter) {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *MockIndexEngine) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]domain.IndexRecord)
	return nil
}

func (m *MockIndexEngine) Query(ctx context.Context, q *domain.EngineQuery) (*domain.RawResponse, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()

	if m.QueryFn != nil {
		return m.QueryFn(q)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	resp := &domain.RawResponse{TotalCount: int64(len(ids))}
	if len(ids) > 0 {
		resp.MaxScore = 1.0
	}
	end := q.Offset + q.Limit
	if q.Limit <= 0 || end > len(ids) {
		end = len(ids)
	}
	for i := q.Offset; i < end; i++ {
		rec := m.records[ids[i]]
		resp.Hits = append(resp.Hits, domain.RawHit{ID: ids[i], Score: 1.0, Fields: rec})
	}
	return resp, nil
}

func (m *MockIndexEngine) Fields(ctx context.Context) ([]string, error) {
	if m.FieldsFn != nil {
		return m.FieldsFn(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.fields))
	for f := range m.fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockIndexEngine) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}

func (m *MockIndexEngine) HealthCheck(ctx context.Context) error {
	if m.HealthFn != nil {
		return m.HealthFn()
	}
	return nil
}

func (m *MockIndexEngine) Close() error {
	return nil
}

// Record returns a stored record (for test assertions).
func (m *MockIndexEngine) Record(id string) (domain.IndexRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	return rec, ok
}

// Len returns the number of stored records.
func (m *MockIndexEngine) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// InsertCalls returns how many successful Insert calls were made.
func (m *MockIndexEngine) InsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inserts
}

// LastQuery returns the most recent query, or nil.
func (m *MockIndexEngine) LastQuery() *domain.EngineQuery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.queries) == 0 {
		return nil
	}
	return m.queries[len(m.queries)-1]
}

func matches(rec domain.IndexRecord, filter map[string]string) bool {
	for field, want := range filter {
		found := false
		for _, v := range rec[field] {
			if v == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
