package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// MockAccessChecker is a mock AccessChecker. Every page exists and is
// viewable unless marked otherwise.
type MockAccessChecker struct {
	mu      sync.RWMutex
	missing map[string]bool
	denied  map[string]map[string]bool

	ExistsFn  func(page domain.ContentRef) (bool, error)
	CanViewFn func(requester *domain.Requester, page domain.ContentRef) (bool, error)
}

// NewMockAccessChecker creates a new MockAccessChecker
func NewMockAccessChecker() *MockAccessChecker {
	return &MockAccessChecker{
		missing: make(map[string]bool),
		denied:  make(map[string]map[string]bool),
	}
}

// SetMissing marks a page as deleted from the host.
func (m *MockAccessChecker) SetMissing(page domain.ContentRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missing[page.DocRef()] = true
}

// Deny hides a page from a user.
func (m *MockAccessChecker) Deny(userID string, page domain.ContentRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denied[userID] == nil {
		m.denied[userID] = make(map[string]bool)
	}
	m.denied[userID][page.DocRef()] = true
}

func (m *MockAccessChecker) Exists(ctx context.Context, page domain.ContentRef) (bool, error) {
	if m.ExistsFn != nil {
		return m.ExistsFn(page)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.missing[page.DocRef()], nil
}

func (m *MockAccessChecker) CanView(ctx context.Context, requester *domain.Requester, page domain.ContentRef) (bool, error) {
	if m.CanViewFn != nil {
		return m.CanViewFn(requester, page)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.denied[requester.UserID][page.DocRef()], nil
}

// MockURLBuilder builds predictable attachment URLs.
type MockURLBuilder struct {
	BaseURL string
}

func (m *MockURLBuilder) AttachmentURL(ref domain.ContentRef) string {
	return m.BaseURL + "/" + ref.Wiki + "/" + ref.Space + "/" + ref.Page + "/" + ref.Filename
}

// MockTokenValidator maps fixed tokens to requesters.
type MockTokenValidator struct {
	Tokens map[string]*domain.Requester
}

func (m *MockTokenValidator) Validate(ctx context.Context, token string) (*domain.Requester, error) {
	if r, ok := m.Tokens[token]; ok {
		return r, nil
	}
	return nil, domain.ErrTokenInvalid
}
