package mocks

import (
	"context"
	"strings"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// MockRenderer returns content unchanged unless RenderFn is set.
type MockRenderer struct {
	RenderFn func(content, syntax string) (string, error)
}

func (m *MockRenderer) Render(ctx context.Context, content, syntax string) (string, error) {
	if m.RenderFn != nil {
		return m.RenderFn(content, syntax)
	}
	return content, nil
}

// MockTextExtractor returns text/* payloads as strings and rejects the rest.
type MockTextExtractor struct {
	ExtractFn func(data []byte, mimeType string) (string, error)
}

func (m *MockTextExtractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if m.ExtractFn != nil {
		return m.ExtractFn(data, mimeType)
	}
	if strings.HasPrefix(mimeType, "text/") {
		return string(data), nil
	}
	return "", domain.ErrExtractionUnsupported
}
