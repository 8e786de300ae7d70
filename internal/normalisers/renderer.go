package normalisers

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

var (
	_ driven.Renderer      = (*Renderer)(nil)
	_ driven.TextExtractor = (*Extractor)(nil)
)

// Renderer renders page content to plain text through the registry.
// Content in a syntax no normaliser handles is cleaned as plain text.
type Renderer struct {
	registry driven.NormaliserRegistry
	fallback driven.Normaliser
}

// NewRenderer creates a renderer over registry.
func NewRenderer(registry driven.NormaliserRegistry) *Renderer {
	return &Renderer{registry: registry, fallback: &PlaintextNormaliser{}}
}

func (r *Renderer) Render(ctx context.Context, content, syntax string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n := r.registry.Get(syntax)
	if n == nil {
		n = r.fallback
	}
	return n.Normalise(content, syntax), nil
}

// Extractor pulls text out of attachment bytes. Only textual formats
// are handled; everything else reports ErrExtractionUnsupported.
type Extractor struct {
	registry driven.NormaliserRegistry
	maxBytes int
}

// NewExtractor creates an extractor over registry. Attachments larger than
// maxBytes are truncated before extraction; 0 means no limit.
func NewExtractor(registry driven.NormaliserRegistry, maxBytes int) *Extractor {
	return &Extractor{registry: registry, maxBytes: maxBytes}
}

func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n := e.registry.Get(mimeType)
	if n == nil {
		return "", fmt.Errorf("%w: %s", domain.ErrExtractionUnsupported, baseMIMEType(mimeType))
	}

	if e.maxBytes > 0 && len(data) > e.maxBytes {
		data = data[:e.maxBytes]
		// drop a rune cut in half by the limit
		for i := 0; i < utf8.UTFMax-1 && len(data) > 0 && !utf8.Valid(data); i++ {
			data = data[:len(data)-1]
		}
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s content is not valid UTF-8", domain.ErrExtractionUnsupported, baseMIMEType(mimeType))
	}
	return n.Normalise(string(data), mimeType), nil
}
