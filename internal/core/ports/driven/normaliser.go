package driven

import "context"

// Renderer turns page rich text into plain text for the full-text field.
type Renderer interface {
	// Render converts content written in syntax (a MIME type such as
	// "text/html" or "text/markdown") into plain text.
	Render(ctx context.Context, content, syntax string) (string, error)
}

// TextExtractor pulls indexable text out of attachment binaries.
type TextExtractor interface {
	// Extract returns the text of data. Returns domain.ErrExtractionUnsupported
	// when no extractor handles mimeType.
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Normaliser converts content of one family of MIME types into plain text.
type Normaliser interface {
	// Normalise transforms raw content into normalized text.
	Normalise(content string, mimeType string) string

	// SupportedTypes returns MIME types this normaliser handles.
	// Can include wildcards like "text/*" or specific types like "text/markdown".
	SupportedTypes() []string

	// Priority returns the normaliser priority (higher = more specific).
	//   50-89: Format-specific (Markdown, HTML, JSON)
	//   10-49: Generic (plain text)
	Priority() int
}

// NormaliserRegistry manages content normalisers.
// When multiple normalisers match a MIME type, the highest priority one is used.
type NormaliserRegistry interface {
	// Get retrieves the best-matching normaliser for a MIME type, or nil.
	Get(mimeType string) Normaliser

	// Register registers a normaliser.
	Register(normaliser Normaliser)

	// List returns all registered MIME types.
	List() []string
}
