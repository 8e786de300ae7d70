package normalisers

import (
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry implements NormaliserRegistry with priority-based selection.
// When multiple normalisers match a MIME type, the highest priority one is used.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates a new normaliser registry.
func NewRegistry() *Registry {
	return &Registry{
		normalisers: make([]driven.Normaliser, 0),
	}
}

// Register registers a normaliser.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, normaliser)
}

// Get retrieves the best-matching normaliser for a MIME type.
// Returns nil if no normaliser is registered for the type.
func (r *Registry) Get(mimeType string) driven.Normaliser {
	matches := r.GetAll(mimeType)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// GetAll retrieves all normalisers that match a MIME type, sorted by priority (highest first).
// Normalisers of equal priority keep registration order.
func (r *Registry) GetAll(mimeType string) []driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []driven.Normaliser
	for _, n := range r.normalisers {
		if matchesMIMEType(n.SupportedTypes(), mimeType) {
			matches = append(matches, n)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority() > matches[j].Priority()
	})
	return matches
}

// List returns all registered MIME types.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeSet := make(map[string]struct{})
	for _, n := range r.normalisers {
		for _, t := range n.SupportedTypes() {
			typeSet[t] = struct{}{}
		}
	}

	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// baseMIMEType lower-cases mimeType and strips parameters such as charset.
func baseMIMEType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}

// matchesMIMEType checks if any of the supported types match the given MIME type.
// Supports wildcard matching (e.g., "text/*" matches "text/plain"). Page
// syntax identifiers such as "xwiki/2.1" match the same way.
func matchesMIMEType(supportedTypes []string, mimeType string) bool {
	mimeType = baseMIMEType(mimeType)
	if mimeType == "" {
		return false
	}

	for _, supported := range supportedTypes {
		supported = strings.ToLower(strings.TrimSpace(supported))

		if supported == mimeType || supported == "*/*" {
			return true
		}
		if strings.HasSuffix(supported, "/*") {
			prefix := supported[:len(supported)-1]
			if strings.HasPrefix(mimeType, prefix) {
				return true
			}
		}
	}
	return false
}

// DefaultRegistry creates a registry with the built-in normalisers.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(&PlaintextNormaliser{})
	r.Register(&MarkdownNormaliser{})
	r.Register(&HTMLNormaliser{})
	r.Register(&JSONNormaliser{})
	r.Register(&WikiSyntaxNormaliser{})

	return r
}
