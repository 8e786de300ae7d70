// Package urls builds public URLs pointing back into the wiki.
package urls

import (
	"net/url"
	"strings"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

var _ driven.URLBuilder = (*Builder)(nil)

// Builder produces XWiki-style download URLs:
//
//	<base>/bin/download/<Space>/<Page>/<file>           main wiki
//	<base>/wiki/<wiki>/download/<Space>/<Page>/<file>   sub-wikis
//
// Nested spaces ("Dev.Notes") become nested path segments.
type Builder struct {
	base     string
	mainWiki string
}

// NewBuilder creates a builder for the wiki served at baseURL.
func NewBuilder(baseURL, mainWiki string) *Builder {
	if mainWiki == "" {
		mainWiki = "xwiki"
	}
	return &Builder{base: strings.TrimSuffix(baseURL, "/"), mainWiki: mainWiki}
}

func (b *Builder) AttachmentURL(ref domain.ContentRef) string {
	var sb strings.Builder
	sb.WriteString(b.base)
	if ref.Wiki == "" || strings.EqualFold(ref.Wiki, b.mainWiki) {
		sb.WriteString("/bin/download")
	} else {
		sb.WriteString("/wiki/")
		sb.WriteString(url.PathEscape(ref.Wiki))
		sb.WriteString("/download")
	}
	for _, space := range splitSpace(ref.Space) {
		sb.WriteString("/")
		sb.WriteString(url.PathEscape(space))
	}
	sb.WriteString("/")
	sb.WriteString(url.PathEscape(ref.Page))
	sb.WriteString("/")
	sb.WriteString(url.PathEscape(ref.Filename))
	return sb.String()
}

// splitSpace splits a space reference on unescaped dots.
func splitSpace(space string) []string {
	var (
		parts   []string
		current strings.Builder
		escaped bool
	)
	for _, r := range space {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '.':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(parts, current.String())
}
