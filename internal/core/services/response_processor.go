package services

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

const (
	defaultVisibilityChecks = 8
	// snippetLength bounds the stored-text excerpt shown when a hit has no
	// highlighted fragment.
	snippetLength = 200
)

// ResponseProcessor turns raw engine hits into visible search results.
type ResponseProcessor struct {
	access           driven.AccessChecker
	urls             driven.URLBuilder
	fallbackLanguage string
	parallelism      int
	logger           *slog.Logger
}

// ResponseProcessorConfig holds dependencies for ResponseProcessor.
type ResponseProcessorConfig struct {
	Access           driven.AccessChecker
	URLs             driven.URLBuilder
	FallbackLanguage string
	// Parallelism bounds concurrent visibility checks
	Parallelism int
	Logger      *slog.Logger
}

// NewResponseProcessor creates a new response processor.
func NewResponseProcessor(cfg ResponseProcessorConfig) *ResponseProcessor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = defaultVisibilityChecks
	}
	fallback := strings.ToLower(cfg.FallbackLanguage)
	if fallback == "" {
		fallback = "en"
	}
	return &ResponseProcessor{
		access:           cfg.Access,
		urls:             cfg.URLs,
		fallbackLanguage: fallback,
		parallelism:      parallelism,
		logger:           logger,
	}
}

// Process converts raw hits in engine order and drops every result whose
// owning page no longer exists or is not viewable by requester.
func (p *ResponseProcessor) Process(ctx context.Context, raw *domain.RawResponse, requester *domain.Requester) ([]domain.SearchResult, error) {
	if raw == nil || len(raw.Hits) == 0 {
		return []domain.SearchResult{}, nil
	}
	if requester == nil {
		requester = domain.Guest()
	}

	visible := make([]bool, len(raw.Hits))
	results := make([]domain.SearchResult, len(raw.Hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)

	for i, hit := range raw.Hits {
		results[i] = p.convert(hit, raw.Highlights[hit.ID])
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			visible[i] = p.isVisible(gctx, requester, results[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.SearchResult, 0, len(results))
	for i, r := range results {
		if visible[i] {
			out = append(out, r)
		}
	}
	return out, nil
}

// isVisible checks the owning page. A failed check hides the result.
func (p *ResponseProcessor) isVisible(ctx context.Context, requester *domain.Requester, r domain.SearchResult) bool {
	page := r.PageRef()

	exists, err := p.access.Exists(ctx, page)
	if err != nil {
		p.logger.Warn("existence check failed", "unit", page.String(), "error", err)
		return false
	}
	if !exists {
		return false
	}

	allowed, err := p.access.CanView(ctx, requester, page)
	if err != nil {
		p.logger.Warn("view check failed", "unit", page.String(), "user", requester.UserID, "error", err)
		return false
	}
	return allowed
}

func (p *ResponseProcessor) convert(hit domain.RawHit, highlights map[string]string) domain.SearchResult {
	lang := hit.Field(domain.FieldLang)
	if strings.TrimSpace(lang) == "" {
		lang = p.fallbackLanguage
	}

	field := func(name string) string {
		if v := hit.Field(domain.LocalizedField(name, lang)); v != "" {
			return v
		}
		return hit.Field(name)
	}
	highlight := func(name string) string {
		return domain.StripHighlight(highlights[domain.LocalizedField(name, lang)])
	}

	unitType := domain.UnitType(hit.Field(domain.FieldType))
	if !unitType.Valid() {
		unitType = domain.UnitTypePage
	}

	r := domain.SearchResult{
		ID:       hit.ID,
		Type:     unitType,
		Wiki:     hit.Field(domain.FieldWiki),
		Space:    hit.Field(domain.FieldSpace),
		Page:     field(domain.FieldName),
		FullName: field(domain.FieldFullName),
		Language: lang,
		Title:    field(domain.FieldTitle),
		Score:    hit.Score,
		Author:   hit.Field(domain.FieldAuthor),
		Date:     hit.Field(domain.FieldDate),
		Content:  highlight(domain.FieldFullText),
	}
	if r.Score < 0 {
		r.Score = 0
	}
	if hl := highlight(domain.FieldTitle); hl != "" {
		r.Title = hl
	}

	switch unitType {
	case domain.UnitTypeAttachment:
		r.Filename = field(domain.FieldFilename)
		r.MimeType = hit.Field(domain.FieldMimeType)
		if p.urls != nil {
			ref := r.PageRef()
			ref.Type = domain.UnitTypeAttachment
			ref.Filename = r.Filename
			r.DownloadURL = p.urls.AttachmentURL(ref)
		}
		if hl := highlight(domain.FieldFilename); hl != "" && r.Content == "" {
			r.Content = hl
		}
	case domain.UnitTypeObject, domain.UnitTypeProperty:
		r.ObjectType = hit.Field(domain.FieldObject)
		r.ObjectNumber, _ = strconv.Atoi(hit.Field(domain.FieldNumber))
		r.PropertyName = hit.Field(domain.FieldPropertyName)
		r.PropertyValue = field(domain.FieldPropertyValue)
		if hl := highlight(domain.FieldPropertyValue); hl != "" {
			r.PropertyValue = hl
		}
	}

	if r.Content == "" {
		r.Content = snippet(field(domain.FieldFullText), snippetLength)
	}
	return r
}

// snippet cuts text to at most n runes, at the last word boundary when
// there is one.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + " ..."
}
