package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

// DefaultExcludedProperties are never written to the index.
var DefaultExcludedProperties = []string{"password"}

// attachmentSegment separates the page part of an attachment identifier
// from its filename.
const attachmentSegment = "file"

// FieldMapper turns content units into index identifiers and records.
type FieldMapper struct {
	renderer        driven.Renderer
	extractor       driven.TextExtractor
	defaultLanguage string
	excluded        map[string]bool
	logger          *slog.Logger
}

// FieldMapperConfig holds dependencies for FieldMapper.
type FieldMapperConfig struct {
	Renderer           driven.Renderer
	Extractor          driven.TextExtractor
	DefaultLanguage    string
	ExcludedProperties []string
	Logger             *slog.Logger
}

// NewFieldMapper creates a new field mapper.
func NewFieldMapper(cfg FieldMapperConfig) *FieldMapper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lang := strings.ToLower(cfg.DefaultLanguage)
	if !isAlpha(lang) {
		lang = "en"
	}

	excludedNames := cfg.ExcludedProperties
	if excludedNames == nil {
		excludedNames = DefaultExcludedProperties
	}
	excluded := make(map[string]bool, len(excludedNames))
	for _, name := range excludedNames {
		excluded[strings.ToLower(name)] = true
	}

	return &FieldMapper{
		renderer:        cfg.Renderer,
		extractor:       cfg.Extractor,
		defaultLanguage: lang,
		excluded:        excluded,
		logger:          logger,
	}
}

// DefaultLanguage returns the language used when a unit has none.
func (m *FieldMapper) DefaultLanguage() string {
	return m.defaultLanguage
}

// Language resolves the index language of a unit: its own language
// lower-cased, or the default when that is empty or not purely alphabetic.
func (m *FieldMapper) Language(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !isAlpha(lang) {
		return m.defaultLanguage
	}
	return lang
}

// IsExcluded reports whether a property name must never be indexed.
func (m *FieldMapper) IsExcluded(property string) bool {
	return m.excluded[strings.ToLower(property)]
}

// IdentifierOf returns the unit's index identifier:
//
//	wiki.space.page.lang                          page
//	wiki.space.page.lang.file.<filename>          attachment
//	wiki.space.page.lang.<object-type>.<number>   object
//	wiki.space.page.lang.<property>.<type>#<num>  property
//
// Segments escape '\', '.' and '#' with a backslash so distinct units never
// share an identifier. The result is lower-cased.
func (m *FieldMapper) IdentifierOf(ref domain.ContentRef) string {
	parts := []string{
		escapeSegment(ref.Wiki),
		escapeSegment(ref.Space),
		escapeSegment(ref.Page),
		m.Language(ref.Language),
	}

	switch ref.Type {
	case domain.UnitTypeAttachment:
		parts = append(parts, attachmentSegment, escapeSegment(ref.Filename))
	case domain.UnitTypeObject:
		parts = append(parts, objectTypeSegment(ref.ObjectType), strconv.Itoa(ref.ObjectNumber))
	case domain.UnitTypeProperty:
		parts = append(parts,
			escapeSegment(ref.PropertyName),
			escapeSegment(ref.ObjectType)+"#"+strconv.Itoa(ref.ObjectNumber),
		)
	}

	return strings.ToLower(strings.Join(parts, "."))
}

// RecordOf builds the index record of a unit. Failures are returned as
// *domain.MappingError; the caller logs and skips the unit.
func (m *FieldMapper) RecordOf(ctx context.Context, unit *domain.ContentUnit) (domain.IndexRecord, error) {
	ref := unit.Ref
	if err := ref.Validate(); err != nil {
		return nil, domain.NewMappingError(ref, err)
	}

	lang := m.Language(ref.Language)
	rec := m.baseRecord(unit, lang)

	var err error
	switch ref.Type {
	case domain.UnitTypePage:
		err = m.mapPage(ctx, unit, lang, rec)
	case domain.UnitTypeAttachment:
		err = m.mapAttachment(ctx, unit, lang, rec)
	case domain.UnitTypeObject:
		m.mapObject(unit, lang, rec)
	case domain.UnitTypeProperty:
		err = m.mapProperty(unit, lang, rec)
	}
	if err != nil {
		return nil, domain.NewMappingError(ref, err)
	}
	return rec, nil
}

// baseRecord fills the fields shared by every unit type.
func (m *FieldMapper) baseRecord(unit *domain.ContentUnit, lang string) domain.IndexRecord {
	ref := unit.Ref
	rec := domain.IndexRecord{}

	rec.Set(domain.FieldID, m.IdentifierOf(ref))
	rec.Set(domain.FieldWiki, ref.Wiki)
	rec.Set(domain.FieldSpace, ref.Space)
	rec.Set(domain.FieldLang, lang)
	rec.Set(domain.FieldType, string(ref.Type))
	rec.Set(domain.LocalizedField(domain.FieldName, lang), ref.Page)
	rec.Set(domain.LocalizedField(domain.FieldFullName, lang), ref.FullName())
	rec.Set(domain.LocalizedField(domain.FieldDocRef, lang), ref.DocRef())

	rec.Set(domain.FieldVersion, unit.Version)
	rec.Set(domain.FieldAuthor, unit.Author)
	rec.Set(domain.FieldCreator, unit.Creator)
	rec.Set(domain.FieldDate, formatDate(unit.Date))
	rec.Set(domain.FieldCreationDate, formatDate(unit.CreationDate))
	rec.Set(domain.FieldHidden, strconv.FormatBool(unit.Hidden))

	title := unit.Title
	if title == "" {
		title = ref.Page
	}
	rec.Set(domain.LocalizedField(domain.FieldTitle, lang), title)

	return rec
}

func (m *FieldMapper) mapPage(ctx context.Context, unit *domain.ContentUnit, lang string, rec domain.IndexRecord) error {
	if unit.Content == "" {
		return nil
	}
	text := unit.Content
	if m.renderer != nil {
		rendered, err := m.renderer.Render(ctx, unit.Content, unit.Syntax)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		text = rendered
	}
	rec.Set(domain.LocalizedField(domain.FieldFullText, lang), text)
	return nil
}

func (m *FieldMapper) mapAttachment(ctx context.Context, unit *domain.ContentUnit, lang string, rec domain.IndexRecord) error {
	rec.Set(domain.LocalizedField(domain.FieldFilename, lang), unit.Ref.Filename)
	rec.Set(domain.FieldMimeType, unit.MimeType)

	if len(unit.Data) == 0 || m.extractor == nil {
		return nil
	}

	text, err := m.extractor.Extract(ctx, unit.Data, unit.MimeType)
	if errors.Is(err, domain.ErrExtractionUnsupported) {
		m.logger.Debug("indexing attachment metadata only",
			"unit", unit.Ref.String(),
			"mime_type", unit.MimeType,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	rec.Set(domain.LocalizedField(domain.FieldFullText, lang), text)
	return nil
}

func (m *FieldMapper) mapObject(unit *domain.ContentUnit, lang string, rec domain.IndexRecord) {
	rec.Set(domain.FieldObject, unit.Ref.ObjectType)
	rec.Set(domain.FieldNumber, strconv.Itoa(unit.Ref.ObjectNumber))

	valueField := domain.LocalizedField(domain.FieldPropertyValue, lang)
	var text []string
	for _, p := range unit.Properties {
		if m.IsExcluded(p.Name) || p.Value == "" {
			continue
		}
		rec.Add(valueField, p.Value)
		text = append(text, p.Name+": "+p.Value)
	}
	rec.Set(domain.LocalizedField(domain.FieldFullText, lang), strings.Join(text, "\n"))
}

func (m *FieldMapper) mapProperty(unit *domain.ContentUnit, lang string, rec domain.IndexRecord) error {
	if m.IsExcluded(unit.Ref.PropertyName) {
		return domain.ErrExcludedProperty
	}
	rec.Set(domain.FieldObject, unit.Ref.ObjectType)
	rec.Set(domain.FieldNumber, strconv.Itoa(unit.Ref.ObjectNumber))
	rec.Set(domain.FieldPropertyName, unit.Ref.PropertyName)
	rec.Set(domain.LocalizedField(domain.FieldPropertyValue, lang), unit.Value)
	rec.Set(domain.LocalizedField(domain.FieldFullText, lang), unit.Value)
	return nil
}

func escapeSegment(s string) string {
	if !strings.ContainsAny(s, `\.#`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r == '\\' || r == '.' || r == '#' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// objectTypeSegment keeps an object type from reading as the attachment marker.
func objectTypeSegment(objectType string) string {
	seg := escapeSegment(objectType)
	if strings.EqualFold(seg, attachmentSegment) {
		return `\` + seg
	}
	return seg
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
