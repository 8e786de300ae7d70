// Package bleve is the embedded IndexEngine, backed by a bleve index held
// in memory or on local disk.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/gofrs/flock"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IndexEngine = (*Engine)(nil)

// scanPageSize bounds how many hits are fetched per page when an operation
// has to walk matching documents.
const scanPageSize = 500

// keywordFields are matched exactly. Every other field is analyzed text.
var keywordFields = []string{
	domain.FieldID,
	domain.FieldWiki,
	domain.FieldSpace,
	domain.FieldLang,
	domain.FieldType,
	domain.FieldVersion,
	domain.FieldAuthor,
	domain.FieldCreator,
	domain.FieldDate,
	domain.FieldCreationDate,
	domain.FieldHidden,
	domain.FieldMimeType,
	domain.FieldObject,
	domain.FieldNumber,
	domain.FieldPropertyName,
}

// Config holds configuration for the bleve engine.
type Config struct {
	// Path is the index directory. Empty keeps the index in memory.
	Path   string
	Logger *slog.Logger
}

// Engine implements IndexEngine on an embedded bleve index.
type Engine struct {
	mu     sync.RWMutex
	index  bleve.Index
	lock   *flock.Flock
	path   string
	closed bool
	logger *slog.Logger
}

// Open opens the index at cfg.Path, creating it when missing. An on-disk
// index is guarded by a lock file so only one process writes to it.
func Open(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Path == "" {
		idx, err := bleve.NewMemOnly(newIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		logger.Info("bleve index opened", "path", "memory")
		return &Engine{index: idx, logger: logger}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", cfg.Path, err)
	}

	lock := flock.New(cfg.Path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock index %s: %w", cfg.Path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: index %s is locked by another process", domain.ErrEngineUnavailable, cfg.Path)
	}

	idx, err := bleve.Open(cfg.Path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(cfg.Path, newIndexMapping())
	}
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to open index %s: %w", cfg.Path, err)
	}

	logger.Info("bleve index opened", "path", cfg.Path)
	return &Engine{index: idx, lock: lock, path: cfg.Path, logger: logger}, nil
}

// newIndexMapping maps keyword fields for exact matching. Localized fields
// are created dynamically per language and use the standard analyzer with
// term vectors, which highlighting needs.
func newIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	doc := bleve.NewDocumentMapping()
	for _, field := range keywordFields {
		doc.AddFieldMappingsAt(field, bleve.NewKeywordFieldMapping())
	}
	im.DefaultMapping = doc
	return im
}

func isKeywordField(field string) bool {
	for _, f := range keywordFields {
		if f == field {
			return true
		}
	}
	return false
}

// Insert indexes records as one batch.
func (e *Engine) Insert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ErrEngineClosed
	}

	batch := e.index.NewBatch()
	for _, rec := range records {
		id := rec.ID()
		if id == "" {
			return fmt.Errorf("%w: record without id", domain.ErrInvalidInput)
		}
		if err := batch.Index(id, toDocument(rec)); err != nil {
			return fmt.Errorf("failed to index %s: %w", id, err)
		}
	}
	if err := e.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Delete removes documents by id.
func (e *Engine) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ErrEngineClosed
	}
	return e.deleteLocked(ids)
}

func (e *Engine) deleteLocked(ids []string) error {
	batch := e.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := e.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// DeleteByFilter removes every document whose fields equal all filter values.
// Analyzed fields are narrowed with a phrase query, then compared exactly
// against their stored values.
func (e *Engine) DeleteByFilter(ctx context.Context, filter map[string]string) error {
	if len(filter) == 0 {
		return fmt.Errorf("%w: empty delete filter", domain.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ErrEngineClosed
	}

	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	conj := bleve.NewConjunctionQuery()
	for _, field := range fields {
		if isKeywordField(field) {
			tq := bleve.NewTermQuery(filter[field])
			tq.SetField(field)
			conj.AddQuery(tq)
			continue
		}
		pq := bleve.NewMatchPhraseQuery(filter[field])
		pq.SetField(field)
		conj.AddQuery(pq)
	}

	var ids []string
	err := e.scan(ctx, conj, fields, func(id string, stored map[string][]string) {
		for field, want := range filter {
			if !contains(stored[field], want) {
				return
			}
		}
		ids = append(ids, id)
	})
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	e.logger.Debug("deleting by filter", "filter", filter, "count", len(ids))
	return e.deleteLocked(ids)
}

// DeleteAll removes every document.
func (e *Engine) DeleteAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ErrEngineClosed
	}

	var ids []string
	err := e.scan(ctx, bleve.NewMatchAllQuery(), nil, func(id string, _ map[string][]string) {
		ids = append(ids, id)
	})
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return e.deleteLocked(ids)
}

// scan visits every hit of q, page by page in id order. Caller holds the lock.
func (e *Engine) scan(ctx context.Context, q query.Query, fields []string, visit func(id string, stored map[string][]string)) error {
	for from := 0; ; from += scanPageSize {
		req := bleve.NewSearchRequestOptions(q, scanPageSize, from, false)
		req.Fields = fields
		req.SortBy([]string{"_id"})

		result, err := e.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to scan index: %w", err)
		}
		for _, hit := range result.Hits {
			visit(hit.ID, storedFields(hit.Fields))
		}
		if len(result.Hits) < scanPageSize {
			return nil
		}
	}
}

// Query runs q and returns hits, highlights and totals.
func (e *Engine) Query(ctx context.Context, q *domain.EngineQuery) (*domain.RawResponse, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, domain.ErrEngineClosed
	}

	bq, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(bq, q.Limit, q.Offset, false)
	req.Fields = []string{"*"}
	if len(q.HighlightFields) > 0 {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.Fields = q.HighlightFields
	}
	if order := sortOrder(q.Params["sort"]); len(order) > 0 {
		req.SortBy(order)
	}

	result, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	resp := &domain.RawResponse{
		Hits:       make([]domain.RawHit, 0, len(result.Hits)),
		Highlights: make(map[string]map[string]string),
		TotalCount: int64(result.Total),
		MaxScore:   result.MaxScore,
		Took:       result.Took,
	}
	for _, hit := range result.Hits {
		resp.Hits = append(resp.Hits, domain.RawHit{
			ID:     hit.ID,
			Score:  hit.Score,
			Fields: storedFields(hit.Fields),
		})
		if len(hit.Fragments) == 0 {
			continue
		}
		hl := make(map[string]string, len(hit.Fragments))
		for field, frags := range hit.Fragments {
			hl[field] = domain.EncodeHighlight(frags)
		}
		resp.Highlights[hit.ID] = hl
	}
	return resp, nil
}

// Fields returns the field names present in the index.
func (e *Engine) Fields(ctx context.Context) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, domain.ErrEngineClosed
	}

	fields, err := e.index.Fields()
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !strings.HasPrefix(f, "_") {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Count returns the number of documents.
func (e *Engine) Count(ctx context.Context) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return 0, domain.ErrEngineClosed
	}

	n, err := e.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int64(n), nil
}

// HealthCheck verifies the index can be read.
func (e *Engine) HealthCheck(ctx context.Context) error {
	_, err := e.Count(ctx)
	return err
}

// Close closes the index and releases the lock file.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	err := e.index.Close()
	if e.lock != nil {
		if uerr := e.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

func toDocument(rec domain.IndexRecord) map[string]interface{} {
	doc := make(map[string]interface{}, len(rec))
	for field, values := range rec {
		switch len(values) {
		case 0:
		case 1:
			doc[field] = values[0]
		default:
			doc[field] = append([]string(nil), values...)
		}
	}
	return doc
}

// storedFields converts bleve stored values (string, or []interface{} for
// multi-valued fields) to string slices.
func storedFields(fields map[string]interface{}) map[string][]string {
	out := make(map[string][]string, len(fields))
	for field, v := range fields {
		switch t := v.(type) {
		case string:
			out[field] = []string{t}
		case []interface{}:
			values := make([]string, 0, len(t))
			for _, e := range t {
				values = append(values, fmt.Sprint(e))
			}
			out[field] = values
		case nil:
		default:
			out[field] = []string{fmt.Sprint(t)}
		}
	}
	return out
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
