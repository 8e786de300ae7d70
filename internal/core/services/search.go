package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driving"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

const (
	defaultQueryTimeout   = 10 * time.Second
	defaultFieldsCacheTTL = time.Minute
	fieldsCacheKey        = "fields"
)

// searchService implements the SearchService interface
type searchService struct {
	engines         EngineSource
	builder         *QueryBuilder
	processor       *ResponseProcessor
	fields          *expirable.LRU[string, []string]
	defaultLanguage string
	timeout         time.Duration
	logger          *slog.Logger
}

// SearchServiceConfig holds dependencies for the search service.
type SearchServiceConfig struct {
	Engines         EngineSource
	Builder         *QueryBuilder
	Processor       *ResponseProcessor
	DefaultLanguage string
	QueryTimeout    time.Duration
	// FieldsCacheTTL bounds how long introspected schema fields are reused
	FieldsCacheTTL time.Duration
	Logger         *slog.Logger
}

// NewSearchService creates a new SearchService
func NewSearchService(cfg SearchServiceConfig) driving.SearchService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	ttl := cfg.FieldsCacheTTL
	if ttl <= 0 {
		ttl = defaultFieldsCacheTTL
	}
	builder := cfg.Builder
	if builder == nil {
		builder = NewQueryBuilder(logger)
	}
	lang := strings.ToLower(cfg.DefaultLanguage)
	if !isAlpha(lang) {
		lang = "en"
	}

	return &searchService{
		engines:         cfg.Engines,
		builder:         builder,
		processor:       cfg.Processor,
		fields:          expirable.NewLRU[string, []string](1, nil, ttl),
		defaultLanguage: lang,
		timeout:         timeout,
		logger:          logger,
	}
}

// Search runs a raw query with default parameters
func (s *searchService) Search(ctx context.Context, query string) (*domain.SearchResponse, error) {
	return s.SearchRequest(ctx, &domain.SearchRequest{Query: query})
}

// SearchRequest runs a structured query
func (s *searchService) SearchRequest(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error) {
	start := time.Now()

	if req == nil {
		return nil, fmt.Errorf("%w: empty search request", domain.ErrInvalidInput)
	}
	if req.Scope != nil {
		if err := req.Scope.Validate(); err != nil {
			return nil, err
		}
	}

	lang := s.activeLanguage(req)

	engine, err := s.engines.Engine(ctx)
	if err != nil {
		return nil, err
	}

	q, err := s.builder.Build(req, lang, s.knownFields(ctx, engine))
	if err != nil {
		return nil, err
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := engine.Query(qctx, q)
	if err != nil {
		if errors.Is(qctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: query timed out after %s", domain.ErrEngineUnavailable, s.timeout)
		}
		if errors.Is(err, domain.ErrEngineUnavailable) || errors.Is(err, domain.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}

	results, err := s.processor.Process(ctx, raw, domain.RequesterFromContext(ctx))
	if err != nil {
		return nil, err
	}

	resp := &domain.SearchResponse{
		Query:        req.Query,
		EngineQuery:  q.Query,
		Language:     lang,
		Results:      results,
		TotalCount:   raw.TotalCount,
		VisibleCount: len(results),
		MaxScore:     raw.MaxScore,
		Offset:       q.Offset,
		Limit:        q.Limit,
		Took:         time.Since(start),
	}

	s.logger.Debug("search completed",
		"query", req.Query,
		"hits", len(raw.Hits),
		"visible", len(results),
		"duration", resp.Took,
	)
	return resp, nil
}

// activeLanguage is the first requested language, or the default.
func (s *searchService) activeLanguage(req *domain.SearchRequest) string {
	for _, l := range req.Languages {
		l = strings.ToLower(strings.TrimSpace(l))
		if isAlpha(l) {
			return l
		}
	}
	return s.defaultLanguage
}

// knownFields returns the engine's schema fields, or nil when introspection
// fails or outlives the query timeout, which turns off localized field
// rewriting for the query.
func (s *searchService) knownFields(ctx context.Context, engine driven.IndexEngine) []string {
	if fields, ok := s.fields.Get(fieldsCacheKey); ok {
		return fields
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fields, err := engine.Fields(ctx)
	if err != nil {
		s.logger.Warn("schema introspection failed, searching without localized fields", "error", err)
		return nil
	}
	s.fields.Add(fieldsCacheKey, fields)
	return fields
}
