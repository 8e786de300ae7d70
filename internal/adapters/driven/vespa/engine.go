// Package vespa implements driven.IndexEngine against a Vespa cluster over
// its HTTP APIs: document/v1 for writes, /search/ for queries.
package vespa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IndexEngine = (*Engine)(nil)

const (
	namespace = "wiki"
	docType   = "wikidoc"
)

// Engine implements driven.IndexEngine using Vespa
type Engine struct {
	baseURL    string
	cluster    string
	httpClient *http.Client
	feedLimit  int
	fields     map[string]bool
	closed     atomic.Bool
	logger     *slog.Logger
}

// Config holds Vespa connection configuration
type Config struct {
	// BaseURL is the Vespa container endpoint (e.g., http://localhost:8080)
	BaseURL string

	// Cluster is the content cluster holding wiki documents
	Cluster string

	// Languages are the languages the deployed schema has fields for
	Languages []string

	// Timeout for HTTP requests
	Timeout time.Duration

	// FeedConcurrency bounds parallel document writes
	FeedConcurrency int

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string, languages []string) Config {
	return Config{
		BaseURL:         baseURL,
		Cluster:         "wiki",
		Languages:       languages,
		Timeout:         30 * time.Second,
		FeedConcurrency: 8,
	}
}

// NewEngine creates a Vespa-backed engine.
func NewEngine(cfg Config) (*Engine, error) {
	base, err := validateEndpoint(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Cluster == "" {
		cfg.Cluster = "wiki"
	}
	if cfg.FeedConcurrency <= 0 {
		cfg.FeedConcurrency = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	fields := make(map[string]bool)
	for _, f := range SchemaFields(cfg.Languages) {
		fields[f] = true
	}

	return &Engine{
		baseURL:    base,
		cluster:    cfg.Cluster,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		feedLimit:  cfg.FeedConcurrency,
		fields:     fields,
		logger:     cfg.Logger.With("component", "vespa"),
	}, nil
}

// Insert feeds every record through the document API. Vespa PUTs replace
// the whole document, so a re-indexed unit supersedes its old entry.
func (e *Engine) Insert(ctx context.Context, records []domain.IndexRecord) error {
	if e.closed.Load() {
		return domain.ErrEngineClosed
	}
	for _, rec := range records {
		if rec.ID() == "" {
			return fmt.Errorf("%w: record without id", domain.ErrInvalidInput)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.feedLimit)
	for _, rec := range records {
		g.Go(func() error {
			if err := e.put(gctx, rec); err != nil {
				return fmt.Errorf("failed to index %s: %w", rec.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) put(ctx context.Context, rec domain.IndexRecord) error {
	body, err := json.Marshal(map[string]any{"fields": e.toFields(rec)})
	if err != nil {
		return err
	}

	resp, err := e.do(ctx, http.MethodPost, e.docURL(rec.ID()), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError("index", resp)
	}
	return nil
}

// toFields drops fields the schema has no slot for (e.g. a language the
// cluster was not deployed with); Vespa rejects the whole document otherwise.
func (e *Engine) toFields(rec domain.IndexRecord) map[string]any {
	out := make(map[string]any, len(rec))
	for name, values := range rec {
		if !e.fields[name] {
			e.logger.Debug("field not in schema, skipped", "field", name, "id", rec.ID())
			continue
		}
		switch {
		case domain.BaseField(name) == domain.FieldPropertyValue:
			out[name] = values
		case len(values) == 1:
			out[name] = values[0]
		default:
			out[name] = strings.Join(values, "\n")
		}
	}
	return out
}

// Delete removes documents by id. 404 is OK - already gone.
func (e *Engine) Delete(ctx context.Context, ids []string) error {
	if e.closed.Load() {
		return domain.ErrEngineClosed
	}
	for _, id := range ids {
		if err := e.deleteDoc(ctx, id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", id, err)
		}
	}
	return nil
}

func (e *Engine) deleteDoc(ctx context.Context, id string) error {
	resp, err := e.do(ctx, http.MethodDelete, e.docURL(id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return statusError("delete", resp)
	}
	return nil
}

var fieldName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// DeleteByFilter removes documents whose attributes equal every filter value.
func (e *Engine) DeleteByFilter(ctx context.Context, filter map[string]string) error {
	if e.closed.Load() {
		return domain.ErrEngineClosed
	}
	if len(filter) == 0 {
		return fmt.Errorf("%w: empty delete filter", domain.ErrInvalidInput)
	}

	names := make([]string, 0, len(filter))
	for name := range filter {
		if !fieldName.MatchString(name) || !e.fields[name] {
			return fmt.Errorf("%w: unknown filter field %q", domain.ErrInvalidInput, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	terms := make([]string, 0, len(names))
	for _, name := range names {
		terms = append(terms, fmt.Sprintf("%s.%s==%s", docType, name, quote(filter[name])))
	}
	return e.deleteBySelection(ctx, strings.Join(terms, " and "))
}

// DeleteAll removes every wiki document.
func (e *Engine) DeleteAll(ctx context.Context) error {
	if e.closed.Load() {
		return domain.ErrEngineClosed
	}
	return e.deleteBySelection(ctx, docType)
}

func (e *Engine) deleteBySelection(ctx context.Context, selection string) error {
	target := fmt.Sprintf("%s/document/v1/%s/%s/docid/?selection=%s&cluster=%s",
		e.baseURL, namespace, docType, url.QueryEscape(selection), url.QueryEscape(e.cluster))

	resp, err := e.do(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError("delete by selection", resp)
	}
	return nil
}

// Query runs q through the search API. The query string goes through
// Vespa's simple query language; boost clauses only add to the rank.
func (e *Engine) Query(ctx context.Context, q *domain.EngineQuery) (*domain.RawResponse, error) {
	if e.closed.Load() {
		return nil, domain.ErrEngineClosed
	}

	searchReq := map[string]any{
		"yql":                  buildYQL(q),
		"hits":                 q.Limit,
		"offset":               q.Offset,
		"presentation.bolding": true,
		"model.type":           modelType(q.Operator),
	}
	if strings.TrimSpace(q.Query) != "" {
		searchReq["query"] = q.Query
	}
	if boost := stripBoosts(q.BoostQuery); boost != "" {
		searchReq["boost"] = boost
	}
	for k, v := range q.Params {
		if k == "sort" {
			continue
		}
		searchReq[k] = v
	}

	start := time.Now()
	result, err := e.search(ctx, searchReq)
	if err != nil {
		return nil, err
	}

	out := &domain.RawResponse{
		Hits:       make([]domain.RawHit, 0, len(result.Root.Children)),
		Highlights: make(map[string]map[string]string),
		TotalCount: result.Root.Fields.TotalCount,
		Took:       time.Since(start),
	}
	for _, child := range result.Root.Children {
		hit := domain.RawHit{Score: child.Relevance, Fields: make(map[string][]string)}
		for name, raw := range child.Fields {
			if name == "sddocname" || name == "documentid" || name == "summaryfeatures" {
				continue
			}
			hit.Fields[name] = stringValues(raw)
		}
		hit.ID = hit.Field(domain.FieldID)

		for _, name := range q.HighlightFields {
			values, ok := hit.Fields[name]
			if !ok || len(values) == 0 || !strings.Contains(values[0], "<hi>") {
				continue
			}
			fragments := strings.Split(values[0], "<sep />")
			for i, frag := range fragments {
				frag = strings.ReplaceAll(frag, "<hi>", "<mark>")
				fragments[i] = strings.TrimSpace(strings.ReplaceAll(frag, "</hi>", "</mark>"))
			}
			if out.Highlights[hit.ID] == nil {
				out.Highlights[hit.ID] = make(map[string]string)
			}
			out.Highlights[hit.ID][name] = domain.EncodeHighlight(fragments)
			hit.Fields[name] = []string{stripBolding(values[0])}
		}

		if hit.Score > out.MaxScore {
			out.MaxScore = hit.Score
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

// Fields returns the fields of the deployed wikidoc schema.
func (e *Engine) Fields(ctx context.Context) ([]string, error) {
	if e.closed.Load() {
		return nil, domain.ErrEngineClosed
	}
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Count returns the total number of wiki documents
func (e *Engine) Count(ctx context.Context) (int64, error) {
	if e.closed.Load() {
		return 0, domain.ErrEngineClosed
	}
	// hits=0 just gets the totalCount
	result, err := e.search(ctx, map[string]any{
		"yql":  fmt.Sprintf("select * from %s where true", docType),
		"hits": 0,
	})
	if err != nil {
		return 0, err
	}
	return result.Root.Fields.TotalCount, nil
}

// HealthCheck verifies the container is up
func (e *Engine) HealthCheck(ctx context.Context) error {
	if e.closed.Load() {
		return domain.ErrEngineClosed
	}
	resp, err := e.do(ctx, http.MethodGet, e.baseURL+"/state/v1/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: vespa unhealthy: %s", domain.ErrEngineUnavailable, resp.Status)
	}
	return nil
}

// Close stops the engine accepting requests.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.httpClient.CloseIdleConnections()
	return nil
}

// searchResponse represents Vespa's search response format
type searchResponse struct {
	Root struct {
		Fields struct {
			TotalCount int64 `json:"totalCount"`
		} `json:"fields"`
		Children []struct {
			ID        string                     `json:"id"`
			Relevance float64                    `json:"relevance"`
			Fields    map[string]json.RawMessage `json:"fields"`
		} `json:"children"`
	} `json:"root"`
}

func (e *Engine) search(ctx context.Context, searchReq map[string]any) (*searchResponse, error) {
	body, err := json.Marshal(searchReq)
	if err != nil {
		return nil, err
	}

	resp, err := e.do(ctx, http.MethodPost, e.baseURL+"/search/", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, statusError("search", resp)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode vespa response: %v", domain.ErrEngineUnavailable, err)
	}
	return &result, nil
}

func (e *Engine) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: vespa request failed: %v", domain.ErrEngineUnavailable, err)
	}
	return resp, nil
}

func (e *Engine) docURL(id string) string {
	return fmt.Sprintf("%s/document/v1/%s/%s/docid/%s", e.baseURL, namespace, docType, url.PathEscape(id))
}

// statusError maps a failed response: 400 means Vespa rejected the query or
// document, anything else means the cluster could not serve it.
func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("%w: vespa %s failed: %s - %s", domain.ErrInvalidInput, op, resp.Status, string(body))
	}
	return fmt.Errorf("%w: vespa %s failed: %s - %s", domain.ErrEngineUnavailable, op, resp.Status, string(body))
}

func buildYQL(q *domain.EngineQuery) string {
	where := "true"
	if strings.TrimSpace(q.Query) != "" {
		where = "userQuery()"
		if stripBoosts(q.BoostQuery) != "" {
			where = "rank(userQuery(), userInput(@boost))"
		}
	}

	if len(q.Languages) > 0 {
		langs := make([]string, len(q.Languages))
		for i, lang := range q.Languages {
			langs[i] = fmt.Sprintf("%s contains %s", domain.FieldLang, quote(lang))
		}
		where += " and (" + strings.Join(langs, " or ") + ")"
	}

	yql := fmt.Sprintf("select * from %s where %s", docType, where)
	if order := orderBy(q.Params["sort"]); order != "" {
		yql += " order by " + order
	}
	return yql
}

func modelType(operator string) string {
	if strings.EqualFold(operator, domain.OperatorOr) {
		return "any"
	}
	return "all"
}

var boostSuffix = regexp.MustCompile(`\^[0-9.]+`)

// stripBoosts removes "^n" weights, which the simple query language lacks.
func stripBoosts(s string) string {
	return strings.TrimSpace(boostSuffix.ReplaceAllString(s, ""))
}

// orderBy turns "date desc, title_en" into a YQL order clause. Relevance
// ordering is Vespa's default and is left out.
func orderBy(param string) string {
	var parts []string
	for _, part := range strings.Split(param, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 || fields[0] == "score" || fields[0] == "_score" {
			continue
		}
		if !fieldName.MatchString(fields[0]) {
			continue
		}
		dir := "asc"
		if len(fields) > 1 && strings.EqualFold(fields[1], "desc") {
			dir = "desc"
		}
		parts = append(parts, fields[0]+" "+dir)
	}
	return strings.Join(parts, ", ")
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func stripBolding(s string) string {
	s = strings.ReplaceAll(s, "<hi>", "")
	s = strings.ReplaceAll(s, "</hi>", "")
	return strings.ReplaceAll(s, "<sep />", " ... ")
}

// stringValues flattens a summary field (string, number, bool or array).
func stringValues(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil && v != nil {
		return []string{fmt.Sprint(v)}
	}
	return nil
}
