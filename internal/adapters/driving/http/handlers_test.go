package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven/mocks"
)

// Mock services for testing

type mockSearchService struct {
	searchFn        func(ctx context.Context, query string) (*domain.SearchResponse, error)
	searchRequestFn func(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error)
}

func (m *mockSearchService) Search(ctx context.Context, query string) (*domain.SearchResponse, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSearchService) SearchRequest(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error) {
	if m.searchRequestFn != nil {
		return m.searchRequestFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

type mockIndexingService struct {
	indexUnitsFn   func(ctx context.Context, refs []domain.ContentRef) (string, error)
	indexScopeFn   func(ctx context.Context, scope domain.Scope, refs []domain.ContentRef) (string, error)
	indexAllFn     func(ctx context.Context) (string, error)
	jobStatusFn    func(ctx context.Context, jobID string) (*domain.ProgressState, error)
	statusJSONFn   func(ctx context.Context) ([]byte, error)
	cancelJobFn    func(ctx context.Context, jobID string) error
	deleteIndexFn  func(ctx context.Context, ref domain.ContentRef) error
	deleteScopeFn  func(ctx context.Context, scope domain.Scope) error
	deleteAllCalls int
}

func (m *mockIndexingService) IndexUnits(ctx context.Context, refs []domain.ContentRef) (string, error) {
	if m.indexUnitsFn != nil {
		return m.indexUnitsFn(ctx, refs)
	}
	return "", errors.New("not implemented")
}

func (m *mockIndexingService) IndexUnitsInScope(ctx context.Context, scope domain.Scope, refs []domain.ContentRef) (string, error) {
	if m.indexScopeFn != nil {
		return m.indexScopeFn(ctx, scope, refs)
	}
	return "", errors.New("not implemented")
}

func (m *mockIndexingService) IndexAll(ctx context.Context) (string, error) {
	if m.indexAllFn != nil {
		return m.indexAllFn(ctx)
	}
	return "", errors.New("not implemented")
}

func (m *mockIndexingService) Status(ctx context.Context) ([]*domain.ProgressState, error) {
	return nil, nil
}

func (m *mockIndexingService) JobStatus(ctx context.Context, jobID string) (*domain.ProgressState, error) {
	if m.jobStatusFn != nil {
		return m.jobStatusFn(ctx, jobID)
	}
	return nil, domain.ErrJobNotFound
}

func (m *mockIndexingService) StatusJSON(ctx context.Context) ([]byte, error) {
	if m.statusJSONFn != nil {
		return m.statusJSONFn(ctx)
	}
	return []byte("[]"), nil
}

func (m *mockIndexingService) CancelJob(ctx context.Context, jobID string) error {
	if m.cancelJobFn != nil {
		return m.cancelJobFn(ctx, jobID)
	}
	return nil
}

func (m *mockIndexingService) DeleteIndex(ctx context.Context, ref domain.ContentRef) error {
	if m.deleteIndexFn != nil {
		return m.deleteIndexFn(ctx, ref)
	}
	return nil
}

func (m *mockIndexingService) DeleteScope(ctx context.Context, scope domain.Scope) error {
	if m.deleteScopeFn != nil {
		return m.deleteScopeFn(ctx, scope)
	}
	return nil
}

func (m *mockIndexingService) DeleteEntireIndex(ctx context.Context) error {
	m.deleteAllCalls++
	return nil
}

type mockEventListener struct {
	events []domain.ContentEvent
	err    error
}

func (m *mockEventListener) OnCreated(ctx context.Context, ref domain.ContentRef) error {
	return m.Handle(ctx, domain.ContentEvent{Kind: domain.EventCreated, Ref: ref})
}

func (m *mockEventListener) OnUpdated(ctx context.Context, ref domain.ContentRef) error {
	return m.Handle(ctx, domain.ContentEvent{Kind: domain.EventUpdated, Ref: ref})
}

func (m *mockEventListener) OnDeleted(ctx context.Context, ref domain.ContentRef) error {
	return m.Handle(ctx, domain.ContentEvent{Kind: domain.EventDeleted, Ref: ref})
}

func (m *mockEventListener) OnAttachmentChanged(ctx context.Context, ref domain.ContentRef) error {
	return m.Handle(ctx, domain.ContentEvent{Kind: domain.EventAttachmentChanged, Ref: ref})
}

func (m *mockEventListener) Handle(ctx context.Context, event domain.ContentEvent) error {
	if m.err != nil {
		return m.err
	}
	if err := event.Validate(); err != nil {
		return err
	}
	m.events = append(m.events, event)
	return nil
}

const (
	adminToken = "admin-token"
	userToken  = "user-token"
)

type testServer struct {
	*Server
	search   *mockSearchService
	indexing *mockIndexingService
	events   *mockEventListener
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		search:   &mockSearchService{},
		indexing: &mockIndexingService{},
		events:   &mockEventListener{},
	}
	tokens := &mocks.MockTokenValidator{Tokens: map[string]*domain.Requester{
		adminToken: {UserID: "XWiki.Admin", Admin: true},
		userToken:  {UserID: "XWiki.Alice", Groups: []string{"XWiki.Staff"}},
	}}
	ts.Server = NewServer(DefaultConfig(), ts.search, ts.indexing, ts.events, tokens, nil, nil, nil)
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	return resp.Error
}

func TestHealthHandler(t *testing.T) {
	server := &Server{version: "test"}

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	server.handleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
}

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name       string
		engine     Pinger
		db         Pinger
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "all dependencies up",
			engine:     PingFunc(func(ctx context.Context) error { return nil }),
			db:         PingFunc(func(ctx context.Context) error { return nil }),
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"engine": "ok", "database": "ok"},
		},
		{
			name:       "engine down",
			engine:     PingFunc(func(ctx context.Context) error { return domain.ErrEngineUnavailable }),
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"engine": "unavailable"},
		},
		{
			name:       "nothing configured",
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(DefaultConfig(), nil, nil, nil, nil, tt.engine, tt.db, nil)

			req := httptest.NewRequest("GET", "/ready", nil)
			rr := httptest.NewRecorder()
			server.handleReady(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			var response ReadyResponse
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(response.Checks) != len(tt.wantChecks) {
				t.Fatalf("expected checks %v, got %v", tt.wantChecks, response.Checks)
			}
			for k, v := range tt.wantChecks {
				if response.Checks[k] != v {
					t.Errorf("check %s: expected %q, got %q", k, v, response.Checks[k])
				}
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	server := &Server{version: "1.2.3"}

	req := httptest.NewRequest("GET", "/version", nil)
	rr := httptest.NewRecorder()

	server.handleVersion(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response VersionResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Version != "1.2.3" {
		t.Errorf("expected version '1.2.3', got %s", response.Version)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	data := map[string]string{"foo": "bar"}
	writeJSON(rr, http.StatusCreated, data)

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["foo"] != "bar" {
		t.Errorf("expected foo 'bar', got %s", response["foo"])
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad query", domain.ErrInvalidInput), http.StatusBadRequest},
		{domain.ErrTokenExpired, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrJobNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrLockHeld, http.StatusConflict},
		{fmt.Errorf("%w: timeout", domain.ErrEngineUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: open vespa engine: %w", domain.ErrEngineUnavailable, domain.ErrInvalidInput), http.StatusServiceUnavailable},
		{domain.ErrEngineClosed, http.StatusServiceUnavailable},
		{domain.ErrQueueFull, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHandleSearchRaw_Guest(t *testing.T) {
	ts := newTestServer(t)
	var gotQuery string
	var gotRequester *domain.Requester
	ts.search.searchFn = func(ctx context.Context, query string) (*domain.SearchResponse, error) {
		gotQuery = query
		gotRequester = domain.RequesterFromContext(ctx)
		return &domain.SearchResponse{Query: query, TotalCount: 1}, nil
	}

	rr := ts.do("GET", "/api/v1/search?q=release+notes", "", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotQuery != "release notes" {
		t.Errorf("expected query 'release notes', got %q", gotQuery)
	}
	if !gotRequester.IsGuest() {
		t.Errorf("expected guest requester, got %+v", gotRequester)
	}
}

func TestHandleSearchRaw_Structured(t *testing.T) {
	ts := newTestServer(t)
	var got *domain.SearchRequest
	var gotRequester *domain.Requester
	ts.search.searchRequestFn = func(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error) {
		got = req
		gotRequester = domain.RequesterFromContext(ctx)
		return &domain.SearchResponse{}, nil
	}

	rr := ts.do("GET", "/api/v1/search?q=alpha&lang=en,fr&lang=de&wiki=xwiki&space=Main&fq.type=page&rows=5&q.op=OR", userToken, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotRequester.UserID != "XWiki.Alice" {
		t.Errorf("expected requester XWiki.Alice, got %s", gotRequester.UserID)
	}
	if got.Query != "alpha" {
		t.Errorf("expected query alpha, got %q", got.Query)
	}
	if strings.Join(got.Languages, ",") != "en,fr,de" {
		t.Errorf("expected languages en,fr,de, got %v", got.Languages)
	}
	if got.Scope == nil || got.Scope.Wiki != "xwiki" || got.Scope.Space != "Main" {
		t.Errorf("unexpected scope %+v", got.Scope)
	}
	if got.Filters["type"] != "page" {
		t.Errorf("expected type filter, got %v", got.Filters)
	}
	if got.Params[domain.ParamRows] != "5" || got.Params[domain.ParamOperator] != "OR" {
		t.Errorf("unexpected params %v", got.Params)
	}
	if _, ok := got.Params["q"]; ok {
		t.Error("q must not be passed as a backend parameter")
	}
}

func TestHandleSearchRaw_EmptyQuery(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do("GET", "/api/v1/search?q=+", "", nil)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleSearchRaw_InvalidToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do("GET", "/api/v1/search?q=x", "forged", nil)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != "invalid token" {
		t.Errorf("expected 'invalid token', got %q", msg)
	}
}

func TestHandleSearch(t *testing.T) {
	ts := newTestServer(t)
	ts.search.searchRequestFn = func(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error) {
		if req.Query == "title:(" {
			return nil, fmt.Errorf("%w: syntax error", domain.ErrInvalidInput)
		}
		if req.Query == "slow" {
			return nil, fmt.Errorf("%w: query timed out", domain.ErrEngineUnavailable)
		}
		return &domain.SearchResponse{
			Query:        req.Query,
			Results:      []domain.SearchResult{{ID: "xwiki.main.webhome.en", Title: "Home"}},
			TotalCount:   3,
			VisibleCount: 1,
		}, nil
	}

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"valid request", domain.SearchRequest{Query: "home", Languages: []string{"en"}}, http.StatusOK},
		{"filters only", domain.SearchRequest{Filters: map[string]string{"space": "Main"}}, http.StatusOK},
		{"empty request", domain.SearchRequest{}, http.StatusBadRequest},
		{"invalid json", "not json", http.StatusBadRequest},
		{"engine syntax error", domain.SearchRequest{Query: "title:("}, http.StatusBadRequest},
		{"engine timeout", domain.SearchRequest{Query: "slow"}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do("POST", "/api/v1/search", "", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp domain.SearchResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.TotalCount != 3 || resp.VisibleCount != 1 {
				t.Errorf("unexpected counts %d/%d", resp.TotalCount, resp.VisibleCount)
			}
		})
	}
}

func TestAdminEndpoints_RequireAdmin(t *testing.T) {
	ts := newTestServer(t)

	routes := []struct{ method, path string }{
		{"GET", "/api/v1/index/jobs"},
		{"GET", "/api/v1/index/jobs/abc"},
		{"POST", "/api/v1/index/jobs/abc/cancel"},
		{"POST", "/api/v1/index"},
		{"POST", "/api/v1/index/scope"},
		{"POST", "/api/v1/index/all"},
		{"DELETE", "/api/v1/index/unit"},
		{"DELETE", "/api/v1/index/scope?wiki=xwiki"},
		{"DELETE", "/api/v1/index"},
		{"POST", "/api/v1/events"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			if rr := ts.do(route.method, route.path, "", nil); rr.Code != http.StatusUnauthorized {
				t.Errorf("anonymous: expected 401, got %d", rr.Code)
			}
			if rr := ts.do(route.method, route.path, userToken, nil); rr.Code != http.StatusForbidden {
				t.Errorf("non-admin: expected 403, got %d", rr.Code)
			}
		})
	}
	if ts.indexing.deleteAllCalls != 0 {
		t.Error("index must not be emptied by unauthorized callers")
	}
}

func TestHandleIndexUnits(t *testing.T) {
	ts := newTestServer(t)
	var got []domain.ContentRef
	ts.indexing.indexUnitsFn = func(ctx context.Context, refs []domain.ContentRef) (string, error) {
		got = refs
		return "job-1", nil
	}

	ref := domain.ContentRef{Type: domain.UnitTypePage, Wiki: "xwiki", Space: "Main", Page: "WebHome"}
	rr := ts.do("POST", "/api/v1/index", adminToken, IndexUnitsRequest{Refs: []domain.ContentRef{ref}})

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp JobResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.JobID != "job-1" {
		t.Errorf("expected job-1, got %s", resp.JobID)
	}
	if len(got) != 1 || got[0] != ref {
		t.Errorf("unexpected refs %v", got)
	}

	if rr := ts.do("POST", "/api/v1/index", adminToken, IndexUnitsRequest{}); rr.Code != http.StatusBadRequest {
		t.Errorf("empty refs: expected 400, got %d", rr.Code)
	}

	ts.indexing.indexUnitsFn = func(ctx context.Context, refs []domain.ContentRef) (string, error) {
		return "", domain.ErrQueueFull
	}
	if rr := ts.do("POST", "/api/v1/index", adminToken, IndexUnitsRequest{Refs: []domain.ContentRef{ref}}); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("queue full: expected 503, got %d", rr.Code)
	}
}

func TestHandleIndexScope(t *testing.T) {
	ts := newTestServer(t)
	var got domain.Scope
	ts.indexing.indexScopeFn = func(ctx context.Context, scope domain.Scope, refs []domain.ContentRef) (string, error) {
		if err := scope.Validate(); err != nil {
			return "", err
		}
		got = scope
		return "job-2", nil
	}

	rr := ts.do("POST", "/api/v1/index/scope", adminToken, IndexScopeRequest{Wiki: "xwiki", Space: "Main"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Wiki != "xwiki" || got.Space != "Main" {
		t.Errorf("unexpected scope %+v", got)
	}

	if rr := ts.do("POST", "/api/v1/index/scope", adminToken, IndexScopeRequest{Space: "Main"}); rr.Code != http.StatusBadRequest {
		t.Errorf("space without wiki: expected 400, got %d", rr.Code)
	}
}

func TestHandleIndexAll_LockHeld(t *testing.T) {
	ts := newTestServer(t)
	ts.indexing.indexAllFn = func(ctx context.Context) (string, error) {
		return "", fmt.Errorf("%w: index:rebuild", domain.ErrLockHeld)
	}

	rr := ts.do("POST", "/api/v1/index/all", adminToken, nil)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleJobs(t *testing.T) {
	ts := newTestServer(t)
	ts.indexing.statusJSONFn = func(ctx context.Context) ([]byte, error) {
		return []byte(`[{"job_id":"job-1","status":"running"}]`), nil
	}
	ts.indexing.jobStatusFn = func(ctx context.Context, jobID string) (*domain.ProgressState, error) {
		if jobID != "job-1" {
			return nil, domain.ErrJobNotFound
		}
		return &domain.ProgressState{JobID: jobID, Status: domain.JobStatusRunning, TotalCount: 10, IndexedCount: 4}, nil
	}
	var cancelled string
	ts.indexing.cancelJobFn = func(ctx context.Context, jobID string) error {
		if jobID != "job-1" {
			return domain.ErrJobNotFound
		}
		cancelled = jobID
		return nil
	}

	rr := ts.do("GET", "/api/v1/index/jobs", adminToken, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"job-1"`) {
		t.Errorf("list: got %d %s", rr.Code, rr.Body.String())
	}

	rr = ts.do("GET", "/api/v1/index/jobs/job-1", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rr.Code)
	}
	var state domain.ProgressState
	if err := json.NewDecoder(rr.Body).Decode(&state); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if state.IndexedCount != 4 || state.Status != domain.JobStatusRunning {
		t.Errorf("unexpected state %+v", state)
	}

	if rr := ts.do("GET", "/api/v1/index/jobs/nope", adminToken, nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown job: expected 404, got %d", rr.Code)
	}

	if rr := ts.do("POST", "/api/v1/index/jobs/job-1/cancel", adminToken, nil); rr.Code != http.StatusOK {
		t.Errorf("cancel: expected 200, got %d", rr.Code)
	}
	if cancelled != "job-1" {
		t.Errorf("expected job-1 to be cancelled, got %q", cancelled)
	}
	if rr := ts.do("POST", "/api/v1/index/jobs/nope/cancel", adminToken, nil); rr.Code != http.StatusNotFound {
		t.Errorf("cancel unknown: expected 404, got %d", rr.Code)
	}
}

func TestHandleDeletes(t *testing.T) {
	ts := newTestServer(t)
	var deletedRef domain.ContentRef
	ts.indexing.deleteIndexFn = func(ctx context.Context, ref domain.ContentRef) error {
		if err := ref.Validate(); err != nil {
			return err
		}
		deletedRef = ref
		return nil
	}
	var deletedScope domain.Scope
	ts.indexing.deleteScopeFn = func(ctx context.Context, scope domain.Scope) error {
		if err := scope.Validate(); err != nil {
			return err
		}
		deletedScope = scope
		return nil
	}

	ref := domain.ContentRef{Type: domain.UnitTypeAttachment, Wiki: "xwiki", Space: "Main", Page: "WebHome", Filename: "a.txt"}
	if rr := ts.do("DELETE", "/api/v1/index/unit", adminToken, ref); rr.Code != http.StatusOK {
		t.Errorf("delete unit: expected 200, got %d", rr.Code)
	}
	if deletedRef != ref {
		t.Errorf("unexpected ref %+v", deletedRef)
	}
	if rr := ts.do("DELETE", "/api/v1/index/unit", adminToken, domain.ContentRef{Type: "page"}); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid ref: expected 400, got %d", rr.Code)
	}

	if rr := ts.do("DELETE", "/api/v1/index/scope?wiki=xwiki&space=Sandbox", adminToken, nil); rr.Code != http.StatusOK {
		t.Errorf("delete scope: expected 200, got %d", rr.Code)
	}
	if deletedScope.Wiki != "xwiki" || deletedScope.Space != "Sandbox" {
		t.Errorf("unexpected scope %+v", deletedScope)
	}

	if rr := ts.do("DELETE", "/api/v1/index", adminToken, nil); rr.Code != http.StatusOK {
		t.Errorf("delete all: expected 200, got %d", rr.Code)
	}
	if ts.indexing.deleteAllCalls != 1 {
		t.Errorf("expected one full delete, got %d", ts.indexing.deleteAllCalls)
	}
}

func TestHandleEvent(t *testing.T) {
	ts := newTestServer(t)

	event := domain.ContentEvent{
		Kind: domain.EventUpdated,
		Ref:  domain.ContentRef{Type: domain.UnitTypePage, Wiki: "xwiki", Space: "Main", Page: "WebHome"},
	}
	rr := ts.do("POST", "/api/v1/events", adminToken, event)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(ts.events.events) != 1 || ts.events.events[0] != event {
		t.Errorf("unexpected events %v", ts.events.events)
	}

	bad := domain.ContentEvent{Kind: "renamed", Ref: event.Ref}
	if rr := ts.do("POST", "/api/v1/events", adminToken, bad); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown kind: expected 400, got %d", rr.Code)
	}
	if rr := ts.do("POST", "/api/v1/events", adminToken, "{"); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid json: expected 400, got %d", rr.Code)
	}

	ts.events.err = errors.New("database gone")
	rr = ts.do("POST", "/api/v1/events", adminToken, event)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != "internal server error" {
		t.Errorf("internal errors must not leak, got %q", msg)
	}
}

type testDoc struct{}

func (testDoc) ReadDoc() string { return `{"swagger":"2.0","info":{"title":"test"}}` }

var registerDoc sync.Once

func TestHandleOpenAPI(t *testing.T) {
	registerDoc.Do(func() { swag.Register(swag.Name, testDoc{}) })
	ts := newTestServer(t)

	rr := ts.do("GET", "/swagger/doc.json", "", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"swagger":"2.0"`) {
		t.Errorf("unexpected document %s", rr.Body.String())
	}
}
