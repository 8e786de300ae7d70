package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports the state of each dependency
// @Description Readiness status with per-dependency checks
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// IndexUnitsRequest lists the units to index
// @Description Units to index as one job
type IndexUnitsRequest struct {
	Refs []domain.ContentRef `json:"refs"`
}

// IndexScopeRequest selects a wiki or space to index.
// With no refs, every unit of the scope is indexed.
// @Description Scope to index, optionally restricted to refs
type IndexScopeRequest struct {
	Wiki  string              `json:"wiki" example:"xwiki"`
	Space string              `json:"space,omitempty" example:"Main"`
	Refs  []domain.ContentRef `json:"refs,omitempty"`
}

// JobResponse carries the ID of a submitted job
// @Description Submitted indexing job
type JobResponse struct {
	JobID string `json:"job_id" example:"7f9c2a4e-1b9e-4a55-9d0b-2f3f4c7f1e21"`
}

// readyTimeout bounds each dependency ping
const readyTimeout = 5 * time.Second

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks the index engine, database and Redis connections
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string)}
	for name, p := range map[string]Pinger{"engine": s.engine, "database": s.db, "redis": s.redisClient} {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "dependency", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "not ready"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleOpenAPI serves the registered OpenAPI document
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// Search endpoints

// handleSearchRaw godoc
// @Summary      Search the wiki
// @Description  Runs a query string. lang (repeatable or comma separated), wiki and space narrow the search; fq.<field> adds exact-match filters; any other parameter (start, rows, q.op, qf, sort) is passed to the query pipeline.
// @Tags         Search
// @Produce      json
// @Security     BearerAuth
// @Param        q      query     string  true   "Query string"
// @Param        lang   query     string  false  "Languages"
// @Param        wiki   query     string  false  "Wiki"
// @Param        space  query     string  false  "Space"
// @Param        start  query     int     false  "Offset of the first hit"
// @Param        rows   query     int     false  "Maximum number of hits"
// @Success      200    {object}  domain.SearchResponse
// @Failure      400    {object}  ErrorResponse  "Missing or malformed query"
// @Failure      401    {object}  ErrorResponse  "Invalid token"
// @Failure      503    {object}  ErrorResponse  "Index engine unavailable"
// @Router       /search [get]
func (s *Server) handleSearchRaw(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	query := strings.TrimSpace(values.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	var (
		resp *domain.SearchResponse
		err  error
	)
	if len(values) == 1 {
		resp, err = s.searchService.Search(r.Context(), query)
	} else {
		resp, err = s.searchService.SearchRequest(r.Context(), searchRequestFromQuery(values))
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSearch godoc
// @Summary      Structured search
// @Description  Runs a structured search request. Results are filtered by what the requester may view.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.SearchRequest  true  "Search request"
// @Success      200      {object}  domain.SearchResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      401      {object}  ErrorResponse  "Invalid token"
// @Failure      503      {object}  ErrorResponse  "Index engine unavailable"
// @Router       /search [post]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" && len(req.Filters) == 0 && (req.Scope == nil || req.Scope.IsZero()) {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp, err := s.searchService.SearchRequest(r.Context(), &req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// searchRequestFromQuery builds a structured request from URL parameters.
func searchRequestFromQuery(values url.Values) *domain.SearchRequest {
	req := &domain.SearchRequest{Query: strings.TrimSpace(values.Get("q"))}
	var scope domain.Scope

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		switch {
		case key == "q":
		case key == "lang":
			for _, v := range vals {
				for _, lang := range strings.Split(v, ",") {
					if lang = strings.TrimSpace(lang); lang != "" {
						req.Languages = append(req.Languages, lang)
					}
				}
			}
		case key == "wiki":
			scope.Wiki = vals[0]
		case key == "space":
			scope.Space = vals[0]
		case strings.HasPrefix(key, "fq."):
			if req.Filters == nil {
				req.Filters = make(map[string]string)
			}
			req.Filters[strings.TrimPrefix(key, "fq.")] = vals[0]
		default:
			if req.Params == nil {
				req.Params = make(map[string]string)
			}
			req.Params[key] = vals[0]
		}
	}

	if !scope.IsZero() {
		req.Scope = &scope
	}
	return req
}

// Indexing endpoints

// handleListJobs godoc
// @Summary      List indexing jobs
// @Description  Returns the progress of every live and persisted job
// @Tags         Indexing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.ProgressState
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /index/jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	data, err := s.indexingService.StatusJSON(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleGetJob godoc
// @Summary      Get an indexing job
// @Tags         Indexing
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  domain.ProgressState
// @Failure      404  {object}  ErrorResponse  "Job not found"
// @Router       /index/jobs/{id} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	state, err := s.indexingService.JobStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleCancelJob godoc
// @Summary      Cancel an indexing job
// @Description  The job stops after its current batch step
// @Tags         Indexing
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Job not found"
// @Router       /index/jobs/{id}/cancel [post]
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if err := s.indexingService.CancelJob(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "cancelling"})
}

// handleIndexUnits godoc
// @Summary      Index units
// @Description  Submits the given units as one indexing job
// @Tags         Indexing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      IndexUnitsRequest  true  "Units"
// @Success      202      {object}  JobResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      503      {object}  ErrorResponse  "Queue full"
// @Router       /index [post]
func (s *Server) handleIndexUnits(w http.ResponseWriter, r *http.Request) {
	var req IndexUnitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Refs) == 0 {
		writeError(w, http.StatusBadRequest, "refs are required")
		return
	}

	jobID, err := s.indexingService.IndexUnits(r.Context(), req.Refs)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, JobResponse{JobID: jobID})
}

// handleIndexScope godoc
// @Summary      Index a wiki or space
// @Tags         Indexing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      IndexScopeRequest  true  "Scope"
// @Success      202      {object}  JobResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /index/scope [post]
func (s *Server) handleIndexScope(w http.ResponseWriter, r *http.Request) {
	var req IndexScopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scope := domain.Scope{Wiki: req.Wiki, Space: req.Space}
	jobID, err := s.indexingService.IndexUnitsInScope(r.Context(), scope, req.Refs)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, JobResponse{JobID: jobID})
}

// handleIndexAll godoc
// @Summary      Rebuild the whole index
// @Description  Only one replica may rebuild at a time
// @Tags         Indexing
// @Produce      json
// @Security     BearerAuth
// @Success      202  {object}  JobResponse
// @Failure      409  {object}  ErrorResponse  "Rebuild already running"
// @Router       /index/all [post]
func (s *Server) handleIndexAll(w http.ResponseWriter, r *http.Request) {
	jobID, err := s.indexingService.IndexAll(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, JobResponse{JobID: jobID})
}

// handleDeleteUnit godoc
// @Summary      Remove a unit from the index
// @Tags         Indexing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.ContentRef  true  "Unit"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /index/unit [delete]
func (s *Server) handleDeleteUnit(w http.ResponseWriter, r *http.Request) {
	var ref domain.ContentRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.indexingService.DeleteIndex(r.Context(), ref); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// handleDeleteScope godoc
// @Summary      Remove a wiki or space from the index
// @Tags         Indexing
// @Produce      json
// @Security     BearerAuth
// @Param        wiki   query     string  true   "Wiki"
// @Param        space  query     string  false  "Space"
// @Success      200    {object}  StatusResponse
// @Failure      400    {object}  ErrorResponse
// @Router       /index/scope [delete]
func (s *Server) handleDeleteScope(w http.ResponseWriter, r *http.Request) {
	scope := domain.Scope{
		Wiki:  r.URL.Query().Get("wiki"),
		Space: r.URL.Query().Get("space"),
	}
	if err := s.indexingService.DeleteScope(r.Context(), scope); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// handleDeleteAll godoc
// @Summary      Empty the index
// @Tags         Indexing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /index [delete]
func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := s.indexingService.DeleteEntireIndex(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// Event endpoints

// handleEvent godoc
// @Summary      Content change notification
// @Description  Called by the wiki when a page, attachment or object changes
// @Tags         Events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        event  body      domain.ContentEvent  true  "Event"
// @Success      202    {object}  StatusResponse
// @Failure      400    {object}  ErrorResponse
// @Router       /events [post]
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var event domain.ContentEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.eventListener.Handle(r.Context(), event); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "accepted"})
}

// Helpers

// statusFor maps domain errors to HTTP status codes. An engine that could
// not be opened is unavailable even when the cause was bad input.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEngineUnavailable),
		errors.Is(err, domain.ErrEngineClosed),
		errors.Is(err, domain.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLockHeld):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err with its mapped status. Internal errors are
// logged and not echoed to the client.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
