// Package chi exposes the garden catalog over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/garden-ai/garden-catalog/internal/domain"
	domentry "github.com/garden-ai/garden-catalog/internal/domain/entrypoint"
	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	"github.com/garden-ai/garden-catalog/internal/domain/principal"
	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
	"github.com/garden-ai/garden-catalog/internal/domain/search/filter"
	"github.com/garden-ai/garden-catalog/internal/domain/search/request"
	"github.com/garden-ai/garden-catalog/internal/domain/search/result"
	logpkg "github.com/garden-ai/garden-catalog/internal/logger"
	healthuc "github.com/garden-ai/garden-catalog/internal/usecase/health"
	"github.com/garden-ai/garden-catalog/internal/version"
)

const maxBodyBytes = 1 << 20

// Error codes.
const (
	codeBadRequest         = "bad_request"
	codeInvalidFilterField = "invalid_filter_field"
	codeInvalidSort        = "invalid_sort"
	codeInvalidTransition  = "invalid_draft_transition"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codeNotFound           = "not_found"
	codeAlreadyExists      = "already_exists"
	codePublished          = "published"
	codeInternal           = "internal_error"
)

// GardenService is the garden use case consumed by the handlers.
type GardenService interface {
	Create(ctx context.Context, p principal.Principal, g domgarden.Garden, draft *bool) (domgarden.Garden, error)
	Get(ctx context.Context, doi string) (domgarden.Garden, error)
	List(ctx context.Context, owner *uuid.UUID, offset, limit int) ([]domgarden.Garden, error)
	Replace(ctx context.Context, p principal.Principal, doi string, g domgarden.Garden, draft *bool) (domgarden.Garden, error)
	Patch(ctx context.Context, p principal.Principal, doi string, patch domgarden.Patch) (domgarden.Garden, error)
	Delete(ctx context.Context, p principal.Principal, doi string) error
}

// EntrypointService is the entrypoint use case consumed by the handlers.
type EntrypointService interface {
	Create(ctx context.Context, p principal.Principal, e domentry.Entrypoint, draft *bool) (domentry.Entrypoint, error)
	Get(ctx context.Context, doi string) (domentry.Entrypoint, error)
	Replace(ctx context.Context, p principal.Principal, doi string, e domentry.Entrypoint, draft *bool) (domentry.Entrypoint, error)
	Delete(ctx context.Context, p principal.Principal, doi string) error
}

// SearchService answers garden searches.
type SearchService interface {
	Search(ctx context.Context, req *request.Request) (result.Page, error)
}

// FailedUpdateLister reads the reconciliation ledger.
type FailedUpdateLister interface {
	ListFailed(ctx context.Context) ([]domrec.FailedUpdate, error)
	MaxRetries() int
}

// HealthChecker aggregates dependency checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Limits bounds page sizes of list and search endpoints.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// Server holds the HTTP handlers.
type Server struct {
	gardens     GardenService
	entrypoints EntrypointService
	search      SearchService
	failed      FailedUpdateLister
	health      HealthChecker
	limits      Limits
	logger      *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	gardens GardenService,
	entrypoints EntrypointService,
	search SearchService,
	failed FailedUpdateLister,
	health HealthChecker,
	limits Limits,
	logger *zap.Logger,
) *Server {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = request.DefaultLimit
	}
	if limits.MaxLimit <= 0 || limits.MaxLimit > request.MaxLimit {
		limits.MaxLimit = request.MaxLimit
	}
	return &Server{
		gardens:     gardens,
		entrypoints: entrypoints,
		search:      search,
		failed:      failed,
		health:      health,
		limits:      limits,
		logger:      logger,
	}
}

// --- Search ---

// SearchGardens handles POST /gardens/search.
func (s *Server) SearchGardens(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := s.searchRequestFromBody(&body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(&page))
}

func (s *Server) searchRequestFromBody(body *searchRequest) (request.Request, error) {
	filters := make([]filter.Filter, 0, len(body.Filters))
	for _, f := range body.Filters {
		flt, err := filter.New(f.FieldName, f.Values)
		if err != nil {
			return request.Request{}, err
		}
		filters = append(filters, flt)
	}

	var sort *request.Sort
	if body.Sort != nil {
		srt, err := request.NewSort(body.Sort.FieldName, body.Sort.Order)
		if err != nil {
			return request.Request{}, err
		}
		sort = &srt
	}

	offset, limit := 0, s.limits.DefaultLimit
	if body.Offset != nil {
		offset = *body.Offset
	}
	if body.Limit != nil {
		limit = *body.Limit
	}
	if limit > s.limits.MaxLimit {
		return request.Request{}, domain.InvalidRequestf("limit must be between 1 and %d, got %d", s.limits.MaxLimit, limit)
	}
	return request.New(body.Query, filters, offset, limit, sort)
}

// --- Gardens ---

// ListGardens handles GET /gardens.
func (s *Server) ListGardens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		owner  *string
		offset *int
		limit  *int
	)
	if err := runtime.BindQueryParameter("form", true, false, "owner", q, &owner); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid owner parameter")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", q, &offset); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid offset parameter")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid limit parameter")
		return
	}

	var ownerID *uuid.UUID
	if owner != nil {
		id, err := uuid.Parse(*owner)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "owner must be an identity id")
			return
		}
		ownerID = &id
	}
	off, lim := 0, s.limits.DefaultLimit
	if offset != nil {
		off = *offset
	}
	if limit != nil {
		lim = *limit
	}
	if lim > s.limits.MaxLimit {
		writeError(w, http.StatusBadRequest, codeBadRequest, "limit too large")
		return
	}

	gardens, err := s.gardens.List(r.Context(), ownerID, off, lim)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gardensToResponse(gardens))
}

// CreateGarden handles POST /gardens.
func (s *Server) CreateGarden(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var body gardenRequest
	if !decodeBody(w, r, &body) {
		return
	}

	g, err := s.gardens.Create(r.Context(), p, body.toDomain(), body.DOIIsDraft)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, gardenToResponse(&g))
}

// GetGarden handles GET /gardens/{doi}.
func (s *Server) GetGarden(w http.ResponseWriter, r *http.Request) {
	doi, ok := doiParam(w, r)
	if !ok {
		return
	}
	g, err := s.gardens.Get(r.Context(), doi)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gardenToResponse(&g))
}

// ReplaceGarden handles PUT /gardens/{doi}.
func (s *Server) ReplaceGarden(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	doi, ok := doiParam(w, r)
	if !ok {
		return
	}
	var body gardenRequest
	if !decodeBody(w, r, &body) {
		return
	}

	g, err := s.gardens.Replace(r.Context(), p, doi, body.toDomain(), body.DOIIsDraft)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gardenToResponse(&g))
}

// PatchGarden handles PATCH /gardens/{doi}.
func (s *Server) PatchGarden(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	doi, ok := doiParam(w, r)
	if !ok {
		return
	}
	var body gardenPatchRequest
	if !decodeBody(w, r, &body) {
		return
	}

	g, err := s.gardens.Patch(r.Context(), p, doi, body.toDomain())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gardenToResponse(&g))
}

// DeleteGarden handles DELETE /gardens/{doi}.
func (s *Server) DeleteGarden(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	doi, ok := doiParam(w, r)
	if !ok {
		return
	}
	if err := s.gardens.Delete(r.Context(), p, doi); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Entrypoints ---

// CreateEntrypoint handles POST /entrypoints.
func (s *Server) CreateEntrypoint(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var body entrypointRequest
	if !decodeBody(w, r, &body) {
		return
	}

	e, err := s.entrypoints.Create(r.Context(), p, body.toDomain(), body.DOIIsDraft)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entrypointToResponse(&e))
}

// GetEntrypoint handles GET /entrypoints/{doi}.
func (s *Server) GetEntrypoint(w http.ResponseWriter, r *http.Request) {
	doi, ok := doiParam(w, r)
	if !ok {
		return
	}
	e, err := s.entrypoints.Get(r.Context(), doi)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entrypointToResponse(&e))
}

// ReplaceEntrypoint handles PUT /entrypoints/{doi}.
func (s *Server) ReplaceEntrypoint(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	doi, ok := doiParam(w, r)
	if !ok {
		return
	}
	var body entrypointRequest
	if !decodeBody(w, r, &body) {
		return
	}

	e, err := s.entrypoints.Replace(r.Context(), p, doi, body.toDomain(), body.DOIIsDraft)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entrypointToResponse(&e))
}

// DeleteEntrypoint handles DELETE /entrypoints/{doi}.
func (s *Server) DeleteEntrypoint(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	doi, ok := doiParam(w, r)
	if !ok {
		return
	}
	if err := s.entrypoints.Delete(r.Context(), p, doi); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Operations ---

// ListFailedUpdates handles GET /status/failed-updates.
func (s *Server) ListFailedUpdates(w http.ResponseWriter, r *http.Request) {
	rows, err := s.failed.ListFailed(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, failedUpdatesToResponse(rows, s.failed.MaxRetries()))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Helpers ---

// doiParam reads the DOI from the catch-all route segment. DOIs contain a
// slash, so clients may send it raw or percent-encoded.
func doiParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	var doi string
	err := runtime.BindStyledParameterWithOptions("simple", "doi", chi.URLParam(r, "*"), &doi,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false})
	if err != nil || doi == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid doi in path")
		return "", false
	}
	if err := domgarden.ValidateDOI(doi); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return "", false
	}
	return doi, true
}

func requirePrincipal(w http.ResponseWriter, r *http.Request) (principal.Principal, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	return p, ok
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// errorMapping maps a domain sentinel onto a status and code. Order matters:
// the first match wins.
var errorMapping = []struct {
	sentinel error
	status   int
	code     string
}{
	{domain.ErrInvalidFilterField, http.StatusBadRequest, codeInvalidFilterField},
	{domain.ErrInvalidSort, http.StatusBadRequest, codeInvalidSort},
	{domain.ErrInvalidDraftTransition, http.StatusBadRequest, codeInvalidTransition},
	{domain.ErrInvalidRequest, http.StatusBadRequest, codeBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden, codeForbidden},
	{domain.ErrNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists},
	{domain.ErrPublished, http.StatusConflict, codePublished},
}

// clientMessage returns the most specific client-facing message: typed
// validation errors carry the offending value, everything else is the
// wrapped chain built from domain messages.
func clientMessage(err error) string {
	var ife *domain.InvalidFilterFieldError
	if errors.As(err, &ife) {
		return ife.Error()
	}
	var ise *domain.InvalidSortError
	if errors.As(err, &ise) {
		return ise.Error()
	}
	var ire *domain.InvalidRequestError
	if errors.As(err, &ire) {
		return ire.Error()
	}
	return err.Error()
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	for _, m := range errorMapping {
		if errors.Is(err, m.sentinel) {
			log.Debug("client error", zap.Error(err))
			writeError(w, m.status, m.code, clientMessage(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

