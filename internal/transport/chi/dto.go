package chi

import (
	"time"

	domentry "github.com/garden-ai/garden-catalog/internal/domain/entrypoint"
	domgarden "github.com/garden-ai/garden-catalog/internal/domain/garden"
	domrec "github.com/garden-ai/garden-catalog/internal/domain/reconcile"
	"github.com/garden-ai/garden-catalog/internal/domain/search/facet"
	"github.com/garden-ai/garden-catalog/internal/domain/search/result"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Gardens ---

type gardenRequest struct {
	DOI            string   `json:"doi"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Authors        []string `json:"authors"`
	Contributors   []string `json:"contributors"`
	Tags           []string `json:"tags"`
	Year           string   `json:"year"`
	Language       string   `json:"language"`
	Version        string   `json:"version"`
	DOIIsDraft     *bool    `json:"doi_is_draft"`
	IsArchived     bool     `json:"is_archived"`
	EntrypointDOIs []string `json:"entrypoint_dois"`
}

func (r *gardenRequest) toDomain() domgarden.Garden {
	return domgarden.Garden{
		DOI:            r.DOI,
		Title:          r.Title,
		Description:    r.Description,
		Authors:        r.Authors,
		Contributors:   r.Contributors,
		Tags:           r.Tags,
		Year:           r.Year,
		Language:       r.Language,
		Version:        r.Version,
		IsArchived:     r.IsArchived,
		EntrypointDOIs: r.EntrypointDOIs,
	}
}

type gardenPatchRequest struct {
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	Authors        *[]string `json:"authors"`
	Contributors   *[]string `json:"contributors"`
	Tags           *[]string `json:"tags"`
	Year           *string   `json:"year"`
	Language       *string   `json:"language"`
	Version        *string   `json:"version"`
	DOIIsDraft     *bool     `json:"doi_is_draft"`
	IsArchived     *bool     `json:"is_archived"`
	EntrypointDOIs *[]string `json:"entrypoint_dois"`
}

func (r *gardenPatchRequest) toDomain() domgarden.Patch {
	return domgarden.Patch{
		Title:          r.Title,
		Description:    r.Description,
		Authors:        r.Authors,
		Contributors:   r.Contributors,
		Tags:           r.Tags,
		Year:           r.Year,
		Language:       r.Language,
		Version:        r.Version,
		DOIIsDraft:     r.DOIIsDraft,
		IsArchived:     r.IsArchived,
		EntrypointDOIs: r.EntrypointDOIs,
	}
}

type gardenResponse struct {
	DOI          string               `json:"doi"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Authors      []string             `json:"authors"`
	Contributors []string             `json:"contributors"`
	Tags         []string             `json:"tags"`
	Year         string               `json:"year"`
	Language     string               `json:"language"`
	Version      string               `json:"version"`
	DOIIsDraft   bool                 `json:"doi_is_draft"`
	IsArchived   bool                 `json:"is_archived"`
	OwnerID      string               `json:"owner_identity_id"`
	Entrypoints  []entrypointResponse `json:"entrypoints"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

func gardenToResponse(g *domgarden.Garden) gardenResponse {
	eps := make([]entrypointResponse, len(g.Entrypoints))
	for i := range g.Entrypoints {
		eps[i] = entrypointToResponse(&g.Entrypoints[i])
	}
	return gardenResponse{
		DOI:          g.DOI,
		Title:        g.Title,
		Description:  g.Description,
		Authors:      orEmpty(g.Authors),
		Contributors: orEmpty(g.Contributors),
		Tags:         orEmpty(g.Tags),
		Year:         g.Year,
		Language:     g.Language,
		Version:      g.Version,
		DOIIsDraft:   g.DOIIsDraft,
		IsArchived:   g.IsArchived,
		OwnerID:      g.OwnerID.String(),
		Entrypoints:  eps,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func gardensToResponse(gardens []domgarden.Garden) []gardenResponse {
	out := make([]gardenResponse, len(gardens))
	for i := range gardens {
		out[i] = gardenToResponse(&gardens[i])
	}
	return out
}

// --- Entrypoints ---

type entrypointRequest struct {
	DOI         string   `json:"doi"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Authors     []string `json:"authors"`
	Tags        []string `json:"tags"`
	Year        string   `json:"year"`
	DOIIsDraft  *bool    `json:"doi_is_draft"`
}

func (r *entrypointRequest) toDomain() domentry.Entrypoint {
	return domentry.Entrypoint{
		DOI:         r.DOI,
		Title:       r.Title,
		Description: r.Description,
		Authors:     r.Authors,
		Tags:        r.Tags,
		Year:        r.Year,
	}
}

type entrypointResponse struct {
	DOI         string    `json:"doi"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Authors     []string  `json:"authors"`
	Tags        []string  `json:"tags"`
	Year        string    `json:"year"`
	DOIIsDraft  bool      `json:"doi_is_draft"`
	OwnerID     string    `json:"owner_identity_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func entrypointToResponse(e *domentry.Entrypoint) entrypointResponse {
	return entrypointResponse{
		DOI:         e.DOI,
		Title:       e.Title,
		Description: e.Description,
		Authors:     orEmpty(e.Authors),
		Tags:        orEmpty(e.Tags),
		Year:        e.Year,
		DOIIsDraft:  e.DOIIsDraft,
		OwnerID:     e.OwnerID.String(),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// --- Search ---

type searchFilter struct {
	FieldName string   `json:"field_name"`
	Values    []string `json:"values"`
}

type searchSort struct {
	FieldName string `json:"field_name"`
	Order     string `json:"order"`
}

type searchRequest struct {
	Query   string         `json:"q"`
	Filters []searchFilter `json:"filters"`
	Offset  *int           `json:"offset"`
	Limit   *int           `json:"limit"`
	Sort    *searchSort    `json:"sort"`
}

type searchResponse struct {
	Count      int                          `json:"count"`
	Total      int                          `json:"total"`
	Offset     int                          `json:"offset"`
	GardenMeta []gardenResponse             `json:"garden_meta"`
	Facets     map[facet.Field]facet.Counts `json:"facets"`
}

func pageToResponse(p *result.Page) searchResponse {
	facets := make(map[facet.Field]facet.Counts, len(facet.Fields))
	for _, f := range facet.Fields {
		facets[f] = p.Facets().Get(f)
	}
	return searchResponse{
		Count:      p.Count(),
		Total:      p.Total(),
		Offset:     p.Offset(),
		GardenMeta: gardensToResponse(p.Gardens()),
		Facets:     facets,
	}
}

// --- Failed updates ---

type failedUpdateResponse struct {
	GardenDOI     string    `json:"garden_doi"`
	OperationType string    `json:"operation_type"`
	ErrorMessage  string    `json:"error_message"`
	RetryCount    int       `json:"retry_count"`
	Exhausted     bool      `json:"exhausted"`
	LastAttempt   time.Time `json:"last_attempt"`
}

func failedUpdatesToResponse(rows []domrec.FailedUpdate, maxRetries int) []failedUpdateResponse {
	out := make([]failedUpdateResponse, len(rows))
	for i := range rows {
		r := &rows[i]
		out[i] = failedUpdateResponse{
			GardenDOI:     r.DOI,
			OperationType: string(r.Type),
			ErrorMessage:  r.ErrorMessage,
			RetryCount:    r.RetryCount,
			Exhausted:     r.Exhausted(maxRetries),
			LastAttempt:   r.LastAttempt,
		}
	}
	return out
}

// --- Health ---

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
