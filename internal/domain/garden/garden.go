package garden

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/garden-ai/garden-catalog/internal/domain"
	"github.com/garden-ai/garden-catalog/internal/domain/entrypoint"
)

var (
	doiRegex  = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)
	yearRegex = regexp.MustCompile(`^\d{4}$`)
)

// Field size limits.
const (
	MaxTitleLength       = 512
	MaxDescriptionLength = 10000
	MaxListItems         = 100
)

// Garden is a curated, citable collection of entrypoints.
type Garden struct {
	ID           int64
	DOI          string
	Title        string
	Description  string
	Authors      []string
	Contributors []string
	Tags         []string
	Year         string
	Language     string
	Version      string
	DOIIsDraft   bool
	IsArchived   bool
	OwnerID      uuid.UUID

	// EntrypointDOIs is the association requested on create/replace.
	EntrypointDOIs []string
	// Entrypoints is populated on reads.
	Entrypoints []entrypoint.Entrypoint

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateDOI checks the DOI syntax (10.<registrant>/<suffix>).
func ValidateDOI(doi string) error {
	if !doiRegex.MatchString(doi) {
		return domain.InvalidRequestf("invalid doi %q", doi)
	}
	return nil
}

// Validate checks field-level invariants of a garden about to be written.
func (g *Garden) Validate() error {
	if err := ValidateDOI(g.DOI); err != nil {
		return err
	}
	if g.Title == "" {
		return domain.InvalidRequestf("title is required")
	}
	if len(g.Title) > MaxTitleLength {
		return domain.InvalidRequestf("title too long (max %d)", MaxTitleLength)
	}
	if len(g.Description) > MaxDescriptionLength {
		return domain.InvalidRequestf("description too long (max %d)", MaxDescriptionLength)
	}
	if g.Year != "" && !yearRegex.MatchString(g.Year) {
		return domain.InvalidRequestf("year must have four digits, got %q", g.Year)
	}
	for name, list := range map[string][]string{
		"authors":      g.Authors,
		"contributors": g.Contributors,
		"tags":         g.Tags,
		"entrypoints":  g.EntrypointDOIs,
	} {
		if len(list) > MaxListItems {
			return domain.InvalidRequestf("too many %s (max %d)", name, MaxListItems)
		}
	}
	for _, doi := range g.EntrypointDOIs {
		if err := ValidateDOI(doi); err != nil {
			return err
		}
	}
	return nil
}

// CheckTransition enforces the write rules between the stored garden and its replacement.
func CheckTransition(current, next *Garden) error {
	if current.DOI != next.DOI {
		return domain.InvalidRequestf("doi is immutable: %q", current.DOI)
	}
	if !current.DOIIsDraft && next.DOIIsDraft {
		return fmt.Errorf("%s: %w", current.DOI, domain.ErrInvalidDraftTransition)
	}
	return nil
}

// OwnedBy reports whether the identity owns the garden.
func (g *Garden) OwnedBy(id uuid.UUID) bool { return g.OwnerID == id }

// Patch holds a partial update; nil fields are left unchanged.
type Patch struct {
	Title          *string
	Description    *string
	Authors        *[]string
	Contributors   *[]string
	Tags           *[]string
	Year           *string
	Language       *string
	Version        *string
	DOIIsDraft     *bool
	IsArchived     *bool
	EntrypointDOIs *[]string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Authors == nil &&
		p.Contributors == nil && p.Tags == nil && p.Year == nil &&
		p.Language == nil && p.Version == nil && p.DOIIsDraft == nil &&
		p.IsArchived == nil && p.EntrypointDOIs == nil
}

// Apply returns a copy of g with the patch applied.
func (p Patch) Apply(g Garden) Garden {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Authors != nil {
		g.Authors = append([]string(nil), (*p.Authors)...)
	}
	if p.Contributors != nil {
		g.Contributors = append([]string(nil), (*p.Contributors)...)
	}
	if p.Tags != nil {
		g.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Year != nil {
		g.Year = *p.Year
	}
	if p.Language != nil {
		g.Language = *p.Language
	}
	if p.Version != nil {
		g.Version = *p.Version
	}
	if p.DOIIsDraft != nil {
		g.DOIIsDraft = *p.DOIIsDraft
	}
	if p.IsArchived != nil {
		g.IsArchived = *p.IsArchived
	}
	if p.EntrypointDOIs != nil {
		g.EntrypointDOIs = append([]string(nil), (*p.EntrypointDOIs)...)
	} else {
		g.EntrypointDOIs = entrypointDOIs(g.Entrypoints)
	}
	return g
}

func entrypointDOIs(eps []entrypoint.Entrypoint) []string {
	dois := make([]string, 0, len(eps))
	for i := range eps {
		dois = append(dois, eps[i].DOI)
	}
	return dois
}
