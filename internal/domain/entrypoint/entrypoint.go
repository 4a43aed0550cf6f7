package entrypoint

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/garden-ai/garden-catalog/internal/domain"
)

var doiRegex = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// MaxTitleLength bounds the entrypoint title.
const MaxTitleLength = 512

// Entrypoint is a published function that can belong to several gardens.
type Entrypoint struct {
	ID          int64
	DOI         string
	Title       string
	Description string
	Authors     []string
	Tags        []string
	Year        string
	DOIIsDraft  bool
	OwnerID     uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks field-level invariants.
func (e *Entrypoint) Validate() error {
	if !doiRegex.MatchString(e.DOI) {
		return domain.InvalidRequestf("invalid doi %q", e.DOI)
	}
	if e.Title == "" {
		return domain.InvalidRequestf("title is required")
	}
	if len(e.Title) > MaxTitleLength {
		return domain.InvalidRequestf("title too long (max %d)", MaxTitleLength)
	}
	return nil
}

// OwnedBy reports whether the identity owns the entrypoint.
func (e *Entrypoint) OwnedBy(id uuid.UUID) bool { return e.OwnerID == id }
