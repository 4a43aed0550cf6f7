package searchindex

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/garden-ai/garden-catalog/internal/domain/garden"
	"github.com/garden-ai/garden-catalog/internal/domain/principal"
)

type entrypointDocument struct {
	DOI         string   `json:"doi"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Authors     []string `json:"authors"`
	Tags        []string `json:"tags"`
	Year        string   `json:"year,omitempty"`
	DOIIsDraft  bool     `json:"doi_is_draft"`
}

type gardenDocument struct {
	DOI          string               `json:"doi"`
	Title        string               `json:"title"`
	Description  string               `json:"description,omitempty"`
	Authors      []string             `json:"authors"`
	Contributors []string             `json:"contributors"`
	Tags         []string             `json:"tags"`
	Year         string               `json:"year,omitempty"`
	Language     string               `json:"language"`
	Version      string               `json:"version"`
	DOIIsDraft   bool                 `json:"doi_is_draft"`
	IsArchived   bool                 `json:"is_archived"`
	OwnerID      string               `json:"owner_identity_id"`
	Entrypoints  []entrypointDocument `json:"entrypoints"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// FromGarden builds the index entry of a garden. Published gardens are
// public; drafts are visible to their owner only.
func FromGarden(g *garden.Garden) (Entry, error) {
	doc := gardenDocument{
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
		Entrypoints:  make([]entrypointDocument, 0, len(g.Entrypoints)),
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
	for _, e := range g.Entrypoints {
		doc.Entrypoints = append(doc.Entrypoints, entrypointDocument{
			DOI:         e.DOI,
			Title:       e.Title,
			Description: e.Description,
			Authors:     orEmpty(e.Authors),
			Tags:        orEmpty(e.Tags),
			Year:        e.Year,
			DOIIsDraft:  e.DOIIsDraft,
		})
	}

	content, err := json.Marshal(doc)
	if err != nil {
		return Entry{}, fmt.Errorf("encode garden %s: %w", g.DOI, err)
	}

	visible := []string{VisibleToPublic}
	if g.DOIIsDraft {
		visible = []string{principal.IdentityURN(g.OwnerID)}
	}
	return Entry{Subject: g.DOI, VisibleTo: visible, Content: content}, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
