package garden

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/garden-ai/garden-catalog/internal/domain"
	"github.com/garden-ai/garden-catalog/internal/domain/entrypoint"
)

func validGarden() Garden {
	return Garden{
		DOI:     "10.23677/abcd-1234",
		Title:   "Materials models",
		Authors: []string{"Owen"},
		Tags:    []string{"python"},
		Year:    "2023",
	}
}

func TestValidate_OK(t *testing.T) {
	g := validGarden()
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *Garden)
	}{
		{"bad doi", func(g *Garden) { g.DOI = "not-a-doi" }},
		{"missing title", func(g *Garden) { g.Title = "" }},
		{"bad year", func(g *Garden) { g.Year = "23" }},
		{"bad entrypoint doi", func(g *Garden) { g.EntrypointDOIs = []string{"x"} }},
		{"too many tags", func(g *Garden) { g.Tags = make([]string, MaxListItems+1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGarden()
			tt.mutate(&g)
			if err := g.Validate(); !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestCheckTransition(t *testing.T) {
	published := validGarden()
	published.DOIIsDraft = false

	draft := validGarden()
	draft.DOIIsDraft = true

	if err := CheckTransition(&draft, &published); err != nil {
		t.Errorf("draft -> published: unexpected error %v", err)
	}
	if err := CheckTransition(&published, &draft); !errors.Is(err, domain.ErrInvalidDraftTransition) {
		t.Errorf("published -> draft: expected ErrInvalidDraftTransition, got %v", err)
	}

	moved := validGarden()
	moved.DOI = "10.23677/other"
	if err := CheckTransition(&draft, &moved); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("doi change: expected ErrInvalidRequest, got %v", err)
	}
}

func TestPatch_Apply(t *testing.T) {
	g := validGarden()
	g.Entrypoints = []entrypoint.Entrypoint{{DOI: "10.23677/ep-1"}}

	title := "Renamed"
	tags := []string{"chemistry"}
	p := Patch{Title: &title, Tags: &tags}
	if p.IsEmpty() {
		t.Fatal("patch should not be empty")
	}

	out := p.Apply(g)
	if out.Title != "Renamed" {
		t.Errorf("Title = %q", out.Title)
	}
	if len(out.Tags) != 1 || out.Tags[0] != "chemistry" {
		t.Errorf("Tags = %v", out.Tags)
	}
	if len(out.Authors) != 1 || out.Authors[0] != "Owen" {
		t.Errorf("Authors changed: %v", out.Authors)
	}
	if len(out.EntrypointDOIs) != 1 || out.EntrypointDOIs[0] != "10.23677/ep-1" {
		t.Errorf("EntrypointDOIs = %v, want existing association kept", out.EntrypointDOIs)
	}

	tags[0] = "mutated"
	if out.Tags[0] != "chemistry" {
		t.Error("patched slice must be copied")
	}
}

func TestOwnedBy(t *testing.T) {
	owner := uuid.New()
	g := validGarden()
	g.OwnerID = owner
	if !g.OwnedBy(owner) {
		t.Error("expected owner")
	}
	if g.OwnedBy(uuid.New()) {
		t.Error("unexpected owner match")
	}
}
