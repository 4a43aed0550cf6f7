package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_GardenProjection(t *testing.T) {
	idx, err := NewIndex("gardens").
		Prefix("garden:").
		Tag("$.visible_to[*]", "visible_to").
		WeightedText("$.content.authors[*]", "authors", 4).
		Text("$.content.title", "title").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(idx.Fields) != 3 {
		t.Fatalf("fields count = %d, want 3", len(idx.Fields))
	}
	if idx.Fields[0].Alias != "visible_to" || idx.Fields[0].Type != IndexFieldTag {
		t.Errorf("field[0] = %+v, want visible_to TAG", idx.Fields[0])
	}
	if idx.Fields[1].TextWeight != 4 {
		t.Errorf("weight = %v, want 4", idx.Fields[1].TextWeight)
	}
	if idx.Fields[2].Type != IndexFieldText || idx.Fields[2].TextWeight != 0 {
		t.Errorf("field[2] = %+v, want unweighted TEXT", idx.Fields[2])
	}
}

func TestIndexBuilder_MultiplePrefixes(t *testing.T) {
	idx, err := NewIndex("multi-idx").
		Prefix("a:", "b:", "c:").
		Tag("x", "").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(idx.Prefixes) != 3 {
		t.Errorf("prefix count = %d, want 3", len(idx.Prefixes))
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder func() (*IndexDefinition, error)
		wantErr string
	}{
		{
			name: "empty name",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("").Tag("x", "").Build()
			},
			wantErr: "index name is required",
		},
		{
			name: "no fields",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Build()
			},
			wantErr: "at least one field",
		},
		{
			name: "negative weight",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").WeightedText("$.t", "t", -1).Build()
			},
			wantErr: "must not be negative",
		},
		{
			name: "invalid characters",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx with spaces").Tag("x", "").Build()
			},
			wantErr: "invalid characters",
		},
		{
			name: "duplicate alias",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Tag("$.a", "x").Text("$.b", "x").Build()
			},
			wantErr: "duplicate field name: x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	for s, want := range map[string]bool{
		"gardens":      true,
		"garden:idx":   true,
		"a-b_c":        true,
		"":             false,
		"with space":   false,
		"slash/inside": false,
	} {
		if got := IsValidIdentifier(s); got != want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", s, got, want)
		}
	}
}
