package catalog

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/rogersf/court-engine/internal/domain"
)

func validDoc() string {
	return `{
		"events": [
			{
				"character": "A Farmer",
				"description": "Help me.",
				"choices": [
					{
						"description": "Give gold.",
						"consequences": [
							{"field": "money", "minChange": -10, "maxChange": -10},
							{"field": "love", "minChange": 1, "maxChange": 5}
						]
					},
					{
						"description": "Hang him.",
						"lethal": true,
						"consequences": []
					}
				]
			}
		]
	}`
}

func TestLoad_Valid(t *testing.T) {
	c, err := Load([]byte(validDoc()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	ev := c.Events()[0]
	if ev.Character != "A Farmer" {
		t.Errorf("Character = %q, want A Farmer", ev.Character)
	}
	if len(ev.Choices) != 2 {
		t.Fatalf("Choices = %d, want 2", len(ev.Choices))
	}
	if got := ev.Choices[0].Consequences[0]; got.Field != "money" || got.MinChange != -10 || got.MaxChange != -10 {
		t.Errorf("first consequence = %+v", got)
	}
	if ev.Choices[0].Lethal {
		t.Error("choice 0 should not be lethal")
	}
	if !ev.Choices[1].Lethal {
		t.Error("choice 1 should be lethal")
	}
	if c.Digest() == "" {
		t.Error("Digest should not be empty")
	}
}

func TestLoad_ConcatenatesAndKeepsDuplicates(t *testing.T) {
	c, err := Load([]byte(validDoc()), []byte(validDoc()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	evs := c.Events()
	if evs[0] == evs[1] {
		t.Error("duplicate documents should yield independent definitions")
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"events": [`},
		{"missing events", `{}`},
		{"unknown top-level field", `{"events": [], "extra": 1}`},
		{"missing character", `{"events": [{"description": "d", "choices": [{"description": "c", "consequences": []}]}]}`},
		{"unknown event field", `{"events": [{"character": "c", "description": "d", "mood": "sad", "choices": [{"description": "c", "consequences": []}]}]}`},
		{"no choices", `{"events": [{"character": "c", "description": "d", "choices": []}]}`},
		{"missing maxChange", `{"events": [{"character": "c", "description": "d", "choices": [{"description": "c", "consequences": [{"field": "love", "minChange": 1}]}]}]}`},
		{"string range", `{"events": [{"character": "c", "description": "d", "choices": [{"description": "c", "consequences": [{"field": "love", "minChange": "1", "maxChange": 2}]}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(validDoc()), []byte(tt.doc))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var ce *CatalogError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *CatalogError, got %T", err)
			}
			if ce.Doc != "#1" {
				t.Errorf("Doc = %q, want #1", ce.Doc)
			}
			if !errors.Is(err, domain.ErrCatalogInvalid) {
				t.Errorf("expected errors.Is ErrCatalogInvalid, got %v", err)
			}
		})
	}
}

func TestLoad_EmptyCatalog(t *testing.T) {
	_, err := Load([]byte(`{"events": []}`))
	if !errors.Is(err, domain.ErrCatalogEmpty) {
		t.Fatalf("expected ErrCatalogEmpty, got %v", err)
	}
}

func TestLoad_UnknownFieldIdentifierIsNotALoadError(t *testing.T) {
	doc := `{"events": [{"character": "c", "description": "d", "choices": [{"description": "c", "consequences": [{"field": "piety", "minChange": 1, "maxChange": 1}]}]}]}`
	if _, err := Load([]byte(doc)); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoadFS_ReadsJSONInLexicalOrder(t *testing.T) {
	second := `{"events": [{"character": "Second", "description": "", "choices": [{"description": "ok", "consequences": []}]}]}`
	first := `{"events": [{"character": "First", "description": "", "choices": [{"description": "ok", "consequences": []}]}]}`
	fsys := fstest.MapFS{
		"events/b.json":     {Data: []byte(second)},
		"events/a.json":     {Data: []byte(first)},
		"events/readme.txt": {Data: []byte("ignored")},
	}

	c, err := LoadFS(fsys, "events")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	evs := c.Events()
	if len(evs) != 2 {
		t.Fatalf("Len = %d, want 2", len(evs))
	}
	if evs[0].Character != "First" || evs[1].Character != "Second" {
		t.Errorf("order = %q, %q", evs[0].Character, evs[1].Character)
	}
}

func TestLoadFS_NamesFailingFile(t *testing.T) {
	fsys := fstest.MapFS{
		"events/bad.json": {Data: []byte(`{"events": 3}`)},
	}
	_, err := LoadFS(fsys, "events")
	var ce *CatalogError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CatalogError, got %v", err)
	}
	if ce.Doc != "events/bad.json" {
		t.Errorf("Doc = %q, want events/bad.json", ce.Doc)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	if _, err := LoadDir("/nonexistent/events"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
