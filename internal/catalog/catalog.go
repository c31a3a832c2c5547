// Package catalog loads the immutable event definitions petitions are drawn from.
package catalog

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/rogersf/court-engine/internal/domain"
)

//go:embed events.schema.json
var schemaJSON []byte

// Consequence is a randomised change to one stat, sampled from [MinChange, MaxChange).
type Consequence struct {
	Field     string  `json:"field" yaml:"field"`
	MinChange float64 `json:"minChange" yaml:"minChange"`
	MaxChange float64 `json:"maxChange" yaml:"maxChange"`
}

// Choice is one answer the ruler can give to a petition.
type Choice struct {
	Description  string        `json:"description"`
	Consequences []Consequence `json:"consequences"`
	// Lethal choices retire the petition permanently.
	Lethal bool `json:"lethal,omitempty"`
}

// EventDefinition is a petition as authored in content.
type EventDefinition struct {
	Character   string   `json:"character"`
	Description string   `json:"description"`
	Choices     []Choice `json:"choices"`
}

type document struct {
	Events []EventDefinition `json:"events"`
}

// Catalog is the read-only set of loaded event definitions.
type Catalog struct {
	events []*EventDefinition
	digest string
}

// Events returns the loaded definitions in load order.
func (c *Catalog) Events() []*EventDefinition {
	out := make([]*EventDefinition, len(c.events))
	copy(out, c.events)
	return out
}

// Len returns the number of loaded definitions.
func (c *Catalog) Len() int { return len(c.events) }

// Digest is a sha256 over the raw source documents.
func (c *Catalog) Digest() string { return c.digest }

// CatalogError reports a source document that could not be loaded.
type CatalogError struct {
	Doc string
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog document %s: %v", e.Doc, e.Err)
}

// Unwrap exposes both the cause and domain.ErrCatalogInvalid to errors.Is.
func (e *CatalogError) Unwrap() []error {
	return []error{domain.ErrCatalogInvalid, e.Err}
}

// Source is a named raw document.
type Source struct {
	Name string
	Data []byte
}

// Load parses raw documents, named by their position.
func Load(docs ...[]byte) (*Catalog, error) {
	sources := make([]Source, len(docs))
	for i, d := range docs {
		sources[i] = Source{Name: fmt.Sprintf("#%d", i), Data: d}
	}
	return LoadSources(sources)
}

// LoadSources validates and decodes every source and concatenates their events.
// Duplicate definitions are kept as independent copies.
func LoadSources(sources []Source) (*Catalog, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	c := &Catalog{}
	h := sha256.New()
	for _, src := range sources {
		defs, err := decode(schema, src.Data)
		if err != nil {
			return nil, &CatalogError{Doc: src.Name, Err: err}
		}
		for i := range defs {
			c.events = append(c.events, &defs[i])
		}
		h.Write(src.Data)
	}
	if len(c.events) == 0 {
		return nil, &CatalogError{Doc: "(all)", Err: domain.ErrCatalogEmpty}
	}
	c.digest = hex.EncodeToString(h.Sum(nil))
	return c, nil
}

// LoadFS loads every *.json file directly under dir, in lexical order.
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, &CatalogError{Doc: dir, Err: err}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	sources := make([]Source, 0, len(names))
	for _, name := range names {
		p := path.Join(dir, name)
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, &CatalogError{Doc: p, Err: err}
		}
		sources = append(sources, Source{Name: p, Data: data})
	}
	return LoadSources(sources)
}

// LoadDir loads every *.json file in a directory on disk.
func LoadDir(dir string) (*Catalog, error) {
	return LoadFS(os.DirFS(dir), ".")
}

func decode(schema *jsonschema.Schema, data []byte) ([]EventDefinition, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return doc.Events, nil
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("events.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add event schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile("events.schema.json")
	})
	return schema, schemaErr
}
