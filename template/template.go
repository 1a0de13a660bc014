package template

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/syssam/lingominer"
)

// FieldKind is the value kind a field holds: literal text, or an opaque
// blob-store key for audio and image artifacts.
type FieldKind string

// Field kinds.
const (
	KindText  FieldKind = "text"
	KindAudio FieldKind = "audio"
	KindImage FieldKind = "image"
)

// Valid reports whether the kind is one of the known field kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindAudio, KindImage:
		return true
	}
	return false
}

// Lang is a template language code.
type Lang string

// Supported template languages.
const (
	LangEN Lang = "en"
	LangDE Lang = "de"
	LangJP Lang = "jp"
)

// Valid reports whether the language code is supported.
func (l Lang) Valid() bool {
	switch l {
	case LangEN, LangDE, LangJP:
		return true
	}
	return false
}

// DefaultSeeds are the reserved pre-resolved field names shared by all
// templates. They may appear as generation inputs and prompt placeholders
// without an explicit field entry.
var DefaultSeeds = []string{"paragraph", "decorated_paragraph"}

// Field is a named typed slot within one template. A field is either a seed
// surrogate added by hand or the output of exactly one generation.
type Field struct {
	ID          uuid.UUID
	Name        string
	Kind        FieldKind
	Description string

	// Source is the ID of the generation that produces this field,
	// or uuid.Nil when the field has no producer.
	Source uuid.UUID
}

// FieldDef declares a field to be created: an output of a generation,
// or a standalone field added through AddField.
type FieldDef struct {
	Name        string
	Kind        FieldKind
	Description string
}

// FieldUpdate carries the mutable attributes of a field. Nil members are
// left unchanged.
type FieldUpdate struct {
	Description *string
	Kind        *FieldKind
}

// Generation is one step of a template: a node in the dependency graph with
// a method, an optional prompt, ordered input field names and produced
// output fields.
type Generation struct {
	ID      uuid.UUID
	Name    string
	Method  string
	Prompt  string
	Inputs  []string
	Outputs []*Field
}

// OutputDefs returns the declared outputs of the generation as field
// definitions.
func (g *Generation) OutputDefs() []FieldDef {
	defs := make([]FieldDef, len(g.Outputs))
	for i, f := range g.Outputs {
		defs[i] = FieldDef{Name: f.Name, Kind: f.Kind, Description: f.Description}
	}
	return defs
}

// GenerationDef declares a generation to be added to a template.
type GenerationDef struct {
	Name    string
	Method  string
	Prompt  string
	Inputs  []string
	Outputs []FieldDef
}

// GenerationUpdate carries the mutable attributes of a generation.
// Nil members are left unchanged.
type GenerationUpdate struct {
	Prompt *string
	Inputs *[]string
	Method *string
}

// MethodValidator validates a generation's method against the process-wide
// action table: the method must be registered, its prompt requirement met,
// and its declared output kinds must match the method signature.
//
// The flow package's action registry implements this interface.
type MethodValidator interface {
	ValidateMethod(method, prompt string, outputs []FieldDef) error
}

// Template binds a field registry and a generation catalog under one
// identifier and language code. All editing operations validate the
// cross-entity invariants before mutating, so a Template is executable
// at any point of its life.
type Template struct {
	ID     uuid.UUID
	Name   string
	Lang   Lang
	UserID string

	fields      map[string]*Field
	fieldOrder  []string
	generations []*Generation
	seeds       []string
	methods     MethodValidator
}

// Option configures a Template on construction.
type Option func(*Template)

// WithID sets an explicit template ID instead of a fresh one.
func WithID(id uuid.UUID) Option {
	return func(t *Template) { t.ID = id }
}

// WithUser sets the owning principal.
func WithUser(userID string) Option {
	return func(t *Template) { t.UserID = userID }
}

// WithSeeds overrides the reserved seed field names.
func WithSeeds(names ...string) Option {
	return func(t *Template) { t.seeds = slices.Clone(names) }
}

// WithMethods attaches a method validator consulted on every generation
// edit. Without one, only structural invariants are checked and the run
// launch validation catches unregistered methods.
func WithMethods(v MethodValidator) Option {
	return func(t *Template) { t.methods = v }
}

// New creates an empty template.
func New(name string, lang Lang, opts ...Option) (*Template, error) {
	if name == "" {
		return nil, lingominer.NewValidationError("template", "", "name is required")
	}
	if !lang.Valid() {
		return nil, lingominer.NewValidationError("template", name, fmt.Sprintf("unsupported language %q", lang))
	}
	t := &Template{
		ID:     uuid.New(),
		Name:   name,
		Lang:   lang,
		fields: make(map[string]*Field),
		seeds:  slices.Clone(DefaultSeeds),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Seeds returns the reserved seed field names of the template.
func (t *Template) Seeds() []string {
	return slices.Clone(t.seeds)
}

// IsSeed reports whether name is a reserved seed field name.
func (t *Template) IsSeed(name string) bool {
	return slices.Contains(t.seeds, name)
}

// Fields returns all fields in insertion order.
func (t *Template) Fields() []*Field {
	fields := make([]*Field, 0, len(t.fieldOrder))
	for _, name := range t.fieldOrder {
		fields = append(fields, t.fields[name])
	}
	return fields
}

// Field returns the field with the given name.
func (t *Template) Field(name string) (*Field, error) {
	f, ok := t.fields[name]
	if !ok {
		return nil, lingominer.NewNotFoundErrorWithID("field", name)
	}
	return f, nil
}

// Generations returns all generations in insertion order.
func (t *Template) Generations() []*Generation {
	return slices.Clone(t.generations)
}

// Generation returns the generation with the given name.
func (t *Template) Generation(name string) (*Generation, error) {
	for _, g := range t.generations {
		if g.Name == name {
			return g, nil
		}
	}
	return nil, lingominer.NewNotFoundErrorWithID("generation", name)
}

// ReferencedBy returns the generations that consume the named field as an
// input. Name matching is case-sensitive and exact.
func (t *Template) ReferencedBy(name string) []*Generation {
	var refs []*Generation
	for _, g := range t.generations {
		if slices.Contains(g.Inputs, name) {
			refs = append(refs, g)
		}
	}
	return refs
}

// source returns the generation with the given ID, or nil.
func (t *Template) source(id uuid.UUID) *Generation {
	for _, g := range t.generations {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// Clone returns a deep copy of the template. Runs execute against a clone,
// so mid-run edits do not affect an in-flight run.
func (t *Template) Clone() *Template {
	c := &Template{
		ID:         t.ID,
		Name:       t.Name,
		Lang:       t.Lang,
		UserID:     t.UserID,
		fields:     make(map[string]*Field, len(t.fields)),
		fieldOrder: slices.Clone(t.fieldOrder),
		seeds:      slices.Clone(t.seeds),
		methods:    t.methods,
	}
	for name, f := range t.fields {
		cf := *f
		c.fields[name] = &cf
	}
	c.generations = make([]*Generation, len(t.generations))
	for i, g := range t.generations {
		cg := *g
		cg.Inputs = slices.Clone(g.Inputs)
		cg.Outputs = make([]*Field, len(g.Outputs))
		for j, out := range g.Outputs {
			cg.Outputs[j] = c.fields[out.Name]
		}
		c.generations[i] = &cg
	}
	return c
}
