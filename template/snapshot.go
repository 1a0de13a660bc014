package template

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/syssam/lingominer"
)

// Snapshot is the flat, storage-friendly form of a template. Fields and
// generations reference each other by ID and name instead of pointers.
type Snapshot struct {
	ID     uuid.UUID
	Name   string
	Lang   Lang
	UserID string
	Seeds  []string

	Fields      []FieldSnapshot
	Generations []GenerationSnapshot
}

// FieldSnapshot is the flat form of a field.
type FieldSnapshot struct {
	ID          uuid.UUID
	Name        string
	Kind        FieldKind
	Description string
	Source      uuid.UUID // producing generation, or uuid.Nil
}

// GenerationSnapshot is the flat form of a generation. Outputs are resolved
// against the snapshot's fields by source ID.
type GenerationSnapshot struct {
	ID     uuid.UUID
	Name   string
	Method string
	Prompt string
	Inputs []string
}

// Snapshot returns the flat form of the template.
func (t *Template) Snapshot() Snapshot {
	snap := Snapshot{
		ID:     t.ID,
		Name:   t.Name,
		Lang:   t.Lang,
		UserID: t.UserID,
		Seeds:  slices.Clone(t.seeds),
	}
	for _, f := range t.Fields() {
		snap.Fields = append(snap.Fields, FieldSnapshot{
			ID:          f.ID,
			Name:        f.Name,
			Kind:        f.Kind,
			Description: f.Description,
			Source:      f.Source,
		})
	}
	for _, g := range t.generations {
		snap.Generations = append(snap.Generations, GenerationSnapshot{
			ID:     g.ID,
			Name:   g.Name,
			Method: g.Method,
			Prompt: g.Prompt,
			Inputs: slices.Clone(g.Inputs),
		})
	}
	return snap
}

// FromSnapshot rebuilds a template from its flat form, preserving all
// identifiers, and validates the result.
func FromSnapshot(snap Snapshot, opts ...Option) (*Template, error) {
	t, err := New(snap.Name, snap.Lang, opts...)
	if err != nil {
		return nil, err
	}
	if snap.ID != uuid.Nil {
		t.ID = snap.ID
	}
	if snap.UserID != "" {
		t.UserID = snap.UserID
	}
	if len(snap.Seeds) > 0 {
		t.seeds = slices.Clone(snap.Seeds)
	}
	for _, fs := range snap.Fields {
		if _, ok := t.fields[fs.Name]; ok {
			return nil, lingominer.NewValidationError("field", fs.Name, "name already in use")
		}
		f := &Field{
			ID:          fs.ID,
			Name:        fs.Name,
			Kind:        fs.Kind,
			Description: fs.Description,
			Source:      fs.Source,
		}
		t.fields[f.Name] = f
		t.fieldOrder = append(t.fieldOrder, f.Name)
	}
	for _, gs := range snap.Generations {
		g := &Generation{
			ID:     gs.ID,
			Name:   gs.Name,
			Method: gs.Method,
			Prompt: gs.Prompt,
			Inputs: slices.Clone(gs.Inputs),
		}
		for _, name := range t.fieldOrder {
			if f := t.fields[name]; f.Source == g.ID {
				g.Outputs = append(g.Outputs, f)
			}
		}
		if len(g.Outputs) == 0 {
			return nil, lingominer.NewValidationError("generation", g.Name,
				fmt.Sprintf("no output fields with source %s", g.ID))
		}
		t.generations = append(t.generations, g)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
