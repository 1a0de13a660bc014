package template

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/syssam/lingominer"
)

// AddField registers a standalone field with no producing generation.
// The name must be unique within the template and must not shadow a seed.
func (t *Template) AddField(def FieldDef) (*Field, error) {
	if err := t.checkFieldDef(def); err != nil {
		return nil, err
	}
	f := &Field{
		ID:          uuid.New(),
		Name:        def.Name,
		Kind:        def.Kind,
		Description: def.Description,
	}
	t.fields[f.Name] = f
	t.fieldOrder = append(t.fieldOrder, f.Name)
	return f, nil
}

// UpdateField mutates a field's description or kind. The kind is immutable
// once any generation references the field or a generation produces it.
func (t *Template) UpdateField(name string, upd FieldUpdate) (*Field, error) {
	f, err := t.Field(name)
	if err != nil {
		return nil, err
	}
	if upd.Kind != nil && *upd.Kind != f.Kind {
		if !upd.Kind.Valid() {
			return nil, lingominer.NewValidationError("field", name, fmt.Sprintf("unknown kind %q", *upd.Kind))
		}
		if len(t.ReferencedBy(name)) > 0 {
			return nil, lingominer.NewConflictError("field", name, "kind is immutable while referenced")
		}
		if f.Source != uuid.Nil {
			return nil, lingominer.NewConflictError("field", name, "kind is fixed by the producing generation")
		}
		f.Kind = *upd.Kind
	}
	if upd.Description != nil {
		f.Description = *upd.Description
	}
	return f, nil
}

// DeleteField removes a standalone field. It refuses while any generation
// references the field, and refuses fields owned by a generation: those are
// deleted together with their generation.
func (t *Template) DeleteField(name string) error {
	f, err := t.Field(name)
	if err != nil {
		return err
	}
	if refs := t.ReferencedBy(name); len(refs) > 0 {
		return lingominer.NewConflictError("field", name, fmt.Sprintf("referenced by %d generation(s)", len(refs)))
	}
	if f.Source != uuid.Nil {
		if src := t.source(f.Source); src != nil {
			return lingominer.NewConflictError("field", name, fmt.Sprintf("produced by generation %q", src.Name))
		}
	}
	delete(t.fields, name)
	t.fieldOrder = slices.DeleteFunc(t.fieldOrder, func(n string) bool { return n == name })
	return nil
}

// AddGeneration appends a generation and creates its output fields
// atomically. Every declared input must be a seed or an already registered
// field; every prompt placeholder must resolve to a declared input or a
// seed; output names must not collide with existing fields or seeds.
func (t *Template) AddGeneration(def GenerationDef) (*Generation, error) {
	if def.Name == "" {
		return nil, lingominer.NewValidationError("generation", "", "name is required")
	}
	for _, g := range t.generations {
		if g.Name == def.Name {
			return nil, lingominer.NewValidationError("generation", def.Name, "name already in use")
		}
	}
	if err := t.checkInputs(def.Name, def.Inputs); err != nil {
		return nil, err
	}
	if err := t.checkPlaceholders(def.Name, def.Prompt, def.Inputs); err != nil {
		return nil, err
	}
	if len(def.Outputs) == 0 {
		return nil, lingominer.NewValidationError("generation", def.Name, "at least one output is required")
	}
	declared := make(map[string]struct{}, len(def.Outputs))
	for _, out := range def.Outputs {
		if err := t.checkFieldDef(out); err != nil {
			return nil, err
		}
		if _, ok := declared[out.Name]; ok {
			return nil, lingominer.NewValidationError("generation", def.Name, fmt.Sprintf("duplicate output %q", out.Name))
		}
		declared[out.Name] = struct{}{}
	}
	if t.methods != nil {
		if err := t.methods.ValidateMethod(def.Method, def.Prompt, def.Outputs); err != nil {
			return nil, err
		}
	}

	gen := &Generation{
		ID:     uuid.New(),
		Name:   def.Name,
		Method: def.Method,
		Prompt: def.Prompt,
		Inputs: slices.Clone(def.Inputs),
	}
	for _, out := range def.Outputs {
		f := &Field{
			ID:          uuid.New(),
			Name:        out.Name,
			Kind:        out.Kind,
			Description: out.Description,
			Source:      gen.ID,
		}
		gen.Outputs = append(gen.Outputs, f)
		t.fields[f.Name] = f
		t.fieldOrder = append(t.fieldOrder, f.Name)
	}
	t.generations = append(t.generations, gen)

	// Inputs must pre-exist, so adding a generation cannot close a cycle.
	// The check still runs to keep the invariant explicit.
	if err := t.checkAcyclic(); err != nil {
		t.removeGeneration(gen)
		return nil, err
	}
	return gen, nil
}

// UpdateGeneration mutates a generation's prompt, inputs or method.
// Replaced inputs are revalidated; the (new or existing) prompt's
// placeholders must still resolve; the method may change only when the new
// method's output-kind signature matches the existing outputs.
func (t *Template) UpdateGeneration(name string, upd GenerationUpdate) (*Generation, error) {
	gen, err := t.Generation(name)
	if err != nil {
		return nil, err
	}
	inputs := gen.Inputs
	if upd.Inputs != nil {
		inputs = *upd.Inputs
		if err := t.checkInputs(name, inputs); err != nil {
			return nil, err
		}
	}
	prompt := gen.Prompt
	if upd.Prompt != nil {
		prompt = *upd.Prompt
	}
	if upd.Prompt != nil || upd.Inputs != nil {
		if err := t.checkPlaceholders(name, prompt, inputs); err != nil {
			return nil, err
		}
	}
	method := gen.Method
	if upd.Method != nil && *upd.Method != gen.Method {
		method = *upd.Method
		if t.methods != nil {
			if err := t.methods.ValidateMethod(method, prompt, gen.OutputDefs()); err != nil {
				return nil, err
			}
		}
	}

	if upd.Inputs != nil {
		// Replacing inputs can point at a field produced downstream.
		// Commit tentatively and roll back if a cycle appears.
		prev := gen.Inputs
		gen.Inputs = slices.Clone(inputs)
		if err := t.checkAcyclic(); err != nil {
			gen.Inputs = prev
			return nil, err
		}
	}
	gen.Prompt = prompt
	gen.Method = method
	return gen, nil
}

// DeleteGeneration removes a generation and all of its output fields in one
// step. It refuses while any output is referenced by another generation.
func (t *Template) DeleteGeneration(name string) error {
	gen, err := t.Generation(name)
	if err != nil {
		return err
	}
	for _, out := range gen.Outputs {
		for _, ref := range t.ReferencedBy(out.Name) {
			if ref.ID != gen.ID {
				return lingominer.NewConflictError("generation", name,
					fmt.Sprintf("output %q is referenced by generation %q", out.Name, ref.Name))
			}
		}
	}
	t.removeGeneration(gen)
	return nil
}

// Validate checks the whole template: every generation has at least one
// output, every input and placeholder resolves, every method passes the
// validator, and the dependency graph is acyclic. It is run again at run
// launch against the template snapshot.
func (t *Template) Validate() error {
	for _, g := range t.generations {
		if len(g.Outputs) == 0 {
			return lingominer.NewValidationError("generation", g.Name, "at least one output is required")
		}
		if err := t.checkInputs(g.Name, g.Inputs); err != nil {
			return err
		}
		if err := t.checkPlaceholders(g.Name, g.Prompt, g.Inputs); err != nil {
			return err
		}
		for _, out := range g.Outputs {
			if f, ok := t.fields[out.Name]; !ok || f.Source != g.ID {
				return lingominer.NewValidationError("generation", g.Name,
					fmt.Sprintf("output %q is not registered to this generation", out.Name))
			}
		}
		if t.methods != nil {
			if err := t.methods.ValidateMethod(g.Method, g.Prompt, g.OutputDefs()); err != nil {
				return err
			}
		}
	}
	return t.checkAcyclic()
}

func (t *Template) removeGeneration(gen *Generation) {
	for _, out := range gen.Outputs {
		delete(t.fields, out.Name)
		t.fieldOrder = slices.DeleteFunc(t.fieldOrder, func(n string) bool { return n == out.Name })
	}
	t.generations = slices.DeleteFunc(t.generations, func(g *Generation) bool { return g.ID == gen.ID })
}

func (t *Template) checkFieldDef(def FieldDef) error {
	if def.Name == "" {
		return lingominer.NewValidationError("field", "", "name is required")
	}
	if !def.Kind.Valid() {
		return lingominer.NewValidationError("field", def.Name, fmt.Sprintf("unknown kind %q", def.Kind))
	}
	if _, ok := t.fields[def.Name]; ok {
		return lingominer.NewValidationError("field", def.Name, "name already in use")
	}
	if t.IsSeed(def.Name) {
		return lingominer.NewValidationError("field", def.Name, "name is reserved for a seed field")
	}
	return nil
}

// checkInputs verifies that every input name is a seed or a registered field.
func (t *Template) checkInputs(gen string, inputs []string) error {
	var missing []string
	for _, name := range inputs {
		if t.IsSeed(name) {
			continue
		}
		if _, ok := t.fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return lingominer.NewMissingError("generation", gen, missing)
	}
	return nil
}

// checkPlaceholders verifies that every {{name}} in the prompt resolves to a
// declared input or a seed. Matching is exact: no trimming is applied.
func (t *Template) checkPlaceholders(gen, prompt string, inputs []string) error {
	var missing []string
	for _, name := range Placeholders(prompt) {
		if !t.IsSeed(name) && !slices.Contains(inputs, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return lingominer.NewMissingError("generation", gen, missing)
	}
	return nil
}

// checkAcyclic walks the "generation consumes fields produced by other
// generations" graph and rejects any cycle.
func (t *Template) checkAcyclic() error {
	const (
		white = iota // unvisited
		grey         // on the current path
		black        // done
	)
	color := make(map[uuid.UUID]int, len(t.generations))

	deps := func(g *Generation) []*Generation {
		var out []*Generation
		for _, name := range g.Inputs {
			f, ok := t.fields[name]
			if !ok || f.Source == uuid.Nil {
				continue
			}
			// A generation consuming its own output is a one-node cycle;
			// the grey mark on the current path catches it.
			if src := t.source(f.Source); src != nil {
				out = append(out, src)
			}
		}
		return out
	}

	var visit func(g *Generation) error
	visit = func(g *Generation) error {
		switch color[g.ID] {
		case grey:
			return lingominer.NewValidationError("generation", g.Name, "dependency cycle detected")
		case black:
			return nil
		}
		color[g.ID] = grey
		for _, dep := range deps(g) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[g.ID] = black
		return nil
	}
	for _, g := range t.generations {
		if err := visit(g); err != nil {
			return err
		}
	}
	return nil
}
