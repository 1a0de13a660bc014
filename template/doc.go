// Package template provides the metamodel for card templates: typed fields,
// generations and the dependency edges between them.
//
// # Structure
//
// A Template holds a field registry and a generation catalog:
//
//	type Template struct {
//	    ID          uuid.UUID
//	    Name        string
//	    Lang        Lang          // en, de, jp
//	    fields      map[string]*Field
//	    generations []*Generation
//	}
//
// # Fields
//
// A Field is a named typed slot, unique per template (case-sensitive):
//
//	type Field struct {
//	    Name        string
//	    Kind        FieldKind  // text, audio, image
//	    Description string
//	    Source      uuid.UUID  // producing generation, or uuid.Nil
//	}
//
// Seed fields (by default "paragraph" and "decorated_paragraph") are
// reserved names pre-resolved at run start. They may appear as inputs and
// prompt placeholders without a field entry.
//
// # Generations
//
// A Generation is one step of the template: a method name bound to an
// action handler, an optional prompt, an ordered list of input field names
// and one or more output fields. Output fields are created and deleted
// atomically with their generation.
//
// # Validation
//
// Every editing operation validates before mutating:
//
//   - input names must be seeds or registered fields
//   - prompt placeholders ({{name}}, matched exactly) must resolve to a
//     declared input or a seed
//   - output names must not collide with fields or seeds
//   - the induced generation graph must stay acyclic
//   - referenced or generation-owned fields cannot be deleted, and their
//     kind is immutable
//
// Validate runs the full check again at run launch, so a template loaded
// from storage is verified before execution.
package template
