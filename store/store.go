// Package store persists templates, their fields and generations, and the
// cards produced by runs. Template edits are validated in memory against a
// loaded snapshot and committed inside one transaction, so partial failures
// leave no residue.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/syssam/lingominer"
	"github.com/syssam/lingominer/template"
)

// Open connects to a PostgreSQL database by DSN.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Store is the persistence layer.
type Store struct {
	db      *bun.DB
	methods template.MethodValidator
	seeds   []string
	log     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMethods attaches the action registry consulted on generation edits.
func WithMethods(v template.MethodValidator) Option {
	return func(s *Store) { s.methods = v }
}

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithSeeds overrides the reserved seed field names for newly created
// templates. Loaded templates keep the seeds they were stored with.
func WithSeeds(names ...string) Option {
	return func(s *Store) { s.seeds = names }
}

// New creates a Store over an open database.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{db: db, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSchema creates all tables if they do not exist yet.
func (s *Store) CreateSchema(ctx context.Context) error {
	models := []any{
		(*TemplateModel)(nil),
		(*FieldModel)(nil),
		(*GenerationModel)(nil),
		(*Card)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}
	return nil
}

// CreateTemplate registers a new empty template.
func (s *Store) CreateTemplate(ctx context.Context, name string, lang template.Lang, userID string) (*template.Template, error) {
	opts := []template.Option{template.WithUser(userID), template.WithMethods(s.methods)}
	if len(s.seeds) > 0 {
		opts = append(opts, template.WithSeeds(s.seeds...))
	}
	tmpl, err := template.New(name, lang, opts...)
	if err != nil {
		return nil, err
	}
	m := &TemplateModel{
		ID:     tmpl.ID,
		Name:   tmpl.Name,
		Lang:   string(tmpl.Lang),
		UserID: tmpl.UserID,
		Seeds:  tmpl.Seeds(),
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return nil, fmt.Errorf("store: insert template: %w", err)
	}
	return tmpl, nil
}

// Template loads one template with all fields and generations.
func (s *Store) Template(ctx context.Context, id uuid.UUID) (*template.Template, error) {
	m := new(TemplateModel)
	err := s.db.NewSelect().Model(m).
		Where("t.id = ?", id).
		Relation("Fields", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("position ASC")
		}).
		Relation("Generations", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("position ASC")
		}).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lingominer.NewNotFoundErrorWithID("template", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: select template: %w", err)
	}
	return s.toDomain(m)
}

// Templates lists all templates of a user, without fields and generations.
func (s *Store) Templates(ctx context.Context, userID string) ([]Summary, error) {
	var models []TemplateModel
	q := s.db.NewSelect().Model(&models).Order("created_at ASC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("store: list templates: %w", err)
	}
	out := make([]Summary, len(models))
	for i, m := range models {
		out[i] = Summary{ID: m.ID, Name: m.Name, Lang: template.Lang(m.Lang), UserID: m.UserID}
	}
	return out, nil
}

// Summary is a template listing entry.
type Summary struct {
	ID     uuid.UUID
	Name   string
	Lang   template.Lang
	UserID string
}

// DeleteTemplate removes a template with its fields and generations. It
// refuses while any card still references the template; the count runs
// inside the delete transaction, so a card inserted concurrently cannot be
// orphaned. Input edges are cleared first, then fields, then generations,
// then the template row.
func (s *Store) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Template(ctx, id); err != nil {
		return err
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		n, err := tx.NewSelect().Model((*Card)(nil)).
			Where("template_id = ?", id).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("store: count cards: %w", err)
		}
		if n > 0 {
			return lingominer.NewConflictError("template", id.String(), fmt.Sprintf("%d card(s) still reference it", n))
		}
		if _, err := tx.NewUpdate().Model((*GenerationModel)(nil)).
			Set("inputs = '[]'::jsonb").
			Where("template_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("store: clear generation inputs: %w", err)
		}
		if _, err := tx.NewDelete().Model((*FieldModel)(nil)).
			Where("template_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("store: delete fields: %w", err)
		}
		if _, err := tx.NewDelete().Model((*GenerationModel)(nil)).
			Where("template_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("store: delete generations: %w", err)
		}
		if _, err := tx.NewDelete().Model((*TemplateModel)(nil)).
			Where("id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("store: delete template: %w", err)
		}
		return nil
	})
}

// AddField registers a standalone field.
func (s *Store) AddField(ctx context.Context, templateID uuid.UUID, def template.FieldDef) (*template.Field, error) {
	tmpl, err := s.Template(ctx, templateID)
	if err != nil {
		return nil, err
	}
	f, err := tmpl.AddField(def)
	if err != nil {
		return nil, err
	}
	m := &FieldModel{
		ID:          f.ID,
		TemplateID:  templateID,
		Position:    fieldPosition(tmpl, f.Name),
		Name:        f.Name,
		Kind:        string(f.Kind),
		Description: f.Description,
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return nil, fmt.Errorf("store: insert field: %w", err)
	}
	return f, nil
}

// UpdateField mutates a field's description or kind.
func (s *Store) UpdateField(ctx context.Context, templateID uuid.UUID, name string, upd template.FieldUpdate) (*template.Field, error) {
	tmpl, err := s.Template(ctx, templateID)
	if err != nil {
		return nil, err
	}
	f, err := tmpl.UpdateField(name, upd)
	if err != nil {
		return nil, err
	}
	_, err = s.db.NewUpdate().Model((*FieldModel)(nil)).
		Set("kind = ?", string(f.Kind)).
		Set("description = ?", f.Description).
		Where("template_id = ? AND name = ?", templateID, name).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: update field: %w", err)
	}
	return f, nil
}

// DeleteField removes a standalone unreferenced field.
func (s *Store) DeleteField(ctx context.Context, templateID uuid.UUID, name string) error {
	tmpl, err := s.Template(ctx, templateID)
	if err != nil {
		return err
	}
	if err := tmpl.DeleteField(name); err != nil {
		return err
	}
	if _, err := s.db.NewDelete().Model((*FieldModel)(nil)).
		Where("template_id = ? AND name = ?", templateID, name).
		Exec(ctx); err != nil {
		return fmt.Errorf("store: delete field: %w", err)
	}
	return nil
}

// AddGeneration appends a generation, creating its output fields in the
// same transaction.
func (s *Store) AddGeneration(ctx context.Context, templateID uuid.UUID, def template.GenerationDef) (*template.Generation, error) {
	tmpl, err := s.Template(ctx, templateID)
	if err != nil {
		return nil, err
	}
	position := len(tmpl.Generations())
	gen, err := tmpl.AddGeneration(def)
	if err != nil {
		return nil, err
	}
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		gm := &GenerationModel{
			ID:         gen.ID,
			TemplateID: templateID,
			Position:   position,
			Name:       gen.Name,
			Method:     gen.Method,
			Prompt:     gen.Prompt,
			Inputs:     gen.Inputs,
		}
		if _, err := tx.NewInsert().Model(gm).Exec(ctx); err != nil {
			return fmt.Errorf("store: insert generation: %w", err)
		}
		for _, out := range gen.Outputs {
			sourceID := gen.ID
			fm := &FieldModel{
				ID:          out.ID,
				TemplateID:  templateID,
				Position:    fieldPosition(tmpl, out.Name),
				Name:        out.Name,
				Kind:        string(out.Kind),
				Description: out.Description,
				SourceID:    &sourceID,
			}
			if _, err := tx.NewInsert().Model(fm).Exec(ctx); err != nil {
				return fmt.Errorf("store: insert output field: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return gen, nil
}

// UpdateGeneration mutates a generation's prompt, inputs or method.
func (s *Store) UpdateGeneration(ctx context.Context, templateID uuid.UUID, name string, upd template.GenerationUpdate) (*template.Generation, error) {
	tmpl, err := s.Template(ctx, templateID)
	if err != nil {
		return nil, err
	}
	gen, err := tmpl.UpdateGeneration(name, upd)
	if err != nil {
		return nil, err
	}
	_, err = s.db.NewUpdate().Model(&GenerationModel{
		ID:     gen.ID,
		Method: gen.Method,
		Prompt: gen.Prompt,
		Inputs: gen.Inputs,
	}).
		Column("method", "prompt", "inputs").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: update generation: %w", err)
	}
	return gen, nil
}

// DeleteGeneration removes a generation and its output fields in one
// transaction.
func (s *Store) DeleteGeneration(ctx context.Context, templateID uuid.UUID, name string) error {
	tmpl, err := s.Template(ctx, templateID)
	if err != nil {
		return err
	}
	gen, err := tmpl.Generation(name)
	if err != nil {
		return err
	}
	if err := tmpl.DeleteGeneration(name); err != nil {
		return err
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*FieldModel)(nil)).
			Where("template_id = ? AND source_id = ?", templateID, gen.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("store: delete output fields: %w", err)
		}
		if _, err := tx.NewDelete().Model((*GenerationModel)(nil)).
			Where("id = ?", gen.ID).Exec(ctx); err != nil {
			return fmt.Errorf("store: delete generation: %w", err)
		}
		return nil
	})
}

// CreateCard inserts a card, filling the identifier and status defaults.
func (s *Store) CreateCard(ctx context.Context, card *Card) error {
	if card.ID == "" {
		card.ID = fmt.Sprintf("card_%x", [16]byte(uuid.New()))
	}
	if card.Status == "" {
		card.Status = CardNew
	}
	if _, err := s.db.NewInsert().Model(card).Exec(ctx); err != nil {
		return fmt.Errorf("store: insert card: %w", err)
	}
	s.log.Debug().Str("card", card.ID).Msg("card created")
	return nil
}

// CardByID loads one card.
func (s *Store) CardByID(ctx context.Context, id string) (*Card, error) {
	card := new(Card)
	err := s.db.NewSelect().Model(card).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lingominer.NewNotFoundErrorWithID("card", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: select card: %w", err)
	}
	return card, nil
}

// Cards lists cards, optionally filtered by template.
func (s *Store) Cards(ctx context.Context, templateID uuid.UUID) ([]Card, error) {
	var cards []Card
	q := s.db.NewSelect().Model(&cards).Order("created_at ASC")
	if templateID != uuid.Nil {
		q = q.Where("template_id = ?", templateID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("store: list cards: %w", err)
	}
	return cards, nil
}

// DeleteCard removes one card.
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*Card)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: delete card: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return lingominer.NewNotFoundErrorWithID("card", id)
	}
	return nil
}

// CountCards returns the number of cards referencing a template.
func (s *Store) CountCards(ctx context.Context, templateID uuid.UUID) (int, error) {
	n, err := s.db.NewSelect().Model((*Card)(nil)).
		Where("template_id = ?", templateID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: count cards: %w", err)
	}
	return n, nil
}

// toDomain rebuilds the in-memory template from its rows.
func (s *Store) toDomain(m *TemplateModel) (*template.Template, error) {
	snap := template.Snapshot{
		ID:     m.ID,
		Name:   m.Name,
		Lang:   template.Lang(m.Lang),
		UserID: m.UserID,
		Seeds:  m.Seeds,
	}
	for _, f := range m.Fields {
		fs := template.FieldSnapshot{
			ID:          f.ID,
			Name:        f.Name,
			Kind:        template.FieldKind(f.Kind),
			Description: f.Description,
		}
		if f.SourceID != nil {
			fs.Source = *f.SourceID
		}
		snap.Fields = append(snap.Fields, fs)
	}
	for _, g := range m.Generations {
		snap.Generations = append(snap.Generations, template.GenerationSnapshot{
			ID:     g.ID,
			Name:   g.Name,
			Method: g.Method,
			Prompt: g.Prompt,
			Inputs: g.Inputs,
		})
	}
	return template.FromSnapshot(snap, template.WithMethods(s.methods))
}

// fieldPosition returns the index of a field in the template's listing
// order.
func fieldPosition(tmpl *template.Template, name string) int {
	for i, f := range tmpl.Fields() {
		if f.Name == name {
			return i
		}
	}
	return len(tmpl.Fields())
}
