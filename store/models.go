package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/syssam/lingominer/flow"
)

// TemplateModel is the templates table row.
type TemplateModel struct {
	bun.BaseModel `bun:"table:templates,alias:t"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	Name       string    `bun:"name,notnull"`
	Lang       string    `bun:"lang,notnull"`
	UserID     string    `bun:"user_id"`
	Seeds      []string  `bun:"seeds,type:jsonb"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	ModifiedAt time.Time `bun:"modified_at,nullzero,notnull,default:current_timestamp"`

	Fields      []*FieldModel      `bun:"rel:has-many,join:id=template_id"`
	Generations []*GenerationModel `bun:"rel:has-many,join:id=template_id"`
}

// FieldModel is the fields table row. SourceID points at the producing
// generation, or is null for standalone fields. The (template_id, name)
// constraint backs the per-template name uniqueness invariant against
// concurrent edits.
type FieldModel struct {
	bun.BaseModel `bun:"table:fields,alias:f"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid"`
	TemplateID  uuid.UUID  `bun:"template_id,notnull,type:uuid,unique:fields_template_name"`
	Position    int        `bun:"position,notnull"`
	Name        string     `bun:"name,notnull,unique:fields_template_name"`
	Kind        string     `bun:"kind,notnull"`
	Description string     `bun:"description"`
	SourceID    *uuid.UUID `bun:"source_id,type:uuid"`
}

// GenerationModel is the generations table row. Inputs holds the declared
// input field names as a JSON array, preserving order and seed references.
type GenerationModel struct {
	bun.BaseModel `bun:"table:generations,alias:g"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	TemplateID uuid.UUID `bun:"template_id,notnull,type:uuid,unique:generations_template_name"`
	Position   int       `bun:"position,notnull"`
	Name       string    `bun:"name,notnull,unique:generations_template_name"`
	Method     string    `bun:"method,notnull"`
	Prompt     string    `bun:"prompt"`
	Inputs     []string  `bun:"inputs,type:jsonb"`
}

// CardStatus is the lifecycle state of a card.
type CardStatus string

// Card statuses.
const (
	CardNew      CardStatus = "new"
	CardLearning CardStatus = "learning"
	CardDeleted  CardStatus = "deleted"
)

// Card is the cards table row. Content maps each non-seed field name to its
// kind and value; audio and image values are blob-store keys.
type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c"`

	ID         string                     `bun:"id,pk"`
	UserID     string                     `bun:"user_id,notnull"`
	TemplateID uuid.UUID                  `bun:"template_id,notnull,type:uuid"`
	Status     CardStatus                 `bun:"status,notnull"`
	Paragraph  string                     `bun:"paragraph,notnull"`
	PosStart   int                        `bun:"pos_start,notnull"`
	PosEnd     int                        `bun:"pos_end,notnull"`
	URL        string                     `bun:"url"`
	Content    map[string]flow.FieldState `bun:"content,type:jsonb"`
	CreatedAt  time.Time                  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	ModifiedAt time.Time                  `bun:"modified_at,nullzero,notnull,default:current_timestamp"`
}
