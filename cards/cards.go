// Package cards turns a text selection into a stored flashcard: it derives
// the seed fields from the selection, runs the template's flow and persists
// the resulting content.
package cards

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/syssam/lingominer"
	"github.com/syssam/lingominer/flow"
	"github.com/syssam/lingominer/store"
	"github.com/syssam/lingominer/template"
)

// Templates loads template snapshots. *store.Store implements it.
type Templates interface {
	Template(ctx context.Context, id uuid.UUID) (*template.Template, error)
}

// Cards persists finished cards. *store.Store implements it.
type Cards interface {
	CreateCard(ctx context.Context, card *store.Card) error
}

// Runner executes a template against seed values. *flow.Flow implements it.
type Runner interface {
	Run(ctx context.Context, tmpl *template.Template, seeds map[string]string) (map[string]flow.FieldState, error)
}

// Service is the card creation pipeline.
type Service struct {
	templates Templates
	cards     Cards
	runner    Runner
	log       zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a card service.
func NewService(templates Templates, cards Cards, runner Runner, opts ...Option) *Service {
	s := &Service{
		templates: templates,
		cards:     cards,
		runner:    runner,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest describes one card creation: the paragraph, the selected
// byte range within it, and the template to run.
type CreateRequest struct {
	TemplateID uuid.UUID
	UserID     string
	Paragraph  string
	PosStart   int
	PosEnd     int
	URL        string
}

// Create runs the template against the selection and stores the card.
// A failed run leaves no card row; artifacts already uploaded by completed
// audio or image steps are not rolled back.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*store.Card, error) {
	if req.PosStart < 0 || req.PosEnd < req.PosStart || req.PosEnd > len(req.Paragraph) {
		return nil, lingominer.NewValidationError("card", "",
			fmt.Sprintf("selection [%d,%d) out of range", req.PosStart, req.PosEnd))
	}
	tmpl, err := s.templates.Template(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	// Only seeds the template declares are derived and injected; the seed
	// map defines the run's seed set.
	seeds := make(map[string]string, 2)
	for _, name := range tmpl.Seeds() {
		switch name {
		case "paragraph":
			seeds[name] = req.Paragraph
		case "decorated_paragraph":
			seeds[name] = Decorate(req.Paragraph, req.PosStart, req.PosEnd)
		}
	}
	content, err := s.runner.Run(ctx, tmpl, seeds)
	if err != nil {
		s.log.Warn().Err(err).Str("template", tmpl.Name).Msg("card run failed")
		return nil, err
	}

	card := &store.Card{
		UserID:     req.UserID,
		TemplateID: tmpl.ID,
		Paragraph:  req.Paragraph,
		PosStart:   req.PosStart,
		PosEnd:     req.PosEnd,
		URL:        req.URL,
		Content:    content,
	}
	if err := s.cards.CreateCard(ctx, card); err != nil {
		return nil, err
	}
	s.log.Info().Str("card", card.ID).Str("template", tmpl.Name).Msg("card created")
	return card, nil
}

// Decorate marks the selected byte range of the paragraph with @@ markers,
// producing the decorated_paragraph seed value.
func Decorate(paragraph string, start, end int) string {
	return paragraph[:start] + "@@" + paragraph[start:end] + "@@" + paragraph[end:]
}
