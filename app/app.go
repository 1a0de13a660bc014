// Package app assembles the service from its configuration: it opens the
// database, builds the backends and blob store, registers the built-in
// actions and wires everything into the card service.
package app

import (
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/syssam/lingominer/backend"
	"github.com/syssam/lingominer/blob"
	"github.com/syssam/lingominer/cards"
	"github.com/syssam/lingominer/config"
	"github.com/syssam/lingominer/flow"
	"github.com/syssam/lingominer/store"
)

// App holds the assembled components. All members are initialised by New
// and read-only afterwards.
type App struct {
	Config   *config.Config
	DB       *bun.DB
	Store    *store.Store
	Registry *flow.Registry
	Flow     *flow.Flow
	Blobs    blob.Store
	Cards    *cards.Service

	log zerolog.Logger
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger shared by all components.
func WithLogger(log zerolog.Logger) Option {
	return func(a *App) { a.log = log }
}

// New builds the full service from configuration. The database connection
// is opened lazily; call Store.CreateSchema before first use on a fresh
// database.
func New(cfg *config.Config, opts ...Option) *App {
	a := &App{Config: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}

	llm := backend.NewOpenAI(backend.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		SpeechModel: cfg.SpeechModel,
		ImageModel:  cfg.ImageModel,
	})
	a.Blobs = blob.NewDisk(cfg.BlobDir)

	a.Registry = flow.NewRegistry()
	flow.RegisterBuiltins(a.Registry, flow.Deps{
		Completion: llm,
		Speech:     llm,
		Image:      llm,
		Blob:       a.Blobs,
		Bucket:     cfg.BlobBucket,
		Voice:      cfg.SpeechVoice,
		Logger:     a.log,
	})
	a.Flow = flow.New(a.Registry,
		flow.WithTimeout(cfg.RunTimeout),
		flow.WithLogger(a.log),
	)

	a.DB = store.Open(cfg.DatabaseURL)
	a.Store = store.New(a.DB,
		store.WithMethods(a.Registry),
		store.WithSeeds(cfg.SeedFields...),
		store.WithLogger(a.log),
	)

	a.Cards = cards.NewService(a.Store, a.Store, a.Flow, cards.WithLogger(a.log))
	return a
}

// Close releases the database connection pool.
func (a *App) Close() error {
	return a.DB.Close()
}
