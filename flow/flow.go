package flow

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/lingominer"
	"github.com/syssam/lingominer/template"
)

// DefaultTimeout bounds the wall time of one run unless overridden.
const DefaultTimeout = 30 * time.Second

// Flow executes template runs: it schedules every generation concurrently,
// wires them together through a run Context, enforces the run-wide timeout
// and propagates the first failure.
type Flow struct {
	registry *Registry
	timeout  time.Duration
	log      zerolog.Logger
}

// Option configures a Flow.
type Option func(*Flow)

// WithTimeout sets the run-wide wall-time bound. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Flow) { f.timeout = d }
}

// WithLogger sets the flow logger.
func WithLogger(log zerolog.Logger) Option {
	return func(f *Flow) { f.log = log }
}

// New creates a Flow over the given action registry.
func New(registry *Registry, opts ...Option) *Flow {
	f := &Flow{
		registry: registry,
		timeout:  DefaultTimeout,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run executes one template against one set of seed values and returns the
// derived content: the resolved non-seed fields. The seed map defines the
// run's seed set; a generation referencing an unsupplied seed fails fast
// instead of suspending. The template is cloned at launch, so concurrent
// edits do not affect the run.
//
// All generations are scheduled at once; each suspends on its unresolved
// inputs and resumes when the producing generation writes them. The first
// failing generation cancels the rest and becomes the run error; a deadline
// expiry surfaces as ErrTimeout.
func (f *Flow) Run(ctx context.Context, tmpl *template.Template, seeds map[string]string) (map[string]FieldState, error) {
	tmpl = tmpl.Clone()
	if err := f.validate(tmpl); err != nil {
		return nil, err
	}

	run := NewContext(seeds)
	for _, gen := range tmpl.Generations() {
		for _, out := range gen.Outputs {
			if err := run.Declare(out.Name, out.Kind); err != nil {
				return nil, err
			}
		}
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, gen := range tmpl.Generations() {
		gen := gen
		g.Go(func() error {
			if err := f.runGeneration(gctx, run, gen); err != nil {
				f.log.Warn().Err(err).Str("generation", gen.Name).Msg("generation failed")
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if lingominer.IsTimeout(err) || ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("flow: run of template %q timed out after %s: %w", tmpl.Name, f.timeout, lingominer.ErrTimeout)
		}
		return nil, err
	}

	f.log.Debug().
		Str("template", tmpl.Name).
		Dur("elapsed", time.Since(start)).
		Msg("run completed")
	return run.Dump(true), nil
}

// runGeneration executes one task: await inputs, invoke the action, write
// outputs. A cancelled task returns without writing.
func (f *Flow) runGeneration(ctx context.Context, run *Context, gen *template.Generation) error {
	action, ok := f.registry.Lookup(gen.Method)
	if !ok {
		return lingominer.NewValidationError("generation", gen.Name, fmt.Sprintf("unknown method %q", gen.Method))
	}

	// Supplied seeds are always part of the inputs map, so prompts may
	// reference them without declaring an input.
	names := slices.Clone(gen.Inputs)
	for _, seed := range run.SeedNames() {
		if !slices.Contains(names, seed) {
			names = append(names, seed)
		}
	}
	inputs := make(map[string]string, len(names))
	for _, name := range names {
		value, err := run.Get(ctx, name)
		if err != nil {
			return fmt.Errorf("generation %q: %w", gen.Name, err)
		}
		inputs[name] = value
	}

	f.log.Debug().Str("generation", gen.Name).Str("method", gen.Method).Msg("generation running")
	outputs, err := action.Handler(ctx, run, gen, inputs)
	if err != nil {
		return fmt.Errorf("generation %q: %w", gen.Name, err)
	}
	if ctx.Err() != nil {
		// The run was cancelled while the backend call was in flight.
		// Discard the result instead of writing it.
		return fmt.Errorf("generation %q: %w", gen.Name, lingominer.ErrCancelled)
	}
	for _, out := range gen.Outputs {
		value, ok := outputs[out.Name]
		if !ok {
			return fmt.Errorf("generation %q: %w", gen.Name, &lingominer.ParseError{Field: out.Name})
		}
		if err := run.Put(out.Name, value); err != nil {
			return fmt.Errorf("generation %q: %w", gen.Name, err)
		}
	}
	f.log.Debug().Str("generation", gen.Name).Msg("generation done")
	return nil
}

// validate re-checks the template against the action registry at run start.
func (f *Flow) validate(tmpl *template.Template) error {
	if err := tmpl.Validate(); err != nil {
		return err
	}
	for _, gen := range tmpl.Generations() {
		if _, ok := f.registry.Lookup(gen.Method); !ok {
			return lingominer.NewValidationError("generation", gen.Name, fmt.Sprintf("unknown method %q", gen.Method))
		}
	}
	return nil
}
