package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/syssam/lingominer"
	"github.com/syssam/lingominer/template"
)

// FieldState is one resolved cell of a run: the field kind and its value.
// The value is the literal text for text fields and an opaque blob-store
// key for audio and image fields. The JSON form is the persisted card
// content format.
type FieldState struct {
	Kind  template.FieldKind `json:"type"`
	Value string             `json:"value"`
}

// cell is a single-assignment slot. Put stores the value and closes done
// exactly once; any number of Gets block on done and observe the same value.
type cell struct {
	kind template.FieldKind
	done chan struct{}

	mu       sync.Mutex
	value    string
	resolved bool
}

func (c *cell) put(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved {
		return &lingominer.DoubleAssignError{Field: name}
	}
	c.value = value
	c.resolved = true
	close(c.done)
	return nil
}

// Context is the run-scoped store wiring generations together. Cells are
// declared before launch; during a run the cell map is read-only and each
// cell serializes its own writes, so a Context is safe for concurrent use
// by all tasks of one run.
type Context struct {
	mu    sync.Mutex
	cells map[string]*cell
	seeds map[string]struct{}
}

// NewContext creates a run context with the given seed values. Seed cells
// are resolved at construction with kind text.
func NewContext(seeds map[string]string) *Context {
	c := &Context{
		cells: make(map[string]*cell, len(seeds)),
		seeds: make(map[string]struct{}, len(seeds)),
	}
	for name, value := range seeds {
		sc := &cell{kind: template.KindText, done: make(chan struct{})}
		sc.value = value
		sc.resolved = true
		close(sc.done)
		c.cells[name] = sc
		c.seeds[name] = struct{}{}
	}
	return c
}

// Declare creates an unresolved cell for a generation output. Declaring the
// same name twice is idempotent when the kind matches and an error
// otherwise. Declaring over a resolved cell indicates a template-validation
// bug.
func (c *Context) Declare(name string, kind template.FieldKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.cells[name]; ok {
		if existing.resolved {
			return &lingominer.DoubleAssignError{Field: name}
		}
		if existing.kind != kind {
			return lingominer.NewValidationError("field", name,
				fmt.Sprintf("declared twice with kinds %q and %q", existing.kind, kind))
		}
		return nil
	}
	c.cells[name] = &cell{kind: kind, done: make(chan struct{})}
	return nil
}

// Put resolves a cell exactly once. A second Put on the same name fails
// with a DoubleAssignError.
func (c *Context) Put(name, value string) error {
	cl, err := c.lookup(name)
	if err != nil {
		return err
	}
	return cl.put(name, value)
}

// Get returns the value of a cell, suspending until it is resolved or the
// run is cancelled. A deadline expiry surfaces as ErrTimeout and any other
// cancellation as ErrCancelled.
func (c *Context) Get(ctx context.Context, name string) (string, error) {
	cl, err := c.lookup(name)
	if err != nil {
		return "", err
	}
	select {
	case <-cl.done:
		cl.mu.Lock()
		defer cl.mu.Unlock()
		return cl.value, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("waiting for field %q: %w", name, lingominer.ErrTimeout)
		}
		return "", fmt.Errorf("waiting for field %q: %w", name, lingominer.ErrCancelled)
	}
}

// SeedNames returns the names of the seed cells supplied at construction.
func (c *Context) SeedNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.seeds))
	for name := range c.seeds {
		names = append(names, name)
	}
	return names
}

// Kind returns the declared kind of a cell.
func (c *Context) Kind(name string) (template.FieldKind, error) {
	cl, err := c.lookup(name)
	if err != nil {
		return "", err
	}
	return cl.kind, nil
}

// Resolved reports whether the named cell has a value.
func (c *Context) Resolved(name string) bool {
	cl, err := c.lookup(name)
	if err != nil {
		return false
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.resolved
}

// Dump returns a snapshot of all resolved cells as field states. With
// excludeSeeds set, seed cells are omitted: the remainder is the persisted
// card content.
func (c *Context) Dump(excludeSeeds bool) map[string]FieldState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]FieldState, len(c.cells))
	for name, cl := range c.cells {
		if excludeSeeds {
			if _, seed := c.seeds[name]; seed {
				continue
			}
		}
		cl.mu.Lock()
		if cl.resolved {
			out[name] = FieldState{Kind: cl.kind, Value: cl.value}
		}
		cl.mu.Unlock()
	}
	return out
}

func (c *Context) lookup(name string) (*cell, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.cells[name]
	if !ok {
		return nil, lingominer.NewNotFoundErrorWithID("field", name)
	}
	return cl, nil
}
