package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/syssam/lingominer"
	"github.com/syssam/lingominer/template"
)

// Handler executes one generation. It receives the run context, the
// generation being executed and its resolved input values, and returns one
// value per declared output, keyed by output field name.
type Handler func(ctx context.Context, run *Context, gen *template.Generation, inputs map[string]string) (map[string]string, error)

// Signature declares the shape a generation must have to use a method.
type Signature struct {
	// Prompt requires a non-empty prompt template.
	Prompt bool
	// Output is the kind every declared output must have.
	Output template.FieldKind
	// Single requires exactly one declared output.
	Single bool
}

// Built-in method signatures.
var (
	CompletionSignature = Signature{Prompt: true, Output: template.KindText}
	ToSpeechSignature   = Signature{Prompt: true, Output: template.KindAudio, Single: true}
	ToImageSignature    = Signature{Prompt: true, Output: template.KindImage, Single: true}
)

// Action binds a handler to its declared signature.
type Action struct {
	Handler   Handler
	Signature Signature
}

// Registry is the process-wide method table mapping action names to
// handlers. It is populated at startup and read-only afterwards; the lock
// only guards against racy registration in tests.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRegistry creates an empty action registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register installs a handler under a method name, replacing any previous
// registration.
func (r *Registry) Register(method string, h Handler, sig Signature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[method] = Action{Handler: h, Signature: sig}
}

// Lookup returns the action registered under a method name.
func (r *Registry) Lookup(method string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[method]
	return a, ok
}

// ValidateMethod implements template.MethodValidator: the method must be
// registered, its prompt requirement met, and the declared outputs must
// match the method's output-kind signature.
func (r *Registry) ValidateMethod(method, prompt string, outputs []template.FieldDef) error {
	a, ok := r.Lookup(method)
	if !ok {
		return lingominer.NewValidationError("generation", "", fmt.Sprintf("unknown method %q", method))
	}
	sig := a.Signature
	if sig.Prompt && prompt == "" {
		return lingominer.NewValidationError("generation", "", fmt.Sprintf("method %q requires a prompt", method))
	}
	if sig.Single && len(outputs) != 1 {
		return lingominer.NewValidationError("generation", "",
			fmt.Sprintf("method %q requires exactly one %s output, got %d", method, sig.Output, len(outputs)))
	}
	for _, out := range outputs {
		if out.Kind != sig.Output {
			return lingominer.NewValidationError("generation", "",
				fmt.Sprintf("method %q produces %s outputs, but %q is %s", method, sig.Output, out.Name, out.Kind))
		}
	}
	return nil
}
