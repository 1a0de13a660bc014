package lingominer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrValidation is returned when a template edit or run launch fails validation.
	ErrValidation = errors.New("lingominer: validation failed")

	// ErrConflict is returned when a delete operation targets an entity
	// that is still referenced by others.
	ErrConflict = errors.New("lingominer: conflict")

	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("lingominer: entity not found")

	// ErrRender is returned when prompt rendering hits a placeholder
	// without a corresponding input value.
	ErrRender = errors.New("lingominer: render failed")

	// ErrBackend is returned when an action handler's backend call fails.
	ErrBackend = errors.New("lingominer: backend failed")

	// ErrParse is returned when a completion response is not a valid JSON
	// object or lacks a declared output key.
	ErrParse = errors.New("lingominer: parse failed")

	// ErrDoubleAssign is returned when a run context cell is resolved twice.
	// It indicates a template-validation bug rather than a user error.
	ErrDoubleAssign = errors.New("lingominer: field assigned twice")

	// ErrTimeout is returned when a run exceeds its wall-time bound.
	ErrTimeout = errors.New("lingominer: run timed out")

	// ErrCancelled is returned by suspended reads released by run cancellation.
	ErrCancelled = errors.New("lingominer: run cancelled")
)

// ValidationError reports an invalid template edit or run launch.
// Missing carries the input or placeholder names that could not be resolved.
type ValidationError struct {
	Entity  string   // "template", "generation" or "field"
	Name    string   // Entity name, if known
	Missing []string // Unresolvable names, if any
	Message string
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("lingominer: invalid ")
	if e.Entity != "" {
		b.WriteString(e.Entity)
	} else {
		b.WriteString("entity")
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing [%s]", strings.Join(e.Missing, ", "))
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for ValidationError.
func (e *ValidationError) Is(err error) bool {
	return err == ErrValidation
}

// NewValidationError returns a new ValidationError.
func NewValidationError(entity, name, message string) *ValidationError {
	return &ValidationError{Entity: entity, Name: name, Message: message}
}

// NewMissingError returns a ValidationError for unresolvable names.
func NewMissingError(entity, name string, missing []string) *ValidationError {
	return &ValidationError{Entity: entity, Name: name, Missing: missing, Message: "unresolved references"}
}

// IsValidation returns true if the error is a ValidationError.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e) || errors.Is(err, ErrValidation)
}

// ConflictError reports a delete operation rejected because of live references.
type ConflictError struct {
	Entity  string
	Name    string
	Message string
}

// Error returns the error string.
func (e *ConflictError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("lingominer: %s %q cannot be deleted: %s", e.Entity, e.Name, e.Message)
	}
	return fmt.Sprintf("lingominer: %s cannot be deleted: %s", e.Entity, e.Message)
}

// Is reports whether the target matches the sentinel error for ConflictError.
func (e *ConflictError) Is(err error) bool {
	return err == ErrConflict
}

// NewConflictError returns a new ConflictError.
func NewConflictError(entity, name, message string) *ConflictError {
	return &ConflictError{Entity: entity, Name: name, Message: message}
}

// IsConflict returns true if the error is a ConflictError.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var e *ConflictError
	return errors.As(err, &e) || errors.Is(err, ErrConflict)
}

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the identifier that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("lingominer: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("lingominer: %s not found", e.label)
}

// Is reports whether the target matches the sentinel error for NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the identifier
// that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// RenderError reports a prompt placeholder with no matching input value.
type RenderError struct {
	Placeholder string
	Generation  string
}

// Error returns the error string.
func (e *RenderError) Error() string {
	if e.Generation != "" {
		return fmt.Sprintf("lingominer: rendering %q: no value for placeholder {{%s}}", e.Generation, e.Placeholder)
	}
	return fmt.Sprintf("lingominer: no value for placeholder {{%s}}", e.Placeholder)
}

// Is reports whether the target matches the sentinel error for RenderError.
func (e *RenderError) Is(err error) bool {
	return err == ErrRender
}

// IsRender returns true if the error is a RenderError.
func IsRender(err error) bool {
	if err == nil {
		return false
	}
	var e *RenderError
	return errors.As(err, &e) || errors.Is(err, ErrRender)
}

// BackendError wraps a failure from a completion, speech or image backend.
type BackendError struct {
	Method string // Action method whose backend failed
	Err    error
}

// Error returns the error string.
func (e *BackendError) Error() string {
	return fmt.Sprintf("lingominer: %s backend: %v", e.Method, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the sentinel error for BackendError.
func (e *BackendError) Is(err error) bool {
	return err == ErrBackend
}

// NewBackendError returns a new BackendError.
func NewBackendError(method string, err error) *BackendError {
	return &BackendError{Method: method, Err: err}
}

// IsBackend returns true if the error is a BackendError.
func IsBackend(err error) bool {
	if err == nil {
		return false
	}
	var e *BackendError
	return errors.As(err, &e) || errors.Is(err, ErrBackend)
}

// ParseError reports an invalid completion response: either the body is not
// a JSON object, or a declared output key is absent.
type ParseError struct {
	Field   string // Missing output field, if any
	Message string
	Err     error
}

// Error returns the error string.
func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("lingominer: completion response: missing output %q", e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("lingominer: completion response: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("lingominer: completion response: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the sentinel error for ParseError.
func (e *ParseError) Is(err error) bool {
	return err == ErrParse
}

// IsParse returns true if the error is a ParseError.
func IsParse(err error) bool {
	if err == nil {
		return false
	}
	var e *ParseError
	return errors.As(err, &e) || errors.Is(err, ErrParse)
}

// DoubleAssignError reports a second write to an already-resolved field cell.
type DoubleAssignError struct {
	Field string
}

// Error returns the error string.
func (e *DoubleAssignError) Error() string {
	return fmt.Sprintf("lingominer: field %q assigned twice", e.Field)
}

// Is reports whether the target matches the sentinel error for DoubleAssignError.
func (e *DoubleAssignError) Is(err error) bool {
	return err == ErrDoubleAssign
}

// IsDoubleAssign returns true if the error is a DoubleAssignError.
func IsDoubleAssign(err error) bool {
	if err == nil {
		return false
	}
	var e *DoubleAssignError
	return errors.As(err, &e) || errors.Is(err, ErrDoubleAssign)
}

// IsTimeout returns true if the error reports a run deadline expiry,
// either as ErrTimeout or as the underlying context error.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsCancelled returns true if the error reports cooperative cancellation.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
