package lingominer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/lingominer"
)

func TestValidationError(t *testing.T) {
	err := lingominer.NewMissingError("generation", "lemma", []string{"word", "sentence"})
	assert.True(t, errors.Is(err, lingominer.ErrValidation))
	assert.True(t, lingominer.IsValidation(err))
	assert.Contains(t, err.Error(), "lemma")
	assert.Contains(t, err.Error(), "word, sentence")

	wrapped := fmt.Errorf("add generation: %w", err)
	assert.True(t, lingominer.IsValidation(wrapped))
	var ve *lingominer.ValidationError
	assert.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, []string{"word", "sentence"}, ve.Missing)
}

func TestConflictError(t *testing.T) {
	err := lingominer.NewConflictError("field", "word", "referenced by 2 generation(s)")
	assert.True(t, errors.Is(err, lingominer.ErrConflict))
	assert.True(t, lingominer.IsConflict(err))
	assert.False(t, lingominer.IsValidation(err))
}

func TestNotFoundError(t *testing.T) {
	err := lingominer.NewNotFoundErrorWithID("template", "tpl-1")
	assert.True(t, errors.Is(err, lingominer.ErrNotFound))
	assert.True(t, lingominer.IsNotFound(err))
	assert.Equal(t, "template", err.Label())
	assert.Contains(t, err.Error(), "tpl-1")
}

func TestBackendError(t *testing.T) {
	cause := errors.New("connection refused")
	err := lingominer.NewBackendError("completion", cause)
	assert.True(t, errors.Is(err, lingominer.ErrBackend))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, lingominer.IsBackend(err))
}

func TestParseError(t *testing.T) {
	err := &lingominer.ParseError{Field: "lemma"}
	assert.True(t, errors.Is(err, lingominer.ErrParse))
	assert.True(t, lingominer.IsParse(err))
	assert.Contains(t, err.Error(), `missing output "lemma"`)
}

func TestDoubleAssignError(t *testing.T) {
	err := &lingominer.DoubleAssignError{Field: "word"}
	assert.True(t, errors.Is(err, lingominer.ErrDoubleAssign))
	assert.True(t, lingominer.IsDoubleAssign(err))
}

func TestTimeoutAndCancelled(t *testing.T) {
	assert.True(t, lingominer.IsTimeout(fmt.Errorf("run: %w", lingominer.ErrTimeout)))
	assert.True(t, lingominer.IsTimeout(context.DeadlineExceeded))
	assert.False(t, lingominer.IsTimeout(lingominer.ErrCancelled))

	assert.True(t, lingominer.IsCancelled(fmt.Errorf("get: %w", lingominer.ErrCancelled)))
	assert.True(t, lingominer.IsCancelled(context.Canceled))
	assert.False(t, lingominer.IsCancelled(nil))
}

func TestRenderError(t *testing.T) {
	err := &lingominer.RenderError{Placeholder: "mystery", Generation: "explain"}
	assert.True(t, errors.Is(err, lingominer.ErrRender))
	assert.True(t, lingominer.IsRender(err))
	assert.Contains(t, err.Error(), "{{mystery}}")
}
