package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/lingominer"
	"github.com/syssam/lingominer/flow"
	"github.com/syssam/lingominer/template"
)

func TestRender(t *testing.T) {
	out, err := flow.Render("Explain {{word}} in {{word}} terms from {{paragraph}}", map[string]string{
		"word":      "Titan",
		"paragraph": "Saturn has moons.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Explain Titan in Titan terms from Saturn has moons.", out)
}

func TestRenderMissingPlaceholder(t *testing.T) {
	_, err := flow.Render("Explain {{mystery}}", map[string]string{"word": "Titan"})
	require.Error(t, err)
	assert.True(t, lingominer.IsRender(err))
	var re *lingominer.RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "mystery", re.Placeholder)
}

func TestRenderNoTrimming(t *testing.T) {
	// "{{ word }}" does not match the input "word"; with no input named
	// " word " the render fails.
	_, err := flow.Render("Explain {{ word }}", map[string]string{"word": "Titan"})
	require.Error(t, err)

	out, err := flow.Render("Explain {{ word }}", map[string]string{" word ": "Titan"})
	require.NoError(t, err)
	assert.Equal(t, "Explain Titan", out)
}

func TestRenderCompletionSuffix(t *testing.T) {
	out, err := flow.RenderCompletion("Extract from {{paragraph}}", map[string]string{
		"paragraph": "Saturn has moons.",
	}, []template.FieldDef{
		{Name: "word", Kind: template.KindText, Description: "the target word"},
		{Name: "sentence", Kind: template.KindText, Description: "its sentence"},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "# Instruction\nExtract from Saturn has moons.")
	assert.Contains(t, out, "# Output Format")
	assert.Contains(t, out, "- `word`: the target word")
	assert.Contains(t, out, "- `sentence`: its sentence")
	assert.Contains(t, out, "Do not include extra fields.")
	assert.Contains(t, out, "# Output")
}
