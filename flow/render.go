package flow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/syssam/lingominer"
	"github.com/syssam/lingominer/template"
)

// placeholderRe mirrors template.Placeholders: {{name}} with the name taken
// verbatim, no trimming.
var placeholderRe = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Render substitutes every {{name}} occurrence in the prompt with the
// corresponding input value. A placeholder without an input value is a
// fatal RenderError; template-edit validation makes that unreachable for
// stored templates.
func Render(prompt string, inputs map[string]string) (string, error) {
	var missing []string
	rendered := placeholderRe.ReplaceAllStringFunc(prompt, func(m string) string {
		name := m[2 : len(m)-2]
		value, ok := inputs[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return value
	})
	if len(missing) > 0 {
		return "", &lingominer.RenderError{Placeholder: missing[0]}
	}
	return rendered, nil
}

// RenderCompletion renders the prompt and appends the output-format block:
// a description of the JSON object the model must return, one line per
// declared output field, with extra keys forbidden.
func RenderCompletion(prompt string, inputs map[string]string, outputs []template.FieldDef) (string, error) {
	rendered, err := Render(prompt, inputs)
	if err != nil {
		return "", err
	}
	var desc strings.Builder
	for _, out := range outputs {
		fmt.Fprintf(&desc, "- `%s`: %s\n", out.Name, out.Description)
	}
	return "# Instruction\n" +
		rendered + "\n\n" +
		"# Output Format\n" +
		"Your task is to generate a JSON object that adheres to the following schema:\n\n" +
		"The schema is defined as follows:\n" +
		desc.String() + "\n" +
		"Please ensure the output JSON strictly follows this schema. Do not include extra fields.\n\n" +
		"# Output", nil
}
