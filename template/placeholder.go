package template

import "regexp"

// placeholderRe matches {{name}} patterns. The captured name is taken
// verbatim: no trimming, so "{{ word }}" declares the placeholder " word ",
// which only resolves against a field literally named " word ".
var placeholderRe = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Placeholders returns the placeholder names of a prompt in order of first
// appearance, deduplicated. Extraction is a pure syntactic scan; it knows
// nothing about the template the prompt belongs to.
func Placeholders(prompt string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, m := range placeholderRe.FindAllStringSubmatch(prompt, -1) {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
