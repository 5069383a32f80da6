// Package mergetag infers template variables from exported editor HTML.
//
// The result is a suggestion. It is sent back as the "variables" of a
// create/update request and validated there like any other client input.
package mergetag

import (
	"regexp"

	"github.com/sakif/template-studio/internal/model"
)

// tokenRe only recognises plain {{UPPER_SNAKE}} tokens. Stored keys may also
// contain digits; those are never inferred here and must be declared by hand.
var tokenRe = regexp.MustCompile(`\{\{([A-Z_]+)\}\}`)

// Extract returns one string variable per distinct token in html, in order of
// first appearance.
func Extract(html string) []model.TemplateVariable {
	matches := tokenRe.FindAllStringSubmatch(html, -1)
	vars := make([]model.TemplateVariable, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))

	for _, m := range matches {
		key := m[1]
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		vars = append(vars, model.TemplateVariable{
			Key:  key,
			Type: model.VariableString,
		})
	}
	return vars
}
