package validation

import (
	"encoding/json"
	"fmt"

	"github.com/sakif/template-studio/internal/apperror"
	"github.com/sakif/template-studio/internal/model"
)

// CreateRequest is a validated body of POST /api/templates.
type CreateRequest struct {
	Name      string
	Content   json.RawMessage
	Variables []model.TemplateVariable // never nil
}

// UpdateRequest is a validated body of PUT /api/templates/{id}.
// There is no Name: names are fixed once a template exists.
type UpdateRequest struct {
	Content   json.RawMessage
	Variables []model.TemplateVariable // never nil
}

// ValidateCreate validates a decoded create body. Only a non-object body stops
// validation early; otherwise every field problem is reported together.
func ValidateCreate(body any) (CreateRequest, error) {
	obj, ok := body.(map[string]any)
	if !ok {
		return CreateRequest{}, notAnObject()
	}

	var problems []string

	name, err := ValidateName(obj["name"])
	if err != nil {
		problems = append(problems, apperror.Details(err)...)
	}
	content, contentProblems := validateContent(obj)
	problems = append(problems, contentProblems...)
	vars, varProblems := validateVariables(obj)
	problems = append(problems, varProblems...)

	if len(problems) > 0 {
		return CreateRequest{}, apperror.Invalid(problems)
	}
	return CreateRequest{Name: name, Content: content, Variables: vars}, nil
}

// ValidateUpdate validates a decoded update body. Names are fixed at
// creation, so a "name" member is rejected.
func ValidateUpdate(body any) (UpdateRequest, error) {
	obj, ok := body.(map[string]any)
	if !ok {
		return UpdateRequest{}, notAnObject()
	}

	var problems []string
	if _, present := obj["name"]; present {
		problems = append(problems, "name cannot be changed after creation")
	}
	content, contentProblems := validateContent(obj)
	problems = append(problems, contentProblems...)
	vars, varProblems := validateVariables(obj)
	problems = append(problems, varProblems...)

	if len(problems) > 0 {
		return UpdateRequest{}, apperror.Invalid(problems)
	}
	return UpdateRequest{Content: content, Variables: vars}, nil
}

func notAnObject() error {
	return apperror.Invalid([]string{"request body must be a JSON object"})
}

// validateContent requires a non-null JSON object and re-encodes it.
func validateContent(obj map[string]any) (json.RawMessage, []string) {
	raw, present := obj["content"]
	if !present || raw == nil {
		return nil, []string{"content is required"}
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, []string{"content must be a JSON object"}
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, []string{fmt.Sprintf("content could not be encoded: %v", err)}
	}
	return encoded, nil
}

// validateVariables validates each entry and rejects repeated keys, which
// the store's (template, key) uniqueness would otherwise turn into a
// storage failure.
func validateVariables(obj map[string]any) ([]model.TemplateVariable, []string) {
	raw, present := obj["variables"]
	if !present || raw == nil {
		return []model.TemplateVariable{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, []string{"variables must be an array"}
	}

	var problems []string
	vars := make([]model.TemplateVariable, 0, len(items))
	firstSeen := make(map[string]int, len(items))

	for i, item := range items {
		v, err := ValidateVariable(item, i)
		if err != nil {
			problems = append(problems, apperror.Details(err)...)
			continue
		}
		if prev, dup := firstSeen[v.Key]; dup {
			problems = append(problems,
				fmt.Sprintf("variables[%d].key %q duplicates variables[%d]", i, v.Key, prev))
			continue
		}
		firstSeen[v.Key] = i
		vars = append(vars, v)
	}
	return vars, problems
}
