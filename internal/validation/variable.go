package validation

import (
	"fmt"

	"github.com/sakif/template-studio/internal/apperror"
	"github.com/sakif/template-studio/internal/model"
)

// ValidateVariable checks one entry of a request's "variables" array.
// index is the entry's position and is used only in messages.
//
// Every problem is collected; the returned error (a ValidationError) carries
// them all in apperror.Details, in field order.
func ValidateVariable(value any, index int) (model.TemplateVariable, error) {
	var v model.TemplateVariable
	prefix := fmt.Sprintf("variables[%d]", index)

	obj, ok := value.(map[string]any)
	if !ok {
		return v, apperror.Invalid([]string{prefix + " must be an object"})
	}

	var problems []string
	addf := func(field, format string, args ...any) {
		problems = append(problems, fmt.Sprintf("%s.%s %s", prefix, field, fmt.Sprintf(format, args...)))
	}

	switch key, present := obj["key"]; {
	case !present || key == nil:
		addf("key", "is required")
	default:
		s, ok := key.(string)
		if !ok {
			addf("key", "must be a string")
		} else if failedTag(s, "var_key") != "" {
			addf("key", "must match %s (got %q)", variableKeyRe.String(), s)
		} else {
			v.Key = s
		}
	}

	switch typ, present := obj["type"]; {
	case !present || typ == nil:
		addf("type", "is required")
	default:
		s, ok := typ.(string)
		if !ok || failedTag(s, "var_type") != "" {
			addf("type", "must be one of %v", model.VariableTypes)
		} else {
			v.Type = model.VariableType(s)
		}
	}

	if fb, present := obj["fallbackValue"]; present && fb != nil {
		s, ok := fb.(string)
		if !ok {
			addf("fallbackValue", "must be a string or null")
		} else {
			v.FallbackValue = &s
		}
	}

	if req, present := obj["isRequired"]; present {
		b, ok := req.(bool)
		if !ok {
			addf("isRequired", "must be a boolean")
		} else {
			v.IsRequired = b
		}
	}

	if v.IsRequired && v.FallbackValue != nil {
		addf("fallbackValue", "must be null when isRequired is true")
	}

	if len(problems) > 0 {
		return model.TemplateVariable{}, apperror.Invalid(problems)
	}
	return v, nil
}
