// Package validation checks inbound template requests at the boundary.
//
// Request bodies arrive as untyped JSON (decoded into any). Everything in this
// package works on that untyped shape so it can tell "missing" from "wrong
// type" from "bad format". What comes out is a fully typed payload; the rest of
// the application never re-validates it.
//
// Field-format rules are expressed as go-playground/validator tags registered
// below, so the regexes live in one place.
package validation

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/template-studio/internal/model"
)

var (
	templateNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	variableKeyRe  = regexp.MustCompile(`^[A-Z_][A-Z_0-9]*$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails on an empty tag name or nil func.
	_ = v.RegisterValidation("template_name", func(fl validator.FieldLevel) bool {
		return templateNameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("var_key", func(fl validator.FieldLevel) bool {
		return variableKeyRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("var_type", func(fl validator.FieldLevel) bool {
		return model.VariableType(fl.Field().String()).Valid()
	})
	return v
}

// failedTag runs a validator.Var check and returns the first failing tag,
// or "" when the value passes.
func failedTag(value any, tags string) string {
	err := validate.Var(value, tags)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Tag()
	}
	return tags
}
