package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sakif/template-studio/internal/apperror"
)

// MaxNameLength bounds both validated and sanitized template names.
const MaxNameLength = 100

// ValidateName checks a template name and returns it trimmed.
//
// Case is preserved: "Welcome_Email" and "welcome_email" are different
// templates. The name is used by renderers as a lookup key, so it is never
// rewritten, only rejected.
func ValidateName(value any) (string, error) {
	if value == nil {
		return "", apperror.ValidationFailed("name", "name is required")
	}
	raw, ok := value.(string)
	if !ok {
		return "", apperror.ValidationFailed("name", "name must be a string")
	}

	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperror.ValidationFailed("name", "name must not be empty")
	}

	switch failedTag(name, fmt.Sprintf("max=%d,template_name", MaxNameLength)) {
	case "":
		return name, nil
	case "max":
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	default:
		return "", apperror.ValidationFailed("name",
			"name may only contain letters, digits, underscores and hyphens")
	}
}

var (
	invalidSlugChars = regexp.MustCompile(`[^a-z0-9_-]`)
	repeatedHyphens  = regexp.MustCompile(`-{2,}`)
)

// SanitizeName turns free text into a display slug: lowercased, every
// character outside [a-z0-9_-] replaced by a hyphen, hyphen runs collapsed,
// leading/trailing hyphens dropped, and cut to MaxNameLength.
//
// Unlike ValidateName this never fails, and its output is not a lookup key.
func SanitizeName(s string) string {
	slug := strings.ToLower(strings.TrimSpace(s))
	slug = invalidSlugChars.ReplaceAllString(slug, "-")
	slug = repeatedHyphens.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > MaxNameLength {
		slug = strings.TrimRight(slug[:MaxNameLength], "-")
	}
	return slug
}
