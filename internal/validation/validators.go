package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("oauth_scopes", validateOAuthScopes); err != nil {
		panic(fmt.Sprintf("failed to register oauth_scopes validator: %v", err))
	}
}

// validateOAuthScopes validates a space-separated list of RFC 6749 scope tokens
func validateOAuthScopes(fl validator.FieldLevel) bool {
	return ValidateScopes(fl.Field().String()) == nil
}

// ValidateScopes checks that every space-separated scope token uses only
// the characters allowed by RFC 6749 section 3.3.
func ValidateScopes(value string) error {
	scopes := strings.Fields(value)
	if len(scopes) == 0 {
		return fmt.Errorf("scope list is empty")
	}
	for _, scope := range scopes {
		for _, r := range scope {
			if r > unicode.MaxASCII || r <= 0x20 || r == '"' || r == '\\' || r == 0x7f {
				return fmt.Errorf("invalid character %q in scope %q", r, scope)
			}
		}
	}
	return nil
}

// Struct validates a struct using its validate tags and flattens the result
// into a single readable error.
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid %T: %s", v, strings.Join(msgs, ", "))
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
