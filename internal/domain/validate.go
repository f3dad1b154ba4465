package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is shared by the client and the backend so both reject the same
// requests.
var Validator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a request before any network call. It returns a
// *ValidationError describing the first problem found.
func Validate(r Request) error {
	if r.Blank() {
		return &ValidationError{Field: "text", Reason: "text must not be blank"}
	}
	if err := Validator.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{Field: jsonFieldName(fe.Field()), Reason: describe(fe)}
		}
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

func jsonFieldName(field string) string {
	switch field {
	case "MaxLength":
		return "max_length"
	case "APIKey":
		return "api_key"
	default:
		return strings.ToLower(field)
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
