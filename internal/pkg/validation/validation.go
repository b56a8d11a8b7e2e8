// Package validation wraps go-playground/validator for request bodies. The
// workflow graph rules live elsewhere; this package only covers field-level
// checks on API input.
package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("porttype", validatePortType)
}

func Get() *validator.Validate {
	return validate
}

func Validate(s interface{}) error {
	return validate.Struct(s)
}

func validatePortType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "string", "number", "boolean", "object", "array":
		return true
	}
	return false
}

// Error formatting
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func FormatErrors(err error) []FieldError {
	var errors []FieldError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			errors = append(errors, FieldError{
				Field:   lowerFirst(e.Field()),
				Message: formatMessage(e),
			})
		}
	}

	return errors
}

func formatMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Value must be one of: " + e.Param()
	case "porttype":
		return "Invalid port type"
	default:
		return "Invalid value"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
