// Package validation turns go-playground/validator failures into
// *domain.ValidationError with one readable message per field.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/poklin/poklin/internal/core/domain"
)

// New returns a validator configured the same way for every caller.
func New() *validator.Validate {
	return validator.New()
}

// Struct validates s with v. A failure is always a *domain.ValidationError.
func Struct(v *validator.Validate, s any) error {
	if err := v.Struct(s); err != nil {
		return ToError(err)
	}
	return nil
}

// ToError converts a validator error into a *domain.ValidationError.
func ToError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &domain.ValidationError{Message: err.Error()}
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, FieldMessage(fe))
	}
	return &domain.ValidationError{Message: strings.Join(msgs, "; ")}
}

// FieldMessage converts a single validator.FieldError into a readable message.
func FieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
