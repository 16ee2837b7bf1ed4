package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ACHamster/travel-diary-mobile/internal/apperrors"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(useJSONTagNames)
}

// Return on 'TagName' json tag instead of struct name
// Look at documentation of 'RegisterTagNameFunc' for more details
func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// FieldsError describes every field that failed validation
// Fields maps json field name to a human readable message
type FieldsError struct {
	Fields map[string]string
}

func (e *FieldsError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *FieldsError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Struct validates value using struct tags
// Returns *FieldsError (matching apperrors.ErrInvalidInput) if some field is not valid
func Struct(value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("can't validate value. Err: %w", err)
	}

	return newFieldsError(errs)
}

// Var validates single value against tag, field is used as the name in error
func Var(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("can't validate %s. Err: %w", field, err)
	}

	return &FieldsError{Fields: map[string]string{field: message(errs[0])}}
}

func newFieldsError(errs validator.ValidationErrors) *FieldsError {
	fields := make(map[string]string, len(errs))
	for _, fieldError := range errs {
		fields[fieldError.Field()] = message(fieldError)
	}

	return &FieldsError{Fields: fields}
}

// Create user-friendly error messages based on validation tag
func message(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Value is too short (minimum %s)", fieldError.Param())
	case "max":
		return fmt.Sprintf("Value is too long (maximum %s)", fieldError.Param())
	case "email":
		return "Invalid email address"
	case "url":
		return "Invalid URL"
	default:
		return "Invalid value"
	}
}
