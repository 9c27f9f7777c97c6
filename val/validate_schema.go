package val

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/code19m/errx"
	"github.com/go-playground/validator/v10"
)

const CodeValidationFailed = "VALIDATION_FAILED"

// ValidateSchema validates schema by its `validate` tags. Failed fields are
// reported in the Fields of the returned errx error, keyed by their
// namespaced tag name.
func ValidateSchema(schema any) error {
	err := validate.Struct(schema)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errx.New(
			fmt.Sprintf("Unknown validation error: %s", err.Error()),
			errx.WithCode(CodeValidationFailed),
			errx.WithType(errx.T_Validation),
		)
	}

	fields := make(errx.M, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[trimRoot(fieldErr.Namespace())] = describe(fieldErr)
	}

	return errx.New(
		"Validation failed. See fields for details.",
		errx.WithCode(CodeValidationFailed),
		errx.WithType(errx.T_Validation),
		errx.WithFields(fields),
	)
}

// trimRoot drops the struct type name the validator puts in front of every
// namespace.
func trimRoot(ns string) string {
	for i := range len(ns) {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return ns
}

func describe(fieldErr validator.FieldError) string {
	param := fieldErr.Param()

	switch fieldErr.Tag() {
	case "required":
		return "This field is required"
	case "required_unless":
		return fmt.Sprintf("This field is required unless %s", param)
	case "min":
		if isCollection(fieldErr.Kind()) {
			return fmt.Sprintf("Must contain at least %s items", param)
		}
		if fieldErr.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters", param)
		}
		return fmt.Sprintf("Must be at least %s", param)
	case "max":
		if isCollection(fieldErr.Kind()) {
			return fmt.Sprintf("Must contain at most %s items", param)
		}
		if fieldErr.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters", param)
		}
		return fmt.Sprintf("Must be at most %s", param)
	case "gt":
		return fmt.Sprintf("Must be greater than %s", param)
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", param)
	case "lt":
		return fmt.Sprintf("Must be less than %s", param)
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", param)
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", param)
	case "url":
		return "Must be a valid URL"
	case "hostname_port":
		return "Must be a valid host:port pair"
	case "unique":
		return "Must not contain duplicates"
	case TagActionKind:
		return "Must be a valid action kind (dot separated lowercase segments)"
	default:
		return fmt.Sprintf("Failed validation: %s", fieldErr.Tag())
	}
}

func isCollection(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array || k == reflect.Map
}
