package val

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// TagActionKind validates action kind names such as "user.lookup".
const TagActionKind = "action_kind"

var actionKindPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)

// IsActionKind reports whether s is a well-formed action kind: dot separated
// lowercase segments.
func IsActionKind(s string) bool {
	return actionKindPattern.MatchString(s)
}

func registerCustomValidations(v *validator.Validate) {
	_ = v.RegisterValidation(TagActionKind, func(fl validator.FieldLevel) bool {
		return IsActionKind(fl.Field().String())
	})
}
