// Package val validates request bodies and configuration structs and turns
// validator failures into errx validation errors.
package val

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator() //nolint:gochecknoglobals // validator caches struct metadata

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(getTagName)
	registerCustomValidations(v)
	return v
}

// getTagName names a field after its json, query, params or yaml tag, in
// that order, falling back to the Go field name.
func getTagName(fld reflect.StructField) string {
	for _, tagName := range []string{"json", "query", "params", "yaml"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tagName), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}
