package cfgloader

import (
	"bytes"
	"log/slog"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

const yamlIndent = 2

// printConfig logs config as YAML with `mask:"true"` fields starred out.
func printConfig(config any) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(yamlIndent)

	if err := enc.Encode(maskStruct(config)); err != nil {
		slog.Error("[cfgloader]: failed to marshal config", "error", err.Error())
		return
	}
	slog.Info("[cfgloader]: loaded config\n" + buf.String())
}

// maskStruct returns a copy of cfg with masked fields hidden.
func maskStruct(cfg any) any {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return maskValue(v).Interface()
}

func maskValue(v reflect.Value) reflect.Value {
	switch v.Kind() { //nolint:exhaustive // other kinds are copied as is
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		ptr := reflect.New(v.Elem().Type())
		ptr.Elem().Set(maskValue(v.Elem()))
		return ptr

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := range v.NumField() {
			field, dst := v.Field(i), out.Field(i)
			if !dst.CanSet() {
				continue
			}
			if v.Type().Field(i).Tag.Get("mask") == "true" {
				dst.Set(hide(field))
			} else {
				dst.Set(maskValue(field))
			}
		}
		return out

	default:
		return v
	}
}

// hide stars out strings and zeroes anything else that is not a container.
func hide(v reflect.Value) reflect.Value {
	switch v.Kind() { //nolint:exhaustive // containers are walked
	case reflect.String:
		return reflect.ValueOf(strings.Repeat("*", v.Len())).Convert(v.Type())
	case reflect.Struct, reflect.Pointer:
		return maskValue(v)
	default:
		return reflect.Zero(v.Type())
	}
}
