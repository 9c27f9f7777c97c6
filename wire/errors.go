package wire

import (
	"github.com/code19m/errx"
)

// ErrorBody is the wire form of an error. Code and type survive the trip so
// callers can keep matching on errx codes.
type ErrorBody struct {
	Code    string         `json:"code"`
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

//nolint:gochecknoglobals // lookup table for decoding error types
var errorTypes = func() map[string]errx.Type {
	types := []errx.Type{
		errx.T_Internal,
		errx.T_Validation,
		errx.T_NotFound,
		errx.T_Conflict,
		errx.T_Authentication,
		errx.T_Forbidden,
		errx.T_Throttling,
	}
	m := make(map[string]errx.Type, len(types))
	for _, t := range types {
		m[t.String()] = t
	}
	return m
}()

// EncodeError converts err to its wire form.
func EncodeError(err error) *ErrorBody {
	e := errx.AsErrorX(err)
	return &ErrorBody{
		Code:    e.Code(),
		Type:    e.Type().String(),
		Message: e.Error(),
		Details: e.Details(),
	}
}

// Err rebuilds an errx error from the body.
func (b *ErrorBody) Err() error {
	t, ok := errorTypes[b.Type]
	if !ok {
		t = errx.T_Internal
	}

	if len(b.Details) == 0 {
		return errx.New(b.Message, errx.WithCode(b.Code), errx.WithType(t))
	}
	return errx.New(b.Message, errx.WithCode(b.Code), errx.WithType(t), errx.WithDetails(b.Details))
}
