package server

import (
	"errors"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"

	"github.com/rise-and-shine/actionrpc/meta"
)

// codeRouterError is used for errors raised by fiber itself.
const codeRouterError = "ROUTER_ERROR"

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	TraceID string      `json:"trace_id,omitempty"`
	Error   ErrorSchema `json:"error"`
}

// ErrorSchema describes one error. Code and Type survive the trip so clients
// can rebuild the errx value.
type ErrorSchema struct {
	Code    string            `json:"code"`
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Trace   string            `json:"trace,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
}

// WriteErrorResponse writes err as an ErrorResponse with the status mapped
// from its errx type, and returns err as an errx.ErrorX.
func WriteErrorResponse(c *fiber.Ctx, err error, hideDetails bool) error {
	e := mapAnyErrorToErrorX(err)

	c.Status(mapErrorTypeToHTTPStatusCode(e.Type()))
	_ = c.JSON(ErrorResponse{
		TraceID: meta.Find(c.UserContext(), meta.TraceID),
		Error:   buildErrorSchema(e, hideDetails),
	})

	return e
}

// customErrorHandler writes errors that reached fiber unhandled. Responses
// that already carry an error status are left alone.
func customErrorHandler(hideDetails bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if r := c.Response(); r != nil && r.StatusCode() >= fiber.StatusBadRequest {
			return nil
		}

		_ = WriteErrorResponse(c, err, hideDetails)
		return nil
	}
}

func buildErrorSchema(e errx.ErrorX, hideDetails bool) ErrorSchema {
	schema := ErrorSchema{
		Code:    e.Code(),
		Type:    e.Type().String(),
		Message: e.Error(),
		Fields:  e.Fields(),
	}
	if !hideDetails {
		schema.Trace = e.Trace()
		schema.Details = e.Details()
	}
	return schema
}

func mapErrorTypeToHTTPStatusCode(t errx.Type) int {
	switch t {
	case errx.T_Authentication:
		return fiber.StatusUnauthorized
	case errx.T_Forbidden:
		return fiber.StatusForbidden
	case errx.T_NotFound:
		return fiber.StatusNotFound
	case errx.T_Validation:
		return fiber.StatusBadRequest
	case errx.T_Conflict:
		return fiber.StatusConflict
	case errx.T_Throttling:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// mapAnyErrorToErrorX converts fiber errors to errx with a matching type.
func mapAnyErrorToErrorX(err error) errx.ErrorX {
	var fiberErr *fiber.Error
	if !errors.As(err, &fiberErr) {
		return errx.AsErrorX(err)
	}

	var t errx.Type
	switch code := fiberErr.Code; {
	case code == fiber.StatusUnauthorized:
		t = errx.T_Authentication
	case code == fiber.StatusForbidden:
		t = errx.T_Forbidden
	case code == fiber.StatusNotFound:
		t = errx.T_NotFound
	case code == fiber.StatusConflict:
		t = errx.T_Conflict
	case code == fiber.StatusTooManyRequests:
		t = errx.T_Throttling
	case code >= 400 && code < 500:
		t = errx.T_Validation
	default:
		t = errx.T_Internal
	}

	return errx.AsErrorX(errx.New(
		fiberErr.Message,
		errx.WithCode(codeRouterError),
		errx.WithType(t),
		errx.WithDetails(errx.D{"fiber_code": fiberErr.Code}),
	))
}

// StatusOf returns the response status WriteErrorResponse would use for err.
func StatusOf(err error) int {
	return mapErrorTypeToHTTPStatusCode(mapAnyErrorToErrorX(err).Type())
}
