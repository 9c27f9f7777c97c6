package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rise-and-shine/actionrpc/http/server"
)

// NewErrorHandlerMW writes errors returned by handlers as JSON error
// responses. Traces and details are dropped when hideDetails is set.
func NewErrorHandlerMW(hideDetails bool) server.Middleware {
	return server.Middleware{
		Priority: priorityErrorHandler,
		Handler: func(c *fiber.Ctx) error {
			err := c.Next()
			if err == nil {
				return nil
			}

			if c.Response().StatusCode() >= fiber.StatusBadRequest {
				return err
			}

			return server.WriteErrorResponse(c, err, hideDetails)
		},
	}
}
