package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rise-and-shine/actionrpc/http/server"
)

// NewTimeoutMW bounds the user context of every request with d.
func NewTimeoutMW(d time.Duration) server.Middleware {
	return server.Middleware{
		Priority: priorityTimeout,
		Handler: func(c *fiber.Ctx) error {
			ctx, cancel := context.WithTimeout(c.UserContext(), d)
			defer cancel()

			c.SetUserContext(ctx)
			return c.Next()
		},
	}
}
