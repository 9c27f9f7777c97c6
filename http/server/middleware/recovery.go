package middleware

import (
	"fmt"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"

	"github.com/rise-and-shine/actionrpc/http/server"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

// NewRecoveryMW converts a panic anywhere below it into an internal error.
func NewRecoveryMW(log logger.Logger) server.Middleware {
	named := log.Named("http.recovery")

	return server.Middleware{
		Priority: priorityRecovery,
		Handler: func(c *fiber.Ctx) (err error) {
			defer func() {
				if r := recover(); r != nil {
					trace := stackTrace()

					named.WithContext(c.UserContext()).
						With("stack_trace", trace).
						With("panic_message", fmt.Sprintf("%v", r)).
						Error("recovered from panic")

					err = errx.New("panic recovered", errx.WithDetails(errx.D{
						"stack_trace":   trace,
						"panic_message": fmt.Sprintf("%v", r),
					}))
				}
			}()

			return c.Next()
		},
	}
}
