package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rise-and-shine/actionrpc/http/server"
	"github.com/rise-and-shine/actionrpc/observability/alert"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

// NewAlertMW reports internal errors of a request through provider, with the
// method and route path as the operation.
func NewAlertMW(log logger.Logger, provider alert.Provider) server.Middleware {
	log = log.Named("http.alert")

	return server.Middleware{
		Priority: priorityAlert,
		Handler: func(c *fiber.Ctx) error {
			err := c.Next()
			if err != nil {
				alert.Notify(c.UserContext(), provider, log, c.Method()+" "+c.Route().Path, err)
			}
			return err
		},
	}
}
