package middleware

import (
	"fmt"
	"time"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"

	"github.com/rise-and-shine/actionrpc/http/server"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

// NewLoggerMW logs each request at a level derived from the response status:
// info below 400, warn below 500 and error otherwise.
func NewLoggerMW(log logger.Logger) server.Middleware {
	named := log.Named("http.logger")

	return server.Middleware{
		Priority: priorityLogger,
		Handler: func(c *fiber.Ctx) error {
			start := time.Now()

			err := handleWithRecovery(c)

			status := c.Response().StatusCode()
			if err != nil && status < fiber.StatusBadRequest {
				// not written yet; fiber's error handler will use the same status
				status = server.StatusOf(err)
			}
			l := named.
				WithContext(c.UserContext()).
				With("http_status_code", status).
				With("http_method", c.Method()).
				With("http_path", c.Path()).
				With("http_route", c.Route().Path).
				With("duration", time.Since(start).String()).
				With("request_size", len(c.Body()))

			if err != nil {
				e := errx.AsErrorX(err)
				l = l.With("error", map[string]any{
					"code":    e.Code(),
					"message": e.Error(),
					"type":    e.Type().String(),
					"trace":   e.Trace(),
					"details": e.Details(),
				})
			}

			switch {
			case status >= fiber.StatusInternalServerError:
				l.Error("request failed")
			case status >= fiber.StatusBadRequest:
				l.Warn("request rejected")
			default:
				l.Info("request processed")
			}

			return err
		},
	}
}

func handleWithRecovery(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errx.New("panic recovered at logger middleware", errx.WithDetails(errx.D{
				"stack_trace":   stackTrace(),
				"panic_message": fmt.Sprintf("%v", r),
			}))
		}
	}()

	return c.Next()
}
