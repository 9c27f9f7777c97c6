package middleware

import (
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rise-and-shine/actionrpc/http/server"
)

// NewTracingMW opens a server span per request, named after the method and
// the matched route.
func NewTracingMW() server.Middleware {
	tracer := otel.Tracer("actionrpc/http")

	return server.Middleware{
		Priority: priorityTracing,
		Handler: func(c *fiber.Ctx) error {
			ctx, span := tracer.Start(c.UserContext(), c.Method()+" /",
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			c.SetUserContext(ctx)

			err := c.Next()

			route := c.Route().Path
			if route != "" && route != "/" {
				span.SetName(c.Method() + " " + route)
			}
			span.SetAttributes(
				attribute.String("http.request.method", c.Method()),
				attribute.String("http.route", route),
				attribute.String("url.path", c.Path()),
				attribute.Int("http.response.status_code", c.Response().StatusCode()),
			)

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}

			return err
		},
	}
}
