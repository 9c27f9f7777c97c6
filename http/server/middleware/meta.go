package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rise-and-shine/actionrpc/http/server"
	"github.com/rise-and-shine/actionrpc/meta"
	"github.com/rise-and-shine/actionrpc/observability/tracing"
)

// HeaderTraceID carries the trace id between client and server.
const HeaderTraceID = "X-Trace-ID"

// NewMetaInjectMW stores request metadata in the user context. A trace id
// sent by the client is kept, otherwise one is started. The trace id is
// echoed in the response headers.
func NewMetaInjectMW() server.Middleware {
	return server.Middleware{
		Priority: priorityMeta,
		Handler: func(c *fiber.Ctx) error {
			ctx := c.UserContext()

			traceID := c.Get(HeaderTraceID)
			if traceID == "" {
				traceID = tracing.GetStartingTraceID(ctx)
			}

			name, version := meta.ServiceInfo()
			ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{
				meta.TraceID:        traceID,
				meta.IPAddress:      c.IP(),
				meta.UserAgent:      c.Get(fiber.HeaderUserAgent),
				meta.RemoteAddr:     c.Context().RemoteAddr().String(),
				meta.ServiceName:    name,
				meta.ServiceVersion: version,
			})
			c.SetUserContext(ctx)
			c.Set(HeaderTraceID, traceID)

			return c.Next()
		},
	}
}
