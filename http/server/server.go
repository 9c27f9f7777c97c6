// Package server wraps a fiber application with prioritized middleware and
// a uniform JSON error response.
package server

import (
	"context"
	"net"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
)

// HTTPServer is a fiber application bound to a Config.
type HTTPServer struct {
	cfg    Config
	router *fiber.App
}

// NewHTTPServer builds the fiber application and applies middlewares.
func NewHTTPServer(cfg Config, middlewares []Middleware) *HTTPServer {
	router := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          customErrorHandler(cfg.HideErrorDetails),
		DisableStartupMessage: true,
		Immutable:             true,
	})

	applyMiddlewares(router, middlewares)

	return &HTTPServer{cfg: cfg, router: router}
}

// RegisterRouter lets registerFunc add routes to the server.
func (s *HTTPServer) RegisterRouter(registerFunc func(r fiber.Router)) {
	registerFunc(s.router)
}

// App exposes the fiber application, mainly for app.Test in tests.
func (s *HTTPServer) App() *fiber.App {
	return s.router
}

// Start listens on the configured address until Stop is called.
func (s *HTTPServer) Start() error {
	return errx.Wrap(s.router.Listen(s.cfg.Address()))
}

// Serve accepts connections from ln until Stop is called.
func (s *HTTPServer) Serve(ln net.Listener) error {
	return errx.Wrap(s.router.Listener(ln))
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return errx.Wrap(s.router.ShutdownWithContext(ctx))
}
