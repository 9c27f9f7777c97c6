package server_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/actionrpc/http/server"
)

func newServer(t *testing.T, hide bool, mws ...server.Middleware) *server.HTTPServer {
	t.Helper()

	srv := server.NewHTTPServer(server.Config{Host: "127.0.0.1", Port: 8080, HideErrorDetails: hide}, mws)
	srv.RegisterRouter(func(r fiber.Router) {
		r.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
		r.Get("/missing", func(*fiber.Ctx) error {
			return errx.New("thing not found",
				errx.WithCode("THING_NOT_FOUND"),
				errx.WithType(errx.T_NotFound),
				errx.WithDetails(errx.D{"id": "42"}),
			)
		})
	})
	return srv
}

func decode(t *testing.T, srv *server.HTTPServer, path string) (int, server.ErrorResponse) {
	t.Helper()

	resp, err := srv.App().Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body server.ErrorResponse
	if resp.StatusCode >= fiber.StatusBadRequest {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		hide        bool
		path        string
		wantStatus  int
		wantCode    string
		wantType    errx.Type
		wantDetails bool
	}{
		{name: "success", path: "/ok", wantStatus: fiber.StatusOK},
		{
			name:        "errx type maps to status",
			path:        "/missing",
			wantStatus:  fiber.StatusNotFound,
			wantCode:    "THING_NOT_FOUND",
			wantType:    errx.T_NotFound,
			wantDetails: true,
		},
		{
			name:       "details hidden",
			hide:       true,
			path:       "/missing",
			wantStatus: fiber.StatusNotFound,
			wantCode:   "THING_NOT_FOUND",
			wantType:   errx.T_NotFound,
		},
		{
			name:       "unknown route",
			path:       "/nowhere",
			wantStatus: fiber.StatusNotFound,
			wantCode:   "ROUTER_ERROR",
			wantType:   errx.T_NotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := decode(t, newServer(t, tc.hide), tc.path)

			assert.Equal(t, tc.wantStatus, status)
			if tc.wantCode == "" {
				return
			}
			assert.Equal(t, tc.wantCode, body.Error.Code)
			assert.Equal(t, tc.wantType.String(), body.Error.Type)
			if tc.wantDetails {
				assert.Equal(t, "42", body.Error.Details["id"])
				assert.NotEmpty(t, body.Error.Trace)
			} else {
				assert.Empty(t, body.Error.Details)
				assert.Empty(t, body.Error.Trace)
			}
		})
	}
}

func TestMiddlewarePriority(t *testing.T) {
	var trail []string
	tag := func(name string) fiber.Handler {
		return func(c *fiber.Ctx) error {
			trail = append(trail, name)
			return c.Next()
		}
	}

	srv := newServer(t, false,
		server.Middleware{Priority: 1, Handler: tag("low")},
		server.Middleware{Priority: 10, Handler: tag("high")},
		server.Middleware{Priority: 5, Handler: nil},
		server.Middleware{Priority: 5, Handler: tag("mid")},
	)

	status, _ := decode(t, srv, "/ok")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []string{"high", "mid", "low"}, trail)
}

func TestConfigAddress(t *testing.T) {
	cfg := server.Config{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}
