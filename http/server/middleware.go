package server

import (
	"cmp"
	"slices"

	"github.com/gofiber/fiber/v2"
)

// Middleware is a fiber handler with a priority. Higher priorities run
// earlier in the request pipeline.
type Middleware struct {
	Priority int
	Handler  fiber.Handler
}

// applyMiddlewares registers mws on app by descending priority. Equal
// priorities keep their given order and nil handlers are skipped.
func applyMiddlewares(app *fiber.App, mws []Middleware) {
	sorted := slices.Clone(mws)
	slices.SortStableFunc(sorted, func(a, b Middleware) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	for _, mw := range sorted {
		if mw.Handler != nil {
			app.Use(mw.Handler)
		}
	}
}
