// Package routes collects route registrars. Each file registers its
// routes from init, server.New mounts them all.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/wander/internal/httpserver/deps"
	"github.com/MrSnakeDoc/wander/internal/logger"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	name string
	reg  Registrar
	mws  []Middleware
}

var registry []entry

// Register adds a named registrar with optional middlewares applied to
// all of its routes.
func Register(name string, reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{name: name, reg: reg, mws: mws})
}

// RegisterAll mounts every registrar on r. Called once from server.New.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		if len(e.mws) == 0 {
			e.reg(r, d)
		} else {
			e.reg(r.With(e.mws...), d)
		}
		if d.Logger != nil {
			d.Logger.Debug("routes registered", logger.String("group", e.name))
		}
	}
}
