package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/wander/internal/httpserver/deps"
	"github.com/MrSnakeDoc/wander/internal/httpserver/handlers"
)

func init() { Register("static", registerStatic) }

func registerStatic(r chi.Router, d deps.Deps) {
	if d.StaticDir == "" {
		return
	}
	r.Get("/*", handlers.Static(d))
}
