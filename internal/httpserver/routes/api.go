package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/wander/internal/httpserver/deps"
	"github.com/MrSnakeDoc/wander/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/wander/internal/httpserver/mw"
)

func init() { Register("api", registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	authLimit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.AuthRateBurst,
		RefillPerIPPerMin: d.AuthRatePerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))

		r.Get("/view", handlers.View(d))
		r.Post("/init", handlers.Init(d))
		r.Post("/input", handlers.Input(d))
		r.Post("/search", handlers.Search(d))
		r.Post("/category", handlers.Category(d))
		r.Post("/more", handlers.LoadMore(d))
		r.Post("/bookmarks/filter", handlers.BookmarksFilter(d))
		r.Post("/bookmarks/{id}/toggle", handlers.ToggleBookmark(d))
		r.Post("/retry", handlers.Retry(d))
		r.Post("/notice/dismiss", handlers.DismissNotice(d))

		r.Route("/auth", func(r chi.Router) {
			r.With(authLimit).Post("/login", handlers.Login(d))
			r.With(authLimit).Post("/signup", handlers.Signup(d))
			r.Post("/logout", handlers.Logout(d))
		})

		if d.Events != nil {
			r.Get("/events", d.Events.ServeHTTP)
		}
	})
}
