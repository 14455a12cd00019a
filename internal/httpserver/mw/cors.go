package mw

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows the configured browser origins to call the API.
// With no origins configured only same-origin requests work.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return c.Handler
}
