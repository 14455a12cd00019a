package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/wander/internal/httpserver/deps"
	"github.com/MrSnakeDoc/wander/internal/logger"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readyz is ready when the configured redis answers. Without redis the
// process is ready as soon as it serves.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Redis != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Redis.Ping(ctx); err != nil {
				d.Logger.Warn("readiness check failed", logger.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false, Error: "redis unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
