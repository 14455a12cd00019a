package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/wander/internal/httpserver/deps"
)

type componentStatus struct {
	OK      bool   `json:"ok"`
	Mode    string `json:"mode,omitempty"`
	Clients *int   `json:"clients,omitempty"`
	Impact  string `json:"impact,omitempty"`
	Error   string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Infra describes the state of each component for operators.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := d.Controller.View(r.Context())

		components := map[string]componentStatus{
			"redis": checkRedis(r.Context(), d),
			"session": {
				OK:   true,
				Mode: sessionMode(view.Authenticated),
			},
			"list": {
				OK:   view.Notice == nil,
				Mode: string(view.Mode),
			},
		}
		if d.Events != nil {
			n := d.Events.Clients()
			components["events"] = componentStatus{OK: true, Clients: &n}
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

func sessionMode(authenticated bool) string {
	if authenticated {
		return "authenticated"
	}
	return "anonymous"
}

func overallStatus(components map[string]componentStatus) string {
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "ok"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.Redis == nil {
		return componentStatus{OK: true, Mode: "disabled", Impact: "session and transliteration cache kept locally"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := d.Redis.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "session persistence and transliteration cache unavailable",
			Error:  "timeout",
		}
	}
	return componentStatus{OK: true, Mode: "optimal"}
}
