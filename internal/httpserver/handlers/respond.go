package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/wander/internal/controller"
	"github.com/MrSnakeDoc/wander/internal/gateway"
	"github.com/MrSnakeDoc/wander/internal/httpserver/deps"
)

const maxBodyBytes = 16 << 10

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// statusOf maps a controller error to the HTTP status of the response.
func statusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, controller.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, controller.ErrInvalidInput), errors.Is(err, gateway.ErrValidationFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gateway.ErrRemoteFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func nowFunc(d deps.Deps) func() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow
	}
	return time.Now
}
