package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/wander/internal/httpserver/deps"
	"github.com/MrSnakeDoc/wander/internal/logger"
	"github.com/MrSnakeDoc/wander/internal/render"
)

type textRequest struct {
	Text string `json:"text"`
}

type categoryRequest struct {
	Category string `json:"category"`
}

type filterRequest struct {
	On bool `json:"on"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// respond writes the view that results from an intent. The view is the
// body even for failures; the status tells the client what went wrong.
func respond(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		d.Logger.Error("api request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err))
	}
	writeJSON(w, status, d.Controller.View(r.Context()))
}

// View returns the current view. ?format=html returns the list fragment.
func View(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := d.Controller.View(r.Context())
		if r.URL.Query().Get("format") != "html" {
			writeJSON(w, http.StatusOK, v)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := render.HTML(w, v.List); err != nil {
			d.Logger.Warn("failed to render list", logger.Error(err))
		}
	}
}

func Init(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := d.Background
		if ctx == nil {
			ctx = context.WithoutCancel(r.Context())
		}
		respond(w, r, d, d.Controller.Initialize(ctx))
	}
}

// Input feeds a keystroke to the debounced search and answers right away.
func Input(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req textRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		d.Controller.Input(req.Text)
		writeJSON(w, http.StatusAccepted, d.Controller.View(r.Context()))
	}
}

func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req textRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		respond(w, r, d, d.Controller.Search(r.Context(), req.Text))
	}
}

func Category(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		respond(w, r, d, d.Controller.SelectCategory(r.Context(), req.Category))
	}
}

func LoadMore(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, d, d.Controller.LoadMore(r.Context()))
	}
}

func BookmarksFilter(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req filterRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		respond(w, r, d, d.Controller.SetBookmarksOnly(r.Context(), req.On))
	}
}

func ToggleBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid attraction id")
			return
		}
		respond(w, r, d, d.Controller.ToggleBookmark(r.Context(), id))
	}
}

func Login(d deps.Deps) http.HandlerFunc {
	return credentials(d, d.Controller.Login)
}

func Signup(d deps.Deps) http.HandlerFunc {
	return credentials(d, d.Controller.Signup)
}

func credentials(d deps.Deps, call func(ctx context.Context, username, password string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		respond(w, r, d, call(r.Context(), req.Username, req.Password))
	}
}

func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, d, d.Controller.Logout(r.Context()))
	}
}

func Retry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, d, d.Controller.RetryLast(r.Context()))
	}
}

func DismissNotice(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Controller.DismissNotice(r.Context())
		respond(w, r, d, nil)
	}
}
