package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/MrSnakeDoc/wander/internal/httpserver/deps"
)

// Static serves the UI bundle from d.StaticDir. Unknown paths fall back
// to index.html so client-side routes load the app.
func Static(d deps.Deps) http.HandlerFunc {
	root := http.Dir(d.StaticDir)
	files := http.FileServer(root)
	index := filepath.Join(d.StaticDir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		f, err := root.Open(r.URL.Path)
		if err == nil {
			_ = f.Close()
			files.ServeHTTP(w, r)
			return
		}
		if _, statErr := os.Stat(index); statErr != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, index)
	}
}
