package static

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
)

// dist holds the browser duel client.
//
//go:embed dist
var dist embed.FS

var assetExt = map[string]bool{".js": true, ".css": true, ".svg": true, ".ico": true, ".png": true, ".map": true}

// Handler serves assets by extension and the play page for every other path,
// so /play/duel-1 loads the client with the session id in the URL.
func Handler() http.Handler {
	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		return http.NotFoundHandler()
	}
	fileServer := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if assetExt[path.Ext(r.URL.Path)] {
			fileServer.ServeHTTP(w, r)
			return
		}
		b, err := fs.ReadFile(sub, "index.html")
		if err != nil {
			http.Error(w, "index not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	})
}
