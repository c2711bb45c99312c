package middleware

import (
	"net/http"
	"os"
	"path/filepath"
)

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 200"><rect width="200" height="200" fill="#f0f0f0"/><path d="M60 110 L100 70 L140 110 L140 150 L60 150 Z" fill="#999"/><rect x="90" y="120" width="20" height="30" fill="#f0f0f0"/><text x="100" y="175" text-anchor="middle" font-family="Arial" font-size="14" fill="#666">PROPERTY</text></svg>`

// StaticFileServer serves property images, falling back to a placeholder
// when a listing has no upload.
func StaticFileServer(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean(r.URL.Path))

		if _, err := os.Stat(path); err == nil {
			w.Header().Set("Cache-Control", "public, max-age=2592000")
			http.ServeFile(w, r, path)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write([]byte(placeholderSVG))
	})
}
