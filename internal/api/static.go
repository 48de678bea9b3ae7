package api

import (
	"net/http"
	"os"
	"path/filepath"
)

const placeholderPage = `<!DOCTYPE html>
<html><head><title>keyissuer</title></head>
<body><h1>keyissuer</h1><p>No landing page configured.</p></body></html>
`

// staticHandler serves the configured static directory. The root path falls
// back to a placeholder page when there is no index.html.
func (s *Server) staticHandler() http.Handler {
	var files http.Handler
	if s.staticDir != "" {
		files = http.FileServer(http.Dir(s.staticDir))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && !s.hasIndex() {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(placeholderPage))
			return
		}
		if files == nil {
			writeError(w, r, http.StatusNotFound, "Not found")
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *Server) hasIndex() bool {
	if s.staticDir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(s.staticDir, "index.html"))
	return err == nil && !info.IsDir()
}

// RedirectHandler answers every request with a permanent redirect to the
// same path on https://host.
func RedirectHandler(host string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://"+host+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}
