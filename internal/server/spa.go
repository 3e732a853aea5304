package server

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/reelhouse/reelhouse/internal/httputil"
)

// spaFileServer serves the front-end shell from WEB_DIR. Unknown client
// routes get index.html; unknown API paths stay JSON 404s.
type spaFileServer struct {
	fileServer http.Handler
	fileSystem fs.FS
}

func newSPAFileServer(fsys fs.FS) *spaFileServer {
	return &spaFileServer{
		fileServer: http.FileServer(http.FS(fsys)),
		fileSystem: fsys,
	}
}

func (s *spaFileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		httputil.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}

	info, err := fs.Stat(s.fileSystem, path)
	switch {
	case err != nil || info.IsDir():
		r.URL.Path = "/"
		w.Header().Set("Cache-Control", "no-cache")
	case strings.HasPrefix(path, "assets/"):
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	default:
		w.Header().Set("Cache-Control", "no-cache")
	}

	s.fileServer.ServeHTTP(w, r)
}
