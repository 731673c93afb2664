package api

import (
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

// StaticFileHandler serves the web client from a directory on disk, or from the
// embedded copy when no directory is configured
type StaticFileHandler struct {
	staticDir string
	embedded  http.Handler
	logger    *logger.Logger
}

// NewStaticFileHandler creates a new static file handler. An empty staticDir serves embedded.
func NewStaticFileHandler(staticDir string, embedded fs.FS, log *logger.Logger) *StaticFileHandler {
	h := &StaticFileHandler{
		staticDir: staticDir,
		logger:    log.Named("static-handler"),
	}
	if embedded != nil {
		h.embedded = http.FileServerFS(embedded)
	}
	return h
}

// ServeHTTP serves static files dynamically
func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.staticDir == "" {
		if h.embedded == nil {
			http.NotFound(w, r)
			return
		}
		h.embedded.ServeHTTP(w, r)
		return
	}

	h.serveDisk(w, r)
}

// resolve maps a request path to a file under root. ok is false when the path escapes root.
func resolve(root, requestPath string) (string, bool) {
	rel := strings.TrimPrefix(filepath.Clean("/"+requestPath), "/")
	if rel == "" {
		rel = "index.html"
	}
	full := filepath.Join(root, rel)
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func (h *StaticFileHandler) serveDisk(w http.ResponseWriter, r *http.Request) {
	root, err := filepath.Abs(h.staticDir)
	if err != nil {
		h.logger.Error("Cannot resolve static directory", logger.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	target, ok := resolve(root, r.URL.Path)
	if !ok {
		h.logger.Warn("Rejected path outside static directory",
			logger.String("requested_path", r.URL.Path),
			logger.String("static_dir", root))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	info, err := os.Stat(target)
	switch {
	case os.IsNotExist(err):
		http.NotFound(w, r)
		return
	case err != nil:
		h.logger.Error("Cannot stat static file", logger.Error(err), logger.String("path", target))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	case info.IsDir():
		target = filepath.Join(target, "index.html")
		if _, err := os.Stat(target); err != nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	// Served from disk so edits to the client show up on reload
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	http.ServeFile(w, r, target)
}
