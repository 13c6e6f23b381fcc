// Package site serves the exported marketing site for every route the API
// does not claim. It runs behind the page route guard.
package site

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"ura-backend/internal/delivery/http/response"

	"github.com/gin-gonic/gin"
)

const notFoundPage = "404.html"

type Handler struct {
	root string
}

// New returns nil when dir is empty; Serve on a nil handler answers every
// page with the JSON 404 envelope.
func New(dir string) *Handler {
	if dir == "" {
		return nil
	}
	return &Handler{root: dir}
}

// Serve resolves /a/b to a/b, a/b.html or a/b/index.html under the root.
func (h *Handler) Serve(c *gin.Context) {
	if h == nil || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
		response.NotFound(c, "Route not found")
		return
	}

	if file, ok := h.resolve(c.Request.URL.Path); ok {
		if err := serveFile(c, file); err == nil {
			return
		}
	}

	if file, ok := h.existing(notFoundPage); ok {
		if body, err := os.ReadFile(file); err == nil {
			c.Data(http.StatusNotFound, "text/html; charset=utf-8", body)
			return
		}
	}
	response.NotFound(c, "Page not found")
}

func serveFile(c *gin.Context, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
	return nil
}

func (h *Handler) resolve(urlPath string) (string, bool) {
	clean := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if clean == "" {
		return h.existing("index.html")
	}
	for _, candidate := range []string{clean, clean + ".html", path.Join(clean, "index.html")} {
		if file, ok := h.existing(candidate); ok {
			return file, true
		}
	}
	return "", false
}

// existing maps a slash path under the root to a regular file.
func (h *Handler) existing(rel string) (string, bool) {
	file := filepath.Join(h.root, filepath.FromSlash(rel))
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return "", false
	}
	return file, true
}
