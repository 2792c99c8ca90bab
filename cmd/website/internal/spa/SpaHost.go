package spa

import (
	"bytes"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/adampresley/weddingshare/cmd/website/internal/viewmodels"
	"github.com/adampresley/weddingshare/pkg/basepath"
)

const (
	entryDocument = "index.html"
)

// Server owned path prefixes never fall back to the entry document.
var serverPrefixes = []string{"api", "media"}

type SpaHostConfig struct {
	BasePath string
	FS       fs.FS
}

/*
SpaHost serves a built single page app under a base path. Existing files
are served as they are. Paths without an extension are client side routes
and get the entry document; anything else that is missing is a 404.
*/
type SpaHost struct {
	base    string
	fsys    fs.FS
	entry   []byte
	started time.Time
}

func NewSpaHost(config SpaHostConfig) (*SpaHost, error) {
	var (
		err error
		b   []byte
	)

	base := basepath.Normalize(config.BasePath)

	if b, err = fs.ReadFile(config.FS, entryDocument); err != nil {
		return nil, fmt.Errorf("error reading SPA entry document: %w", err)
	}

	if b, err = basepath.RewriteHTML(bytes.NewReader(b), base); err != nil {
		return nil, fmt.Errorf("error rewriting SPA entry document for base path %s: %w", base, err)
	}

	return &SpaHost{
		base:    base,
		fsys:    config.FS,
		entry:   b,
		started: time.Now(),
	}, nil
}

/*
GET {base}
*/
func (h *SpaHost) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p, ok := basepath.Strip(h.base, r.URL.Path)

	if !ok {
		http.NotFound(w, r)
		return
	}

	name := strings.TrimPrefix(path.Clean(p), "/")

	if name == "" || name == "." || name == entryDocument {
		h.serveEntry(w, r)
		return
	}

	if info, err := fs.Stat(h.fsys, name); err == nil && !info.IsDir() {
		if strings.HasPrefix(name, "assets/") {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		}

		http.ServeFileFS(w, r, h.fsys, name)
		return
	}

	if isServerPath(name) {
		viewmodels.WriteMessage(w, http.StatusNotFound, "not found")
		return
	}

	if path.Ext(name) == "" {
		h.serveEntry(w, r)
		return
	}

	http.NotFound(w, r)
}

func (h *SpaHost) serveEntry(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, entryDocument, h.started, bytes.NewReader(h.entry))
}

func isServerPath(name string) bool {
	for _, prefix := range serverPrefixes {
		if name == prefix || strings.HasPrefix(name, prefix+"/") {
			return true
		}
	}

	return false
}
