package routes

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StaticSite serves the exported storefront and admin pages. Extensionless
// paths resolve to <path>.html or <path>/index.html; unknown paths get
// 404.html when the export has one.
type StaticSite struct {
	root  string
	files http.Handler
}

// NewStaticSite returns nil when dir is empty or missing.
func NewStaticSite(dir string) *StaticSite {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	return &StaticSite{root: dir, files: http.FileServer(http.Dir(dir))}
}

func (s *StaticSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clean := path.Clean("/" + r.URL.Path)

	if s.exists(clean) {
		s.files.ServeHTTP(w, r)
		return
	}
	if path.Ext(clean) == "" {
		for _, candidate := range []string{clean + ".html", path.Join(clean, "index.html")} {
			if s.exists(candidate) {
				s.serveFile(w, r, candidate, http.StatusOK)
				return
			}
		}
	}
	if s.exists("/404.html") {
		s.serveFile(w, r, "/404.html", http.StatusNotFound)
		return
	}
	http.NotFound(w, r)
}

func (s *StaticSite) exists(name string) bool {
	info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(name)))
	if err != nil {
		return false
	}
	if info.IsDir() {
		_, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(name), "index.html"))
		return err == nil
	}
	return true
}

func (s *StaticSite) serveFile(w http.ResponseWriter, r *http.Request, name string, status int) {
	body, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(name)))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}
