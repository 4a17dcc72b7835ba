// internal/server/templates.go
package server

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

//go:embed web/templates web/static
var rawContent embed.FS

const adminLayout = "admin/layout.html"

// loadTemplates parses every embedded HTML template into the server cache,
// keyed by its path relative to web/templates. Admin pages are parsed
// together with the admin layout.
func (s *Server) loadTemplates() error {
	templatesFS, err := fs.Sub(rawContent, "web/templates")
	if err != nil {
		return fmt.Errorf("failed to create templates filesystem: %w", err)
	}

	funcMap := s.templateFuncs()
	cache := make(map[string]*template.Template)

	err = fs.WalkDir(templatesFS, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(name, ".html") {
			return nil
		}
		if name == adminLayout {
			// Parsed alongside each admin page, never on its own.
			return nil
		}

		var tmpl *template.Template
		if strings.HasPrefix(name, "admin/") {
			tmpl, err = template.New(path.Base(name)).Funcs(funcMap).ParseFS(templatesFS, name, adminLayout)
		} else {
			tmpl, err = template.New(path.Base(name)).Funcs(funcMap).ParseFS(templatesFS, name)
		}
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		cache[name] = tmpl
		return nil
	})
	if err != nil {
		return fmt.Errorf("error walking templates: %w", err)
	}

	s.templates = cache
	return nil
}

// renderTemplate executes the named template from the cache. Admin pages
// render through the layout template.
func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data interface{}) error {
	tmpl, ok := s.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if strings.HasPrefix(name, "admin/") {
		return tmpl.ExecuteTemplate(w, "layout.html", data)
	}
	return tmpl.ExecuteTemplate(w, path.Base(name), data)
}

// extractStaticAssets copies the embedded static files into the data
// directory, next to uploaded images, so one file server covers both.
// Existing files are overwritten when their size differs.
func (s *Server) extractStaticAssets() error {
	staticFS, err := fs.Sub(rawContent, "web/static")
	if err != nil {
		return fmt.Errorf("failed to create static filesystem: %w", err)
	}

	return fs.WalkDir(staticFS, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		localPath := filepath.Join(s.config.DataPath, "static", name)
		if d.IsDir() {
			return os.MkdirAll(localPath, 0755)
		}

		content, err := fs.ReadFile(staticFS, name)
		if err != nil {
			return fmt.Errorf("failed to read embedded file %s: %w", name, err)
		}
		if stat, err := os.Stat(localPath); err == nil && stat.Size() == int64(len(content)) {
			return nil
		}
		if err := os.WriteFile(localPath, content, 0644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", localPath, err)
		}
		s.logger.Printf("Updated: %s", localPath)
		return nil
	})
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},
		"summary": func(text string, maxLength int) string {
			return summarize(text, maxLength)
		},
		"toJSON": func(v interface{}) template.JS {
			b, err := json.Marshal(v)
			if err != nil {
				return template.JS("null")
			}
			return template.JS(b)
		},
	}
}
