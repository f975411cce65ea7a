package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFiles = []string{"dashboard.html", "operation.html"}

func mustParsePages() map[string]*template.Template {
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		pages[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return pages
}

// render executes a page into a buffer first, so a template error never
// produces a half-written page.
func (c *Console) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := c.pages[page]
	if !ok {
		respondError(w, http.StatusInternalServerError, "unknown page")
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		c.logger.Error("template rendering failed", zap.String("page", page), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "rendering failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
