package api

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"github.com/kalambet/ytbrief/internal/storage"
)

const emptyIndex = "# AI Knowledge Hub\n\nNo transcripts have been indexed yet. Run an ingestion to populate the library.\n"

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.55; color: #1f2328; }
a { color: #0969da; }
hr { border: 0; border-top: 1px solid #d0d7de; }
nav { margin-bottom: 1.5rem; font-size: 0.9rem; }
</style>
</head>
<body>
{{if .Back}}<nav><a href="/">&larr; Index</a></nav>{{end}}
{{.Body}}
</body>
</html>
`))

type pageData struct {
	Title string
	Back  bool
	Body  template.HTML
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(md) + "</pre>")
	}
	return template.HTML(buf.String())
}

func handlePage(deps Deps, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderFile(w, r, deps, name)
	}
}

func handleFilePage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderFile(w, r, deps, chi.URLParam(r, "file"))
	}
}

func renderFile(w http.ResponseWriter, r *http.Request, deps Deps, name string) {
	md, err := deps.Library.Body(name)
	var pte *storage.PathTraversalError
	switch {
	case errors.Is(err, storage.ErrNotFound) && name == storage.IndexFile:
		md = emptyIndex
	case errors.Is(err, storage.ErrNotFound), errors.As(err, &pte):
		http.NotFound(w, r)
		return
	case err != nil:
		deps.logger().Error("rendering page", "file", name, "error", err)
		http.Error(w, "failed to read page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	data := pageData{
		Title: pageTitle(md, name),
		Back:  name != storage.IndexFile,
		Body:  renderMarkdown(md),
	}
	if err := pageTemplate.Execute(&buf, data); err != nil {
		deps.logger().Error("executing page template", "file", name, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// pageTitle returns the first level-one heading of md, or fallback.
func pageTitle(md, fallback string) string {
	for _, line := range strings.Split(md, "\n") {
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return fallback
}
