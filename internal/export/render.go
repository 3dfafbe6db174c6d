package export

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"billtracker/web"
)

// Renderer lays a Report out as a document.
type Renderer interface {
	Render(w io.Writer, r Report) error
	ContentType() string
	Extension() string
}

// HTMLRenderer produces a printable HTML page from the embedded template.
type HTMLRenderer struct {
	tmpl *template.Template
}

func NewHTMLRenderer() (*HTMLRenderer, error) {
	return NewHTMLRendererFS(web.Templates, web.ReportTemplate)
}

// NewHTMLRendererFS parses the report template at name inside fsys.
func NewHTMLRendererFS(fsys fs.FS, name string) (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

func (h *HTMLRenderer) Render(w io.Writer, r Report) error {
	if err := h.tmpl.Execute(w, r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func (h *HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }

func (h *HTMLRenderer) Extension() string { return "html" }
