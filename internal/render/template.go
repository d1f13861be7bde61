package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
)

// ErrTemplateNotFound means the named template is not deployed. Not retryable.
var ErrTemplateNotFound = errors.New("template not found")

//go:embed templates/*.html
var embedded embed.FS

// TemplateRenderer parses a set of HTML templates once and renders them by name.
// The parsed set is shared read-only across concurrent runs.
type TemplateRenderer struct {
	set *template.Template
}

// NewTemplateRenderer parses every *.html file in fsys.
func NewTemplateRenderer(fsys fs.FS) (*TemplateRenderer, error) {
	set, err := template.New("").Option("missingkey=zero").ParseFS(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateRenderer{set: set}, nil
}

// DefaultTemplates returns the embedded templates, or dir's templates when dir is set.
func DefaultTemplates(dir string) (*TemplateRenderer, error) {
	if dir != "" {
		return NewTemplateRenderer(os.DirFS(dir))
	}
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return NewTemplateRenderer(sub)
}

// Has reports whether a template with the given name was parsed.
func (r *TemplateRenderer) Has(name string) bool {
	return r.set.Lookup(name) != nil
}

// Render executes the named template against fields.
func (r *TemplateRenderer) Render(name string, fields map[string]any) (string, error) {
	tmpl := r.set.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, fields); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
