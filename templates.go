package starapi

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
)

type templateSet struct {
	t *template.Template
}

// LoadTemplates parses every template matching the glob pattern. Templates
// are parsed once and reused across requests.
func (app *Application) LoadTemplates(pattern string) error {
	t, err := template.ParseGlob(pattern)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	app.templates.t = t
	return nil
}

// SetTemplates installs an already parsed template set.
func (app *Application) SetTemplates(t *template.Template) {
	app.templates.t = t
}

// Render executes a named template into a 200 text/html response.
func (app *Application) Render(name string, data any) (*Response, error) {
	if app.templates.t == nil {
		return nil, ErrTemplatesNotLoaded
	}
	var buf bytes.Buffer
	if err := app.templates.t.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render template %q: %w", name, err)
	}
	return HTML(http.StatusOK, buf.String()), nil
}
