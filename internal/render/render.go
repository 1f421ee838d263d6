// Package render turns computed market views into the HTML tables the admin,
// the public site and the mailing use.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"grain-admin/internal/market"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Params feeds one market table render.
type Params struct {
	View        *market.View
	Direction   market.Direction
	TaxMode     market.TaxMode
	Station     *market.Station // nil for the market-wide table
	CurrentDate string          // dd.MM.yy
}

type tableData struct {
	Params
	BaseURL      string
	AdminBaseURL string
}

type errorData struct {
	Diagnostics []string
}

// Renderer holds the parsed template set.
type Renderer struct {
	templates    *template.Template
	baseURL      string
	adminBaseURL string
}

// New parses the embedded templates. baseURL prefixes links into the public
// site, adminBaseURL links into the admin UI; both must end in a slash.
func New(baseURL, adminBaseURL string) (*Renderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"money":    Money,
		"moneyPtr": MoneyPtr,
		"dirLabel": directionLabel,
		"ndsLabel": taxLabel,
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t, baseURL: baseURL, adminBaseURL: adminBaseURL}, nil
}

// Has reports whether a table template with this name exists. The error page
// is not addressable by name.
func (r *Renderer) Has(name string) bool {
	return name != "error" && r.templates.Lookup(name+".tmpl") != nil
}

// Render executes the named table template.
func (r *Renderer) Render(name string, p Params) (string, error) {
	tmpl := r.templates.Lookup(name + ".tmpl")
	if tmpl == nil {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, tableData{Params: p, BaseURL: r.baseURL, AdminBaseURL: r.adminBaseURL}); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderError builds the page shown when the market table cannot be
// generated, listing every diagnostic.
func (r *Renderer) RenderError(diagnostics []string) (string, error) {
	tmpl := r.templates.Lookup("error.tmpl")
	if tmpl == nil {
		return "", fmt.Errorf("error template missing")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, errorData{Diagnostics: diagnostics}); err != nil {
		return "", fmt.Errorf("render error page: %w", err)
	}
	return buf.String(), nil
}

func directionLabel(d market.Direction) string {
	switch d {
	case market.Sell:
		return "Продажа"
	case market.Buy:
		return "Покупка"
	}
	return string(d)
}

func taxLabel(m market.TaxMode) string {
	switch m {
	case market.TaxExcluded:
		return "без НДС"
	case market.TaxIncluded:
		return "с НДС"
	}
	return string(m)
}
