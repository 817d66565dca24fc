package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/osteele/liquid"

	"github.com/ignite/unitchange-alerts/internal/changelist"
	"github.com/ignite/unitchange-alerts/internal/domain"
)

// Styles are inline so mail clients keep them.
const tableTemplate = `<html>
  <head><meta charset="utf-8"><title>{{ title | escape }}</title></head>
  <body style="font-family:-apple-system,BlinkMacSystemFont,Segoe UI,Roboto,Helvetica,Arial,sans-serif;">
    <div style="max-width:1080px;margin:0 auto;padding:12px 16px;">
      <h1 style="font-size:18px;margin:0 0 4px;">{{ title | escape }}</h1>
      <h2 style="font-size:14px;font-weight:normal;color:#555;margin:0 0 12px;">{{ subtitle | escape }}</h2>
      <div style="font-size:12px;color:#666;margin-bottom:10px;">Generated: {{ generated }}</div>
      {%- if report_url != "" %}
      <p style="font-size:13px;margin:0 0 10px;"><a href="{{ report_url | escape }}">{{ report_label | escape }}</a></p>
      {%- endif %}
      <table style="border-collapse:collapse;width:100%;font-size:13px;">
        <thead><tr>{% for col in columns %}<th style="border:1px solid #ddd;padding:6px 8px;text-align:left;background:#f4f6f8;">{{ col | escape }}</th>{% endfor %}</tr></thead>
        <tbody>
        {%- for row in rows %}
          <tr{% if row.color != "" %} style="background-color: {{ row.color | escape }};"{% endif %}>{% for cell in row.cells %}<td style="border:1px solid #ddd;padding:6px 8px;text-align:left;">{{ cell | escape }}</td>{% endfor %}</tr>
        {%- endfor %}
        </tbody>
      </table>
    </div>
  </body>
</html>
`

// Page is everything that ends up in one rendered email body.
type Page struct {
	Title       string
	Subtitle    string
	ReportURL   string
	ReportLabel string
	Generated   time.Time
	Subset      *changelist.Subset
}

// Renderer turns sorted subsets into HTML and expands the short text
// templates used for subjects and headings. Safe for concurrent use.
type Renderer struct {
	engine *liquid.Engine
	table  *liquid.Template
	colors StatusColors
	rank   StatusRank

	cache sync.Map // template source -> *liquid.Template
}

// NewRenderer parses the report template once.
func NewRenderer(rank StatusRank, colors StatusColors) (*Renderer, error) {
	engine := liquid.NewEngine()
	tpl, err := engine.ParseString(tableTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &Renderer{engine: engine, table: tpl, colors: colors, rank: rank}, nil
}

// Render sorts the page's subset and renders the HTML document. Cell text is
// HTML-escaped; rows are colored by their STATUS.
func (r *Renderer) Render(p Page) (string, error) {
	s := p.Subset
	if s == nil {
		s = &changelist.Subset{}
	}
	s = SortForSend(r.rank, s)

	rows := make([]map[string]any, 0, s.Len())
	for i, ev := range s.Events {
		cells := make([]string, 0, len(s.Columns))
		for _, v := range s.Row(i) {
			cells = append(cells, domain.Text(v))
		}
		rows = append(rows, map[string]any{
			"color": r.colors.Of(ev.Status),
			"cells": cells,
		})
	}

	generated := p.Generated
	if generated.IsZero() {
		generated = time.Now()
	}

	out, err := r.table.RenderString(liquid.Bindings{
		"title":        p.Title,
		"subtitle":     p.Subtitle,
		"report_url":   p.ReportURL,
		"report_label": reportLabel(p),
		"generated":    generated.Format(domain.DisplayTimeLayout),
		"columns":      s.Columns,
		"rows":         rows,
	})
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return out, nil
}

// Text expands a liquid template such as a subject line. Parsed templates
// are cached by source.
func (r *Renderer) Text(src string, vars map[string]any) (string, error) {
	var tpl *liquid.Template
	if cached, ok := r.cache.Load(src); ok {
		tpl = cached.(*liquid.Template)
	} else {
		parsed, err := r.engine.ParseString(src)
		if err != nil {
			return "", fmt.Errorf("parse template %q: %w", src, err)
		}
		r.cache.Store(src, parsed)
		tpl = parsed
	}

	out, err := tpl.RenderString(vars)
	if err != nil {
		return "", fmt.Errorf("render template %q: %w", src, err)
	}
	return out, nil
}

func reportLabel(p Page) string {
	if p.ReportLabel != "" {
		return p.ReportLabel
	}
	return p.ReportURL
}
