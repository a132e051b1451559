package service

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/rankreport/rankreport-backend/internal/domain"
)

const reportDocument = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Report.Title}}</title>
<style>
@page { size: A4; margin: 18mm; }
body { font-family: Helvetica, Arial, sans-serif; color: #1f2933; }
h1 { font-size: 22px; margin-bottom: 4px; }
.period { color: #616e7c; margin-top: 0; }
.cards { display: flex; gap: 12px; margin: 16px 0; }
.card { flex: 1; border: 1px solid #e4e7eb; border-radius: 6px; padding: 10px; }
.card .label { font-size: 11px; color: #616e7c; text-transform: uppercase; }
.card .value { font-size: 20px; font-weight: bold; }
table { width: 100%; border-collapse: collapse; font-size: 12px; }
th, td { text-align: left; padding: 6px; border-bottom: 1px solid #e4e7eb; }
section { page-break-inside: avoid; margin-bottom: 20px; }
</style>
</head>
<body>
<h1>{{.Report.Title}}</h1>
<p class="period">{{.Client.Domain}} &middot; {{.Metrics.Period.Start}} to {{.Metrics.Period.End}}</p>
{{with .Metrics.SearchConsole}}
<section>
<h2>Search performance</h2>
<div class="cards">
<div class="card"><div class="label">Clicks</div><div class="value">{{printf "%.0f" .Clicks}}</div></div>
<div class="card"><div class="label">Impressions</div><div class="value">{{printf "%.0f" .Impressions}}</div></div>
<div class="card"><div class="label">CTR</div><div class="value">{{percent .CTR}}</div></div>
<div class="card"><div class="label">Avg. position</div><div class="value">{{printf "%.1f" .Position}}</div></div>
</div>
{{if .TopQueries}}
<h3>Top queries</h3>
<table>
<tr><th>Query</th><th>Clicks</th><th>Impressions</th><th>CTR</th><th>Position</th></tr>
{{range .TopQueries}}<tr><td>{{.Key}}</td><td>{{printf "%.0f" .Clicks}}</td><td>{{printf "%.0f" .Impressions}}</td><td>{{percent .CTR}}</td><td>{{printf "%.1f" .Position}}</td></tr>
{{end}}</table>
{{end}}
{{if .TopPages}}
<h3>Top pages</h3>
<table>
<tr><th>Page</th><th>Clicks</th><th>Impressions</th></tr>
{{range .TopPages}}<tr><td>{{.Key}}</td><td>{{printf "%.0f" .Clicks}}</td><td>{{printf "%.0f" .Impressions}}</td></tr>
{{end}}</table>
{{end}}
</section>
{{end}}
{{with .Metrics.Analytics}}
<section>
<h2>Website traffic</h2>
<div class="cards">
<div class="card"><div class="label">Sessions</div><div class="value">{{.Sessions}}</div></div>
<div class="card"><div class="label">Users</div><div class="value">{{.TotalUsers}}</div></div>
<div class="card"><div class="label">New users</div><div class="value">{{.NewUsers}}</div></div>
<div class="card"><div class="label">Bounce rate</div><div class="value">{{percent .BounceRate}}</div></div>
</div>
</section>
{{end}}
{{if .Metrics.CustomMetrics}}
<section>
<h2>Additional metrics</h2>
<table>
{{range .Metrics.CustomMetrics}}<tr><td>{{.Name}}</td><td>{{.Value}} {{.Unit}}</td></tr>
{{end}}</table>
</section>
{{end}}
{{if .Metrics.Insights}}
<section>
<h2>Insights</h2>
<ul>
{{range .Metrics.Insights}}<li>{{.}}</li>
{{end}}</ul>
</section>
{{end}}
<footer><small>Generated {{.Metrics.GeneratedAt.Format "January 2, 2006 15:04 MST"}}</small></footer>
</body>
</html>
`

// ReportRenderer produces the print-ready HTML document for a completed report
type ReportRenderer struct {
	tmpl *template.Template
}

// NewReportRenderer parses the document template
func NewReportRenderer() *ReportRenderer {
	funcs := template.FuncMap{
		"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	}
	return &ReportRenderer{
		tmpl: template.Must(template.New("report").Funcs(funcs).Parse(reportDocument)),
	}
}

// Render writes the document for report with metrics
func (r *ReportRenderer) Render(report *domain.Report, client *domain.Client, metrics *domain.MetricsV1) ([]byte, error) {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, struct {
		Report  *domain.Report
		Client  *domain.Client
		Metrics *domain.MetricsV1
	}{report, client, metrics})
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}
