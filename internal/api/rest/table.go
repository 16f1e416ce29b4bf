package rest

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
)

var riskTable = template.Must(template.New("risky_users").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Risky users</title>
<style>
body { font-family: sans-serif; margin: 24px; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: right; }
th { background: #f5f5f5; }
tr.anomalous { background: #fdecea; }
td.user { text-align: left; }
</style>
</head>
<body>
<h1>Risky users</h1>
{{- if .Rows}}
<table>
<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr{{if .Anomalous}} class="anomalous"{{end}}>{{range $i, $c := .Cells}}<td{{if eq $i 0}} class="user"{{end}}>{{$c}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
{{- else}}
<p>No model has been trained yet.</p>
{{- end}}
</body>
</html>
`))

type tableRow struct {
	Anomalous bool
	Cells     []string
}

type tableView struct {
	Header []string
	Rows   []tableRow
}

func newTableView(records []features.Record) tableView {
	view := tableView{}
	if len(records) == 0 {
		return view
	}
	view.Header = append([]string{features.ColumnUser}, features.Columns...)
	view.Header = append(view.Header, features.ColumnScore, features.ColumnRank, features.ColumnAnomalous)
	for _, rec := range records {
		row := tableRow{Cells: make([]string, len(view.Header))}
		for i, col := range view.Header {
			row.Cells[i] = formatCell(rec[col])
		}
		row.Anomalous, _ = rec[features.ColumnAnomalous].(bool)
		view.Rows = append(view.Rows, row)
	}
	return view
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%.4f", x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func renderRiskTable(w http.ResponseWriter, records []features.Record) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return riskTable.Execute(w, newTableView(records))
}
