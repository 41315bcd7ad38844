package charts

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/testkube/flakechart/internal/flakes"
)

// ChartRow is what the chart needs for one date: the flake rate and mean duration,
// each with its hover text.
type ChartRow struct {
	Date            time.Time
	FlakeRate       float64
	FlakeTooltip    string
	Duration        float64
	DurationTooltip string
}

var tooltips = template.Must(template.New("tooltips").Parse(`
{{- define "flake" -}}
<div class="py-2 ps-2">
  <b>{{.Date}}</b><br>
  <b>Flake Percentage:</b> {{printf "%.2f" .Row.FlakeRate}}%<br>
  <b>Hashes:</b><br>
  {{range $i, $s := .Row.Samples}}{{if $i}}<br>{{end}}  - {{$s.Commit}} ({{$s.Status}}){{end}}
</div>
{{- end -}}
{{- define "duration" -}}
<div class="py-2 ps-2">
  <b>{{.Date}}</b><br>
  <b>Average Duration:</b> {{printf "%.2f" .Row.Duration}}s<br>
  <b>Hashes:</b><br>
  {{range $i, $s := .Row.Samples}}{{if $i}}<br>{{end}}  - {{$s.Commit}} ({{$s.Duration}}s){{end}}
</div>
{{- end -}}
`))

type tooltipData struct {
	Date string
	Row  flakes.Row
}

// BuildRows turns aggregate rows into chart rows, keeping their order.
func BuildRows(rows []flakes.Row) ([]ChartRow, error) {
	out := make([]ChartRow, 0, len(rows))
	for _, row := range rows {
		data := tooltipData{Date: row.Date.Format("Mon Jan 02 2006 15:04:05 MST"), Row: row}

		flake, err := renderTooltip("flake", data)
		if err != nil {
			return nil, err
		}
		duration, err := renderTooltip("duration", data)
		if err != nil {
			return nil, err
		}

		out = append(out, ChartRow{
			Date:            row.Date,
			FlakeRate:       row.FlakeRate,
			FlakeTooltip:    flake,
			Duration:        row.Duration,
			DurationTooltip: duration,
		})
	}
	return out, nil
}

func renderTooltip(name string, data tooltipData) (string, error) {
	var b strings.Builder
	if err := tooltips.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s tooltip: %w", name, err)
	}
	return b.String(), nil
}
