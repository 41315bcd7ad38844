package charts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/testkube/flakechart/internal/flakes"
)

const (
	flakeColor    = "#dc3912"
	durationColor = "#3366cc"
	pointSize     = 10
)

// Tooltips are pre-rendered HTML stored in each point's name.
const tooltipFormatter = `function (params) { return params.data && params.data.name ? params.data.name : ''; }`

// EngineError is returned when the chart assets cannot be reached.
type EngineError struct {
	Host string
	Err  error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("chart engine not ready at %s: %v", e.Host, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

type Generator struct {
	assetsHost string
	httpClient *http.Client
}

// NewGenerator creates a generator that loads echarts from assetsHost. An empty host
// uses the go-echarts default and skips the readiness probe.
func NewGenerator(assetsHost string) *Generator {
	if assetsHost != "" && !strings.HasSuffix(assetsHost, "/") {
		assetsHost += "/"
	}
	return &Generator{
		assetsHost: assetsHost,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Ready checks that the echarts script is served by the configured assets host.
func (g *Generator) Ready(ctx context.Context) error {
	if g.assetsHost == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, g.assetsHost+"echarts.min.js", nil)
	if err != nil {
		return &EngineError{Host: g.assetsHost, Err: err}
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return &EngineError{Host: g.assetsHost, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &EngineError{Host: g.assetsHost, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}

func Title(testName, environment string) string {
	return fmt.Sprintf("Flake rate and duration by day of %s on %s", testName, environment)
}

// FlakeChart plots flake rate on the left axis and duration on the right axis, one point per row.
func (g *Generator) FlakeChart(testName, environment string, rows []flakes.Row) (*charts.Line, error) {
	chartRows, err := BuildRows(rows)
	if err != nil {
		return nil, err
	}

	title := Title(testName, environment)
	subtitle := ""
	if len(chartRows) == 0 {
		subtitle = "No runs found for this test and environment"
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  title,
			Height:     "600px",
			Width:      "100%",
			AssetsHost: g.assetsHost,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "item",
			TriggerOn: "click",
			Formatter: opts.FuncOpts(tooltipFormatter),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithColorsOpts(opts.Colors{flakeColor, durationColor}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Flake rate", Min: 0, Max: 100}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "Duration (seconds)"})

	xAxis := make([]string, len(chartRows))
	flakeData := make([]opts.LineData, len(chartRows))
	durationData := make([]opts.LineData, len(chartRows))

	for i, row := range chartRows {
		xAxis[i] = formatDate(row.Date)
		flakeData[i] = opts.LineData{Name: row.FlakeTooltip, Value: row.FlakeRate, Symbol: "circle", SymbolSize: pointSize}
		durationData[i] = opts.LineData{Name: row.DurationTooltip, Value: row.Duration, Symbol: "circle", SymbolSize: pointSize}
	}

	line.SetXAxis(xAxis).
		AddSeries("Flake Percentage", flakeData).
		AddSeries("Duration", durationData, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))

	return line, nil
}

// Render writes the chart page for rows to w.
func (g *Generator) Render(w io.Writer, testName, environment string, rows []flakes.Row) error {
	line, err := g.FlakeChart(testName, environment, rows)
	if err != nil {
		return err
	}
	// Render into a buffer so a failure never leaves a partial page.
	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}
