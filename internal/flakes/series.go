package flakes

import (
	"sort"

	"github.com/testkube/flakechart/internal/results"
)

// Series summarizes every run of one test in one environment.
type Series struct {
	Test        string  `json:"test"`
	Environment string  `json:"environment"`
	Runs        int     `json:"runs"` // excludes skipped runs
	Failures    int     `json:"failures"`
	Skipped     int     `json:"skipped"`
	FlakeRate   float64 `json:"flakeRate"`
}

// ListSeries returns the distinct test and environment pairs found in records,
// sorted by test and then environment.
func ListSeries(records []results.TestRecord) []Series {
	type key struct{ test, env string }
	index := make(map[key]int)
	var series []Series

	for _, r := range records {
		k := key{r.Name, r.Environment}
		i, ok := index[k]
		if !ok {
			i = len(series)
			index[k] = i
			series = append(series, Series{Test: r.Name, Environment: r.Environment})
		}
		switch r.Status {
		case results.StatusSkipped:
			series[i].Skipped++
		case results.StatusFailed:
			series[i].Runs++
			series[i].Failures++
		default:
			series[i].Runs++
		}
	}

	for i := range series {
		if series[i].Runs > 0 {
			series[i].FlakeRate = float64(series[i].Failures) / float64(series[i].Runs) * 100
		}
	}

	sort.Slice(series, func(i, j int) bool {
		if series[i].Test != series[j].Test {
			return series[i].Test < series[j].Test
		}
		return series[i].Environment < series[j].Environment
	})
	if series == nil {
		series = []Series{}
	}
	return series
}
