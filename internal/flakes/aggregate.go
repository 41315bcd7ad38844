package flakes

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"

	"github.com/testkube/flakechart/internal/results"
)

// Sample is one run inside a Row, kept for tooltips.
type Sample struct {
	Commit   string         `json:"commit"`
	Status   results.Status `json:"status"`
	Duration float64        `json:"duration"`
}

// Row is one chart point: every run of a test in an environment that shares the same date.
type Row struct {
	Date      time.Time `json:"date"`
	FlakeRate float64   `json:"flakeRate"` // percent, 0-100
	Duration  float64   `json:"duration"`  // mean seconds
	Samples   []Sample  `json:"samples"`
}

// Aggregate filters records down to the unskipped runs of testName in environment,
// groups them by exact date and returns one Row per date in ascending order.
func Aggregate(records []results.TestRecord, testName, environment string) []Row {
	groups := make(map[int64][]results.TestRecord)
	var order []int64

	for _, r := range records {
		if r.Name != testName || r.Environment != environment || r.Status == results.StatusSkipped {
			continue
		}
		key := r.Date.UnixNano()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	rows := make([]Row, 0, len(order))
	for _, key := range order {
		rows = append(rows, newRow(groups[key]))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows
}

func newRow(group []results.TestRecord) Row {
	rates := make([]float64, len(group))
	durations := make([]float64, len(group))
	samples := make([]Sample, len(group))

	for i, r := range group {
		if r.Status == results.StatusFailed {
			rates[i] = 100
		}
		durations[i] = r.Duration
		samples[i] = Sample{Commit: r.Commit, Status: r.Status, Duration: r.Duration}
	}

	return Row{
		Date:      group[0].Date,
		FlakeRate: mean(rates),
		Duration:  mean(durations),
		Samples:   samples,
	}
}

// mean is 0 for an empty input.
func mean(values []float64) float64 {
	m, err := stats.Mean(stats.Float64Data(values))
	if err != nil {
		if len(values) > 0 {
			logrus.WithError(err).Warn("Failed to calculate mean")
		}
		return 0
	}
	return m
}
