package results

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPassed  Status = "Passed"
	StatusFailed  Status = "Failed"
	StatusSkipped Status = "Skipped"
)

// Statuses lists every accepted status in feed order.
var Statuses = []Status{StatusPassed, StatusFailed, StatusSkipped}

func ParseStatus(s string) (Status, bool) {
	for _, status := range Statuses {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

func statusNames() string {
	names := make([]string, len(Statuses))
	for i, s := range Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// TestRecord is one validated row of the feed.
type TestRecord struct {
	Commit      string    `json:"commit"`
	Date        time.Time `json:"date"`
	Environment string    `json:"environment"`
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Duration    float64   `json:"duration"` // seconds
	Line        int       `json:"-"`
}
