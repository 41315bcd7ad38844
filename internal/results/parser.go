package results

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const fieldCount = 6

// Column positions in the feed.
const (
	colCommit = iota
	colDate
	colEnvironment
	colName
	colStatus
	colDuration
)

// dateLayouts are tried in order. Layouts without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 -0700 MST",
	"2006-01-02 15:04:05 -0700",
	time.DateOnly,
	time.RFC1123,
	time.RFC1123Z,
	time.UnixDate,
}

// LineSource is a pull-based sequence of non-empty lines.
type LineSource interface {
	Next() bool
	Text() string
	Err() error
}

type numbered interface {
	Number() int
}

// Parser turns feed lines into validated records. A Parser is used for a single feed.
type Parser struct {
	log      logrus.FieldLogger
	warnings []error
}

func NewParser(log logrus.FieldLogger) *Parser {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Parser{log: log}
}

// Parse parses a feed with the standard logger.
func Parse(lines LineSource) ([]TestRecord, error) {
	return NewParser(nil).Parse(lines)
}

// Warnings returns the diagnostics for every line dropped by the last Parse.
func (p *Parser) Warnings() []error {
	return p.warnings
}

// Parse consumes the header and every data line of lines. Malformed data lines are
// dropped with a warning; only a bad header, a read failure or an empty result fail the parse.
func (p *Parser) Parse(lines LineSource) ([]TestRecord, error) {
	p.warnings = nil

	lineNumber := func(count int) int {
		if n, ok := lines.(numbered); ok {
			return n.Number()
		}
		return count
	}

	if !lines.Next() {
		if err := lines.Err(); err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		return nil, &SchemaError{}
	}
	header := lines.Text()
	if len(strings.Split(header, ",")) != fieldCount {
		return nil, &SchemaError{Header: header}
	}

	var records []TestRecord
	// Last resolved fields; an empty field repeats the value above it.
	previous := make([]string, fieldCount)
	count := 1
	dataLines := 0

	for lines.Next() {
		count++
		dataLines++
		line := lines.Text()
		number := lineNumber(count)

		fields := strings.Split(line, ",")
		if len(fields) != fieldCount {
			p.warn(number, &LineShapeWarning{Line: number, Content: line, Fields: len(fields)})
			continue
		}
		for i, value := range fields {
			if value == "" {
				fields[i] = previous[i]
			}
		}
		previous = fields

		record, err := newRecord(fields, number)
		if err != nil {
			p.warn(number, err)
			continue
		}
		records = append(records, record)
	}
	if err := lines.Err(); err != nil {
		return nil, fmt.Errorf("failed to read data lines: %w", err)
	}

	if len(records) == 0 {
		return nil, &EmptyDatasetError{Lines: dataLines, Warnings: len(p.warnings)}
	}

	p.log.WithFields(logrus.Fields{
		"records":  len(records),
		"rejected": len(p.warnings),
	}).Debug("Parsed test results")
	return records, nil
}

func (p *Parser) warn(line int, err error) {
	p.warnings = append(p.warnings, err)
	p.log.WithFields(logrus.Fields{
		"line":   line,
		"reason": warningReason(err),
	}).Warn(err.Error())
}

func warningReason(err error) string {
	switch err.(type) {
	case *LineShapeWarning:
		return "shape"
	case *EnumValidationWarning:
		return "status"
	case *FieldParseWarning:
		return "field"
	default:
		return "unknown"
	}
}

// newRecord builds a record from six resolved fields.
func newRecord(fields []string, line int) (TestRecord, error) {
	status, ok := ParseStatus(fields[colStatus])
	if !ok {
		return TestRecord{}, &EnumValidationWarning{Line: line, Value: fields[colStatus]}
	}

	date, err := parseDate(fields[colDate])
	if err != nil {
		return TestRecord{}, &FieldParseWarning{Line: line, Field: "date", Value: fields[colDate], Err: err}
	}

	duration, err := parseDuration(fields[colDuration])
	if err != nil {
		return TestRecord{}, &FieldParseWarning{Line: line, Field: "duration", Value: fields[colDuration], Err: err}
	}

	return TestRecord{
		Commit:      fields[colCommit],
		Date:        date,
		Environment: fields[colEnvironment],
		Name:        fields[colName],
		Status:      status,
		Duration:    duration,
		Line:        line,
	}, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

func parseDuration(value string) (float64, error) {
	if value == "" {
		return 0, errors.New("empty duration")
	}
	d, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0, errors.New("duration must be a non-negative number of seconds")
	}
	return d, nil
}
