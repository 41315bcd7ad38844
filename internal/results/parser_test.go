package results

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testkube/flakechart/internal/feed"
)

const header = "Commit Hash,Test Date,Environment,Test,Status,Duration"

func lines(rows ...string) *feed.Lines {
	return feed.NewLines(strings.NewReader(strings.Join(rows, "\n") + "\n"))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	records, err := Parse(lines(
		header,
		"A,2024-01-01,env1,t1,Passed,5",
		"B,2024-01-02,env2,t2,Failed,7.25",
		"C,2024-01-03,env1,t1,Skipped,0",
	))
	require.NoError(t, err)

	expected := []TestRecord{
		{Commit: "A", Date: day(2024, 1, 1), Environment: "env1", Name: "t1", Status: StatusPassed, Duration: 5, Line: 2},
		{Commit: "B", Date: day(2024, 1, 2), Environment: "env2", Name: "t2", Status: StatusFailed, Duration: 7.25, Line: 3},
		{Commit: "C", Date: day(2024, 1, 3), Environment: "env1", Name: "t1", Status: StatusSkipped, Duration: 0, Line: 4},
	}
	if diff := cmp.Diff(expected, records); diff != "" {
		t.Errorf("records differ (-want +got):\n%s", diff)
	}
}

func TestParseHeaderIsNotARecord(t *testing.T) {
	records, err := Parse(lines(
		"commit,2024-01-01,env,name,Passed,1",
		"A,2024-01-01,env1,t1,Passed,5",
	))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].Commit)
}

func TestParseSchemaError(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing field", header: "Commit Hash,Test Date,Environment,Test,Status"},
		{name: "extra field", header: "Commit Hash,Test Date,Environment,Test,Status,Duration,Extra"},
		{name: "single field", header: "Commit Hash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &countingSource{Lines: lines(tt.header, "A,2024-01-01,env1,t1,Passed,5")}
			_, err := Parse(src)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tt.header, schemaErr.Header)
			assert.Contains(t, err.Error(), tt.header)
			assert.Equal(t, 1, src.pulled, "no data line should be read after a bad header")
		})
	}
}

func TestParseEmptyFeed(t *testing.T) {
	_, err := Parse(feed.NewLines(strings.NewReader("\n\n")))

	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestParseCarryForward(t *testing.T) {
	records, err := Parse(lines(
		header,
		"A,2024-01-01,env1,t1,Passed,5",
		",,,,Failed,",
	))
	require.NoError(t, err)
	require.Len(t, records, 2)

	resolved := records[1]
	resolved.Line = 0
	assert.Equal(t, TestRecord{
		Commit:      "A",
		Date:        day(2024, 1, 1),
		Environment: "env1",
		Name:        "t1",
		Status:      StatusFailed,
		Duration:    5,
	}, resolved)
}

func TestParseCarryForwardUnsetBaseline(t *testing.T) {
	records, err := Parse(lines(
		header,
		",2024-01-01,env1,t1,Passed,5",
	))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].Commit)
}

func TestParseCarryForwardFromRejectedStatus(t *testing.T) {
	records, err := Parse(lines(
		header,
		"A,2024-01-01,env1,t1,Passed,5",
		"B,2024-02-02,env2,t2,Unknown,9",
		",,,,Failed,",
	))
	require.NoError(t, err)
	require.Len(t, records, 2)

	// The rejected line still becomes the carry-forward baseline.
	assert.Equal(t, "B", records[1].Commit)
	assert.Equal(t, day(2024, 2, 2), records[1].Date)
	assert.Equal(t, "env2", records[1].Environment)
	assert.Equal(t, "t2", records[1].Name)
	assert.Equal(t, 9.0, records[1].Duration)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	input := []string{
		header,
		"A,2024-01-01,env1,t1,Passed,5",
		"B,2024-01-01,env1,t1,Passed",         // 5 fields
		"C,2024-01-01,env1,t1,Passed,5,extra", // 7 fields
		"D,2024-01-01,env1,t1,Skippedd,5",     // bad status
		"E,2024-01-02,env1,t1,Failed,3",
	}
	parser := NewParser(nil)
	records, err := parser.Parse(lines(input...))
	require.NoError(t, err)

	malformed, rejected := 2, 1
	assert.Len(t, records, len(input)-1-malformed-rejected)
	assert.Equal(t, "A", records[0].Commit)
	assert.Equal(t, "E", records[1].Commit)
	assert.Len(t, parser.Warnings(), malformed+rejected)
}

func TestParseSkipsOversizedLine(t *testing.T) {
	oversized := "C," + strings.Repeat("x", 2*1024*1024)
	parser := NewParser(nil)
	records, err := parser.Parse(lines(
		header,
		"A,2024-01-01,env1,t1,Passed,5",
		oversized,
		"B,2024-01-02,env1,t1,Failed,3",
	))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].Commit)
	assert.Equal(t, "B", records[1].Commit)

	require.Len(t, parser.Warnings(), 1)
	var shape *LineShapeWarning
	require.True(t, errors.As(parser.Warnings()[0], &shape))
	assert.Equal(t, 3, shape.Line)
	assert.Equal(t, 2, shape.Fields)
	assert.Less(t, len(shape.Error()), 512)
}

func TestParseLineShapeWarning(t *testing.T) {
	parser := NewParser(nil)
	_, err := parser.Parse(lines(
		header,
		"A,2024-01-01,env1,t1,Passed",
		"B,2024-01-01,env1,t1,Passed,5",
	))
	require.NoError(t, err)
	require.Len(t, parser.Warnings(), 1)

	var shape *LineShapeWarning
	require.True(t, errors.As(parser.Warnings()[0], &shape))
	assert.Equal(t, 2, shape.Line)
	assert.Equal(t, 5, shape.Fields)
	assert.Equal(t, "A,2024-01-01,env1,t1,Passed", shape.Content)
}

func TestParseEnumValidationWarning(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	parser := NewParser(logger)

	_, err := parser.Parse(lines(
		header,
		"A,2024-01-01,env1,t1,Skippedd,5",
		"B,2024-01-01,env1,t1,Passed,5",
	))
	require.NoError(t, err)
	require.Len(t, parser.Warnings(), 1)

	var enum *EnumValidationWarning
	require.True(t, errors.As(parser.Warnings()[0], &enum))
	assert.Equal(t, "Skippedd", enum.Value)

	message := enum.Error()
	for _, s := range []string{"Skippedd", "Passed", "Failed", "Skipped"} {
		assert.Contains(t, message, s)
	}

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, message, entry.Message)
	assert.Equal(t, "status", entry.Data["reason"])
	assert.Equal(t, 2, entry.Data["line"])
}

func TestParseFieldParseWarning(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		field string
	}{
		{name: "bad date", line: "A,yesterday,env1,t1,Passed,5", field: "date"},
		{name: "empty date without baseline", line: "A,,env1,t1,Passed,5", field: "date"},
		{name: "bad duration", line: "A,2024-01-01,env1,t1,Passed,fast", field: "duration"},
		{name: "negative duration", line: "A,2024-01-01,env1,t1,Passed,-1", field: "duration"},
		{name: "nan duration", line: "A,2024-01-01,env1,t1,Passed,NaN", field: "duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser(nil)
			_, err := parser.Parse(lines(header, tt.line, "B,2024-01-01,env1,t1,Passed,5"))
			require.NoError(t, err)
			require.Len(t, parser.Warnings(), 1)

			var field *FieldParseWarning
			require.True(t, errors.As(parser.Warnings()[0], &field))
			assert.Equal(t, tt.field, field.Field)
		})
	}
}

func TestParseEmptyDataset(t *testing.T) {
	tests := []struct {
		name string
		rows []string
	}{
		{name: "header only", rows: []string{header}},
		{name: "all lines malformed", rows: []string{header, "a,b", "a,b,c,d,e,f,g", "A,2024-01-01,env1,t1,Bogus,5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(lines(tt.rows...))

			var empty *EmptyDatasetError
			require.True(t, errors.As(err, &empty))
			assert.Equal(t, len(tt.rows)-1, empty.Lines)
		})
	}
}

func TestParseDateLayouts(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Time
	}{
		{"2024-01-01", day(2024, 1, 1)},
		{"2024-01-01T10:30:00Z", time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-01-01T10:30:00.5Z", time.Date(2024, 1, 1, 10, 30, 0, 500000000, time.UTC)},
		{"2024-01-01T10:30:00", time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-01-01 10:30:00", time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-01-01 10:30:00 +0000 UTC", time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{"Mon, 01 Jan 2024 10:30:00 GMT", time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseDate(tt.value)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestParseReadError(t *testing.T) {
	src := &erroringSource{Lines: lines(header, "A,2024-01-01,env1,t1,Passed,5"), err: errors.New("connection reset")}

	_, err := Parse(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, ok := ParseStatus(string(s))
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
	_, ok := ParseStatus("passed")
	assert.False(t, ok)
}

type countingSource struct {
	*feed.Lines
	pulled int
}

func (c *countingSource) Next() bool {
	c.pulled++
	return c.Lines.Next()
}

type erroringSource struct {
	*feed.Lines
	err error
}

func (e *erroringSource) Err() error {
	return e.err
}
