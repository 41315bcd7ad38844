package results

import "fmt"

// SchemaError is returned when the header does not have the expected number of fields.
type SchemaError struct {
	Header string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("fetched CSV data contains wrong number of fields. Expected: %d. Actual header: %q", fieldCount, e.Header)
}

// EmptyDatasetError is returned when no line of the feed produced a record.
type EmptyDatasetError struct {
	Lines    int
	Warnings int
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("fetched CSV data is empty or poorly formatted (%d data lines, %d rejected)", e.Lines, e.Warnings)
}

// LineShapeWarning reports a data line that was dropped for having the wrong number of fields.
type LineShapeWarning struct {
	Line    int
	Content string
	Fields  int
}

func (w *LineShapeWarning) Error() string {
	return fmt.Sprintf("line %d has wrong number of fields. Actual: %d Expected: %d. Line: %q", w.Line, w.Fields, fieldCount, truncate(w.Content))
}

const maxQuotedLine = 200

func truncate(s string) string {
	if len(s) <= maxQuotedLine {
		return s
	}
	return s[:maxQuotedLine] + "..."
}

// EnumValidationWarning reports a data line that was dropped for an unknown status.
type EnumValidationWarning struct {
	Line  int
	Value string
}

func (w *EnumValidationWarning) Error() string {
	return fmt.Sprintf("line %d has invalid test status. Actual: %q Expected: One of %s", w.Line, w.Value, statusNames())
}

// FieldParseWarning reports a data line whose date or duration could not be parsed.
type FieldParseWarning struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (w *FieldParseWarning) Error() string {
	return fmt.Sprintf("line %d has invalid %s %q: %v", w.Line, w.Field, w.Value, w.Err)
}

func (w *FieldParseWarning) Unwrap() error {
	return w.Err
}
