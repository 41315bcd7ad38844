package feed

import (
	"bufio"
	"io"
	"strings"
)

// Lines reads a body one non-empty line at a time. It can only be consumed once.
// Lines have no length limit.
type Lines struct {
	reader *bufio.Reader
	line   string
	number int
	eof    bool
	err    error
}

func NewLines(r io.Reader) *Lines {
	return &Lines{reader: bufio.NewReader(r)}
}

// Next advances to the next non-empty line. It returns false at the end of the
// body or on a read error, which is then available from Err.
func (l *Lines) Next() bool {
	for !l.eof && l.err == nil {
		text, err := l.reader.ReadString('\n')
		if err == io.EOF {
			l.eof = true
			if text == "" {
				break
			}
		} else if err != nil {
			l.err = err
			break
		}

		l.number++
		text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
		if text != "" {
			l.line = text
			return true
		}
	}
	l.line = ""
	return false
}

func (l *Lines) Text() string {
	return l.line
}

// Number is the 1-based position of the current line in the body, counting skipped empty lines.
func (l *Lines) Number() int {
	return l.number
}

func (l *Lines) Err() error {
	return l.err
}
