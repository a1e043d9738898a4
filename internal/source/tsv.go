package source

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const maxLine = 4 << 20

type lineReader struct {
	sc     *bufio.Scanner
	rc     io.ReadCloser
	line   int
	header bool
}

func newLineReader(rc io.ReadCloser, header bool) *lineReader {
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 64<<10), maxLine)
	return &lineReader{sc: sc, rc: rc, header: header}
}

// next returns the tab-separated fields of the next data line. Blank lines
// and lines starting with '#' are skipped.
func (l *lineReader) next() ([]string, error) {
	for l.sc.Scan() {
		l.line++
		text := strings.TrimRight(l.sc.Text(), "\r")

		if l.header {
			l.header = false
			continue
		}
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		return strings.Split(text, "\t"), nil
	}

	if err := l.sc.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", l.line+1, err)
	}
	return nil, io.EOF
}

// TSVEdges reads "subject<TAB>predicate<TAB>object" lines.
type TSVEdges struct {
	lr *lineReader
}

func NewTSVEdges(rc io.ReadCloser, header bool) *TSVEdges {
	return &TSVEdges{lr: newLineReader(rc, header)}
}

func (t *TSVEdges) Read() (Edge, error) {
	fields, err := t.lr.next()
	if err != nil {
		return Edge{}, err
	}

	if len(fields) != 3 {
		return Edge{}, fmt.Errorf("line %d: expected 3 fields, got %d", t.lr.line, len(fields))
	}

	return Edge{Subject: fields[0], Predicate: fields[1], Object: fields[2]}, nil
}

func (t *TSVEdges) Close() error {
	return t.lr.rc.Close()
}

// TSVLabels reads "entity<TAB>label" lines. Tabs inside the label are kept.
type TSVLabels struct {
	lr *lineReader
}

func NewTSVLabels(rc io.ReadCloser, header bool) *TSVLabels {
	return &TSVLabels{lr: newLineReader(rc, header)}
}

func (t *TSVLabels) Read() (Label, error) {
	fields, err := t.lr.next()
	if err != nil {
		return Label{}, err
	}

	if len(fields) < 2 {
		return Label{}, fmt.Errorf("line %d: expected 2 fields, got %d", t.lr.line, len(fields))
	}

	return Label{Entity: fields[0], Text: strings.Join(fields[1:], "\t")}, nil
}

func (t *TSVLabels) Close() error {
	return t.lr.rc.Close()
}
