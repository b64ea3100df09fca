package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Table is the raw content of a feed file: the header and the data rows.
type Table struct {
	Header []string
	Rows   []Record
}

type Record struct {
	Line  int
	Cells []string
}

// Cell returns the value at column i, or "" for short rows.
func (r Record) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Index returns the position of a header column, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

func ParseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

// Parse reads a Windows-1250 tab separated feed. The first record is a banner
// line, the second one the header.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(charmap.Windows1250.NewDecoder().Reader(r))
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty feed file")
		}
		return nil, err
	}
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("feed file has no header line")
		}
		return nil, err
	}

	t := &Table{Header: make([]string, len(header))}
	for i, h := range header {
		t.Header[i] = strings.TrimSpace(h)
	}

	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		t.Rows = append(t.Rows, Record{Line: line, Cells: cells})
	}
	return t, nil
}
