package core

import (
	"strconv"
	"strings"
)

// MissingText is the text an empty cell normalizes to when it is matched
// against entity or targeting rules.
const MissingText = "nan"

// Table is a header row plus data rows, all cells held as text.
// Every row has exactly len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable builds a rectangular table from a header row and jagged data rows.
// The width is the longest of the header and any data row; short rows are
// padded with empty cells and blank header cells are labelled "Unnamed: <i>".
func NewTable(headers []string, rows [][]string) *Table {
	width := len(headers)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	t := &Table{
		Headers: make([]string, width),
		Rows:    make([][]string, len(rows)),
	}

	for i := 0; i < width; i++ {
		var h string
		if i < len(headers) {
			h = headers[i]
		}
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		t.Headers[i] = h
	}

	for r, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		t.Rows[r] = padded
	}

	return t
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.Headers)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns a copy of the values in column idx.
func (t *Table) Column(idx int) []string {
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values
}

// normalize trims a cell and maps empty cells to MissingText.
func normalize(v string) string {
	if v == "" {
		return MissingText
	}
	return strings.TrimSpace(v)
}
