package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for extraction. Wrapped errors carry detail; callers match
// with errors.Is.
var (
	ErrInvalidColumnLetter    = errors.New("invalid column letter")
	ErrColumnOutOfRange       = errors.New("column out of range")
	ErrEntityColumnNotFound   = errors.New("entity column not found")
	ErrTargetingColumnMissing = errors.New("targeting expression column missing")
	ErrSourceRead             = errors.New("source read failure")
	ErrSourceSheetMissing     = errors.New("source sheet missing")
	ErrOutputWrite            = errors.New("output write failure")
)

// InvalidColumnLetterError reports a column letter that is not made of Latin letters.
type InvalidColumnLetterError struct {
	Letter string
}

func (e *InvalidColumnLetterError) Error() string {
	return fmt.Sprintf("invalid column letter: %q", e.Letter)
}

func (e *InvalidColumnLetterError) Unwrap() error {
	return ErrInvalidColumnLetter
}

// ColumnOutOfRangeError lists every requested column letter that lies beyond
// the width of the input table.
type ColumnOutOfRangeError struct {
	Letters []string
	Width   int
}

func (e *ColumnOutOfRangeError) Error() string {
	span := "no columns"
	if e.Width > 0 {
		span = fmt.Sprintf("%d columns, A..%s", e.Width, ColumnLetter(e.Width-1))
	}
	return fmt.Sprintf("column out of range: requested columns [%s] not found in input (%s)",
		strings.Join(e.Letters, ", "), span)
}

func (e *ColumnOutOfRangeError) Unwrap() error {
	return ErrColumnOutOfRange
}
