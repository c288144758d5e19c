// Package workbook reads bulk-export sheets into core tables and writes
// classification results as xlsx workbooks.
package workbook

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/core"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultSheet is the bulk-export sheet holding Sponsored Products rows.
const DefaultSheet = "Sponsored Products Campaigns"

// Format identifies the encoding of an input file.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// DetectFormat picks the input format from a file name. Anything that is not
// a .csv file is treated as a workbook.
func DetectFormat(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return FormatCSV
	}
	return FormatXLSX
}

// Read decodes r as the given format. sheet is ignored for CSV input.
func Read(r io.Reader, format Format, sheet string) (*core.Table, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r)
	case FormatXLSX:
		return ReadXLSX(r, sheet)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", core.ErrSourceRead, format)
	}
}

// ReadFile opens path and reads it according to its extension.
func ReadFile(path, sheet string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSourceRead, err)
	}
	defer f.Close()

	return Read(f, DetectFormat(path), sheet)
}

// ReadXLSX reads one sheet of a workbook. Cells are read as their raw text so
// long numeric IDs are not reformatted.
func ReadXLSX(r io.Reader, sheet string) (*core.Table, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %w", core.ErrSourceRead, err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		return nil, fmt.Errorf("%w: %q (workbook has: %s)",
			core.ErrSourceSheetMissing, sheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %w", core.ErrSourceRead, sheet, err)
	}

	return toTable(rows), nil
}

// ReadCSV reads a comma-separated export. A UTF-8 BOM is dropped and invalid
// UTF-8 is replaced so that header matching still works on Windows exports.
func ReadCSV(r io.Reader) (*core.Table, error) {
	decoded := transform.NewReader(r, unicode.UTF8BOM.NewDecoder())

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %w", core.ErrSourceRead, err)
	}

	return toTable(rows), nil
}

// toTable splits the header row from the data rows.
func toTable(rows [][]string) *core.Table {
	if len(rows) == 0 {
		return core.NewTable(nil, nil)
	}
	return core.NewTable(rows[0], rows[1:])
}
