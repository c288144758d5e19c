package workbook

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/core"
	"github.com/xuri/excelize/v2"
)

// DefaultOutputName is the file name used for generated workbooks.
const DefaultOutputName = "SP_IDs.xlsx"

// ContentType is the MIME type of generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

// Write renders every output table of res as one sheet, in result order.
// Nothing is written to w unless the whole workbook was built.
func Write(w io.Writer, res *core.Result) error {
	f, err := build(res)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%w: %w", core.ErrOutputWrite, err)
	}
	return nil
}

// Bytes renders res into an in-memory workbook.
func Bytes(res *core.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, res); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes res to path through a temporary file in the same
// directory, so a failed run never leaves a partial workbook at path.
func WriteFile(path string, res *core.Result) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sp-ids-*.xlsx")
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrOutputWrite, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, res); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrOutputWrite, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", core.ErrOutputWrite, err)
	}
	return nil
}

// build assembles the workbook in memory.
func build(res *core.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: header style: %w", core.ErrOutputWrite, err)
	}

	for i, t := range res.Tables {
		name := sheetName(t.Sheet)
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), name)
		} else {
			_, err = f.NewSheet(name)
		}
		if err == nil {
			err = writeSheet(f, name, t, headerStyle)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: sheet %q: %w", core.ErrOutputWrite, name, err)
		}
	}
	f.SetActiveSheet(0)

	return f, nil
}

// writeSheet streams the header row and data rows of t into sheet.
func writeSheet(f *excelize.File, sheet string, t core.OutputTable, headerStyle int) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, rowValues(row)); err != nil {
			return err
		}
	}

	return sw.Flush()
}

// rowValues converts text cells for the stream writer; empty cells are left unset.
func rowValues(row []string) []interface{} {
	values := make([]interface{}, len(row))
	for i, v := range row {
		if v != "" {
			values[i] = v
		}
	}
	return values
}

func sheetName(name string) string {
	if len(name) > maxSheetName {
		return name[:maxSheetName]
	}
	return name
}
