package workbook

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// exportHeaders returns 36 headers A..AJ with Entity in column B.
func exportHeaders() []string {
	headers := make([]string, 36)
	for i := range headers {
		headers[i] = "Col " + core.ColumnLetter(i)
	}
	headers[1] = "Entity"
	return headers
}

func exportRow(entity string, cells map[string]string) []string {
	row := make([]string, 36)
	row[1] = entity
	for letter, v := range cells {
		idx, err := core.ColumnIndex(letter)
		if err != nil {
			panic(err)
		}
		row[idx] = v
	}
	return row
}

// buildWorkbook writes rows to sheet of a new in-memory workbook.
func buildWorkbook(t *testing.T, sheet string, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))

	for r, row := range rows {
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat("bulk.CSV"))
	assert.Equal(t, FormatXLSX, DetectFormat("bulk.xlsx"))
	assert.Equal(t, FormatXLSX, DetectFormat("bulk"))
}

func TestReadXLSX_DefaultSheet(t *testing.T) {
	data := buildWorkbook(t, DefaultSheet, [][]string{
		exportHeaders(),
		exportRow("Keyword", map[string]string{"D": "123456789012345", "H": "K1"}),
	})

	table, err := ReadXLSX(bytes.NewReader(data), "")
	require.NoError(t, err)

	assert.Equal(t, 36, table.Width())
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "Entity", table.Headers[1])
	assert.Equal(t, "123456789012345", table.Rows[0][3])
}

func TestReadXLSX_MissingSheet(t *testing.T) {
	data := buildWorkbook(t, "Sponsored Brands Campaigns", [][]string{{"Entity"}})

	_, err := ReadXLSX(bytes.NewReader(data), DefaultSheet)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSourceSheetMissing)
	assert.Contains(t, err.Error(), "Sponsored Brands Campaigns")
}

func TestReadXLSX_NotAWorkbook(t *testing.T) {
	_, err := ReadXLSX(strings.NewReader("not a zip"), DefaultSheet)
	assert.ErrorIs(t, err, core.ErrSourceRead)
}

func TestReadCSV_StripsBOMAndPadsRows(t *testing.T) {
	input := "\xEF\xBB\xBFProduct,Entity,Operation\nSP,Keyword\nSP,Product Ad,create,extra\n"

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "Product", table.Headers[0])
	assert.Equal(t, 4, table.Width())
	assert.Equal(t, "Unnamed: 3", table.Headers[3])
	assert.Equal(t, []string{"SP", "Keyword", "", ""}, table.Rows[0])
}

func TestReadCSV_ReplacesInvalidUTF8(t *testing.T) {
	input := "Entity,Name\nKeyword,caf\xe9\n"

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "caf\uFFFD", table.Rows[0][1])
}

func TestReadCSV_Empty(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Width())
	assert.Equal(t, 0, table.Len())
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.xlsx"), "")
	assert.ErrorIs(t, err, core.ErrSourceRead)
}

func TestWrite_RoundTrip(t *testing.T) {
	table := core.NewTable(exportHeaders(), [][]string{
		exportRow("Keyword", map[string]string{"D": "C1", "H": "K1", "AC": "shoes"}),
		exportRow("Product Ad", map[string]string{"D": "C1", "G": "A1"}),
		exportRow("Product Targeting", map[string]string{"I": "PT1", "AJ": "close-match"}),
	})
	res, err := core.Classify(table)
	require.NoError(t, err)

	data, err := Bytes(res)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		"1-SP-KeywordTargetingMap",
		"2-SP-AdvertisedProductMap",
		"3-SP-PATMap",
		"4-SP-CategoryMap",
		"5-SP-AutoMap",
	}, f.GetSheetList())

	kw, err := f.GetRows("1-SP-KeywordTargetingMap")
	require.NoError(t, err)
	require.Len(t, kw, 2)
	assert.Equal(t, "Col D", kw[0][0])
	assert.Equal(t, "C1", kw[1][0])
	assert.Equal(t, "K1", kw[1][2])
	assert.Equal(t, "shoes", kw[1][8])

	pat, err := f.GetRows("3-SP-PATMap")
	require.NoError(t, err)
	require.Len(t, pat, 1)
	assert.Equal(t, "Col AJ", pat[0][8])

	auto, err := f.GetRows("5-SP-AutoMap")
	require.NoError(t, err)
	require.Len(t, auto, 2)
	assert.Equal(t, "PT1", auto[1][2])
	assert.Equal(t, "close-match", auto[1][8])
}

func TestWriteFile(t *testing.T) {
	res, err := core.Classify(core.NewTable(exportHeaders(), nil))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), DefaultOutputName)
	require.NoError(t, WriteFile(path, res))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFile_BadDirectory(t *testing.T) {
	res, err := core.Classify(core.NewTable(exportHeaders(), nil))
	require.NoError(t, err)

	err = WriteFile(filepath.Join(t.TempDir(), "missing", "out.xlsx"), res)
	assert.ErrorIs(t, err, core.ErrOutputWrite)
}

func TestSheetName_Truncates(t *testing.T) {
	assert.Equal(t, "5-SP-AutoMap", sheetName("5-SP-AutoMap"))
	assert.Len(t, sheetName(strings.Repeat("x", 40)), 31)
}
