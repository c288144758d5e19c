package core

import "strings"

// ColumnIndex converts a spreadsheet column letter to a 0-indexed column number.
// A=0, B=1, ..., Z=25, AA=26, AB=27, etc. Surrounding whitespace is ignored
// and lower-case letters are accepted.
func ColumnIndex(letter string) (int, error) {
	col := strings.ToUpper(strings.TrimSpace(letter))
	if col == "" {
		return 0, &InvalidColumnLetterError{Letter: letter}
	}

	result := 0
	for _, c := range col {
		if c < 'A' || c > 'Z' {
			return 0, &InvalidColumnLetterError{Letter: letter}
		}
		result = result*26 + int(c-'A') + 1
	}
	return result - 1, nil
}

// ColumnLetter converts a 0-indexed column number to column letter(s).
// 0=A, 1=B, ..., 25=Z, 26=AA, 27=AB, etc.
func ColumnLetter(index int) string {
	if index < 0 {
		return ""
	}

	var b []byte
	index++
	for index > 0 {
		index--
		b = append([]byte{byte('A' + index%26)}, b...)
		index /= 26
	}
	return string(b)
}

// ResolveColumns converts every letter to its index. The first malformed
// letter aborts resolution.
func ResolveColumns(letters []string) ([]int, error) {
	idxs := make([]int, len(letters))
	for i, l := range letters {
		idx, err := ColumnIndex(l)
		if err != nil {
			return nil, err
		}
		idxs[i] = idx
	}
	return idxs, nil
}

// outOfRange returns the letters whose index is not below width, in request order.
func outOfRange(letters []string, idxs []int, width int) []string {
	var missing []string
	for i, idx := range idxs {
		if idx >= width {
			missing = append(missing, letters[i])
		}
	}
	return missing
}

// SelectColumns returns a new table holding only the requested columns, in the
// requested order, with their original header labels. Every letter is resolved
// and range-checked before any row is copied, so a failure reports all
// offending letters at once.
func SelectColumns(t *Table, letters []string) (*Table, error) {
	idxs, err := ResolveColumns(letters)
	if err != nil {
		return nil, err
	}
	if missing := outOfRange(letters, idxs, t.Width()); len(missing) > 0 {
		return nil, &ColumnOutOfRangeError{Letters: missing, Width: t.Width()}
	}

	out := &Table{
		Headers: make([]string, len(idxs)),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, idx := range idxs {
		out.Headers[i] = t.Headers[idx]
	}
	for r, row := range t.Rows {
		out.Rows[r] = pick(row, idxs)
	}
	return out, nil
}

// pick copies the cells at idxs out of row.
func pick(row []string, idxs []int) []string {
	out := make([]string, len(idxs))
	for i, idx := range idxs {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out
}
