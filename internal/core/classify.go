package core

import (
	"fmt"
	"slices"
)

// OutputTable is one classified sheet: a column subset of the input restricted
// to the rows of one category.
type OutputTable struct {
	Key     string     `json:"key"`
	Sheet   string     `json:"sheet"`
	Letters []string   `json:"letters"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Diagnostics summarizes a classification run for the caller.
type Diagnostics struct {
	TotalRows              int            `json:"total_rows"`
	ProductTargetingRows   int            `json:"product_targeting_rows"`
	Counts                 map[string]int `json:"counts"`
	TargetingColumnMissing bool           `json:"targeting_column_missing"`
	Warnings               []string       `json:"warnings,omitempty"`
}

// Summary returns the product targeting breakdown as a single log-friendly line.
func (d Diagnostics) Summary() string {
	return fmt.Sprintf("Product Targeting rows: %d | PAT: %d | Category: %d | Auto: %d",
		d.ProductTargetingRows, d.Counts[KeyPAT], d.Counts[KeyCategory], d.Counts[KeyAuto])
}

// Result holds the five output tables in emission order.
type Result struct {
	Tables      []OutputTable `json:"tables"`
	Diagnostics Diagnostics   `json:"diagnostics"`
}

// Table returns the output table with the given key.
func (r *Result) Table(key string) (OutputTable, bool) {
	for _, t := range r.Tables {
		if t.Key == key {
			return t, true
		}
	}
	return OutputTable{}, false
}

// layoutPlan is a layout with its columns resolved against one input.
type layoutPlan struct {
	layout   Layout
	idxs     []int
	degraded bool // targeting column absent; emit headers only
}

// Classify splits t into the five output tables defined by Layouts.
//
// All column letters are resolved and range-checked before any row is read, so
// a fatal error leaves no partial result. A missing targeting column is not
// fatal: the PAT, Category and Auto tables are emitted empty and the condition
// is recorded in the diagnostics.
func Classify(t *Table) (*Result, error) {
	entityIdx, err := EntityColumn(t)
	if err != nil {
		return nil, err
	}

	targetingIdx, err := ColumnIndex(TargetingColumn)
	if err != nil {
		return nil, err
	}
	hasTargeting := targetingIdx < t.Width()

	plans := make([]layoutPlan, len(Layouts))
	var missing []string
	for i, l := range Layouts {
		idxs, err := ResolveColumns(l.Columns)
		if err != nil {
			return nil, err
		}
		plan := layoutPlan{layout: l, idxs: idxs}

		out := outOfRange(l.Columns, idxs, t.Width())
		if l.Entity == EntityProductTargeting && !hasTargeting {
			plan.degraded = true
			out = slices.DeleteFunc(out, func(letter string) bool { return letter == TargetingColumn })
		}
		for _, letter := range out {
			if !slices.Contains(missing, letter) {
				missing = append(missing, letter)
			}
		}
		plans[i] = plan
	}
	if len(missing) > 0 {
		return nil, &ColumnOutOfRangeError{Letters: missing, Width: t.Width()}
	}

	entities := t.Column(entityIdx)
	entityMasks := map[EntityCategory][]bool{
		EntityKeyword:          MatchEntity(entities, string(EntityKeyword)),
		EntityProductTargeting: MatchEntity(entities, string(EntityProductTargeting)),
		EntityProductAd:        MatchEntity(entities, string(EntityProductAd)),
	}

	var targeting TargetingMasks
	if hasTargeting {
		targeting = ClassifyTargeting(t.Column(targetingIdx))
	}

	res := &Result{
		Tables: make([]OutputTable, len(plans)),
		Diagnostics: Diagnostics{
			TotalRows:              t.Len(),
			ProductTargetingRows:   countTrue(entityMasks[EntityProductTargeting]),
			Counts:                 make(map[string]int, len(plans)),
			TargetingColumnMissing: !hasTargeting,
		},
	}
	if !hasTargeting {
		res.Diagnostics.Warnings = append(res.Diagnostics.Warnings,
			fmt.Sprintf("%v: column %s not found by position; classification maps will be empty",
				ErrTargetingColumnMissing, TargetingColumn))
	}

	for i, p := range plans {
		out := OutputTable{
			Key:     p.layout.Key,
			Sheet:   p.layout.Sheet,
			Letters: slices.Clone(p.layout.Columns),
			Headers: headersFor(t, p),
			Rows:    [][]string{},
		}
		if !p.degraded {
			entityMask := entityMasks[p.layout.Entity]
			classMask := targeting.Mask(p.layout.Targeting)
			for r, row := range t.Rows {
				if !entityMask[r] {
					continue
				}
				if classMask != nil && !classMask[r] {
					continue
				}
				out.Rows = append(out.Rows, pick(row, p.idxs))
			}
		}
		res.Tables[i] = out
		res.Diagnostics.Counts[out.Key] = len(out.Rows)
	}

	return res, nil
}

// headersFor copies the input header labels of a plan's columns. Columns past
// the input width only occur in degraded plans and are labelled by letter.
func headersFor(t *Table, p layoutPlan) []string {
	headers := make([]string, len(p.idxs))
	for i, idx := range p.idxs {
		if idx < t.Width() {
			headers[i] = t.Headers[idx]
		} else {
			headers[i] = p.layout.Columns[i]
		}
	}
	return headers
}

func countTrue(mask []bool) int {
	n := 0
	for _, b := range mask {
		if b {
			n++
		}
	}
	return n
}
