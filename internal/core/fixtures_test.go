package core

// bulkHeaders is the A..AJ header row of a Sponsored Products bulk export.
var bulkHeaders = []string{
	"Product", "Entity", "Operation", "Campaign ID", "Ad Group ID", "Portfolio ID",
	"Ad ID", "Keyword ID", "Product Targeting ID", "Campaign Name", "Ad Group Name",
	"Campaign Name (Informational only)", "Ad Group Name (Informational only)",
	"Portfolio Name (Informational only)", "Start Date", "End Date", "Targeting Type",
	"State", "Campaign State (Informational only)", "Ad Group State (Informational only)",
	"Daily Budget", "SKU", "ASIN (Informational only)", "Eligibility Status",
	"Reason for Ineligibility", "Ad Group Default Bid", "Ad Group Default Bid (Informational only)",
	"Bid", "Keyword Text", "Native Language Keyword", "Native Language Locale",
	"Match Type", "Bidding Strategy", "Placement", "Percentage", "Product Targeting Expression",
}

// bulkRow builds a full-width row with the given entity in column B and the
// remaining cells set by column letter.
func bulkRow(entity string, cells map[string]string) []string {
	row := make([]string, len(bulkHeaders))
	row[1] = entity
	for letter, v := range cells {
		idx, err := ColumnIndex(letter)
		if err != nil {
			panic(err)
		}
		row[idx] = v
	}
	return row
}

func bulkTable(rows ...[]string) *Table {
	return NewTable(bulkHeaders, rows)
}

func targetingRow(expr string) []string {
	return bulkRow("Product Targeting", map[string]string{
		"D": "C1", "E": "AG1", "I": "PT1", "AJ": expr,
	})
}
