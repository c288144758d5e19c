package core

import "strings"

// EntityCategory is the row type read from the Entity column.
type EntityCategory string

const (
	EntityNone             EntityCategory = ""
	EntityKeyword          EntityCategory = "keyword"
	EntityProductTargeting EntityCategory = "product targeting"
	EntityProductAd        EntityCategory = "product ad"
)

// entityHeader is the header label of the Entity column, compared lower-cased.
const entityHeader = "entity"

// entityFallbackIndex is column B, where bulk exports place Entity.
const entityFallbackIndex = 1

// EntityColumn finds the Entity column by header (trimmed, case-insensitive).
// Without a match it falls back to column B; a table narrower than two
// columns yields ErrEntityColumnNotFound.
func EntityColumn(t *Table) (int, error) {
	for i, h := range t.Headers {
		if strings.ToLower(strings.TrimSpace(h)) == entityHeader {
			return i, nil
		}
	}
	if t.Width() > entityFallbackIndex {
		return entityFallbackIndex, nil
	}
	return 0, ErrEntityColumnNotFound
}

// matchesEntity reports whether a normalized, lower-cased value belongs to needle.
func matchesEntity(s, needle string) bool {
	switch EntityCategory(needle) {
	case EntityKeyword:
		return s == "keyword" || strings.HasPrefix(s, "keyword")
	case EntityProductTargeting:
		return s == "product targeting" || strings.HasPrefix(s, "product targeting")
	case EntityProductAd:
		return s == "product ad" || s == "product ads" ||
			strings.HasPrefix(s, "product ad") || strings.HasPrefix(s, "product ads")
	default:
		return s == needle
	}
}

// MatchEntity returns one decision per value. Values are trimmed and
// lower-cased; keyword, product targeting and product ad also accept any value
// starting with the category name, so "Product Ads" and "Keyword - Broad" match.
// Any other needle requires exact equality.
func MatchEntity(values []string, needle string) []bool {
	mask := make([]bool, len(values))
	for i, v := range values {
		mask[i] = matchesEntity(strings.ToLower(normalize(v)), needle)
	}
	return mask
}

// TagEntity returns the single category a value belongs to, or EntityNone.
func TagEntity(value string) EntityCategory {
	s := strings.ToLower(normalize(value))
	for _, c := range []EntityCategory{EntityKeyword, EntityProductTargeting, EntityProductAd} {
		if matchesEntity(s, string(c)) {
			return c
		}
	}
	return EntityNone
}
