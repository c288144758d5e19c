package core

import (
	"regexp"
	"strings"
)

// TargetingClass is a sub-category of product targeting rows.
type TargetingClass string

const (
	TargetingAny      TargetingClass = ""
	TargetingPAT      TargetingClass = "pat"
	TargetingCategory TargetingClass = "category"
	TargetingAuto     TargetingClass = "auto"
)

// TargetingColumn is the bulk-export column holding the product targeting expression.
const TargetingColumn = "AJ"

// asinPattern matches an ASIN-like token: "B0" plus eight alphanumerics as a
// whole word. Boundaries treat Unicode letters and digits as word characters,
// unlike RE2's ASCII-only \b.
var asinPattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])B0[A-Z0-9]{8}(?:$|[^\p{L}\p{N}_])`)

// autoTokens mark auto-targeting expressions (close-match, loose-match, substitutes, complements).
var autoTokens = []string{"close", "loose", "substitute", "complement"}

// TargetingMasks holds one independent decision per value for each class.
// A value may be set in several masks.
type TargetingMasks struct {
	PAT      []bool
	Category []bool
	Auto     []bool
}

// Mask returns the mask for class, or nil for TargetingAny.
func (m TargetingMasks) Mask(class TargetingClass) []bool {
	switch class {
	case TargetingPAT:
		return m.PAT
	case TargetingCategory:
		return m.Category
	case TargetingAuto:
		return m.Auto
	default:
		return nil
	}
}

// ClassifyTargeting computes the PAT, Category and Auto masks for targeting
// expressions. PAT is matched against the trimmed original text; Category and
// Auto against its lower-cased form.
func ClassifyTargeting(values []string) TargetingMasks {
	m := TargetingMasks{
		PAT:      make([]bool, len(values)),
		Category: make([]bool, len(values)),
		Auto:     make([]bool, len(values)),
	}
	for i, v := range values {
		raw := normalize(v)
		lower := strings.ToLower(raw)

		m.PAT[i] = asinPattern.MatchString(raw)
		m.Category[i] = strings.Contains(lower, "category")
		for _, tok := range autoTokens {
			if strings.Contains(lower, tok) {
				m.Auto[i] = true
				break
			}
		}
	}
	return m
}
