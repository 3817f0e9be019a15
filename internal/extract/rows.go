package extract

import "strings"

// IsSummaryRow reports whether a table row is an aggregate (subtotal, tax,
// total, ...) rather than a purchased line item. Pure substring test over the
// joined row text; no positional or numeric heuristics.
func (rs *Ruleset) IsSummaryRow(cells []string) bool {
	joined := strings.ToLower(strings.Join(cells, " "))
	return rs.containsSummaryIndicator(joined)
}

func (rs *Ruleset) containsSummaryIndicator(lowered string) bool {
	for _, indicator := range rs.summaryIndicators {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
