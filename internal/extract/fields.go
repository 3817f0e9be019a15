package extract

import (
	"fmt"
	"log/slog"
	"strings"
)

// ResolveInvoiceNumber searches form pairs for an invoice-number key, then
// falls back to regex patterns over the full document text. Nil when neither
// source yields a value.
func (rs *Ruleset) ResolveInvoiceNumber(kv *KVPairs, docText string) *string {
	var found *string
	kv.Each(func(key, value string) bool {
		if !containsAny(key, rs.invoiceNumberKeywords) {
			return true
		}
		if v := strings.TrimSpace(value); v != "" {
			found = &v
			return false
		}
		return true
	})
	if found != nil {
		return found
	}

	for _, re := range rs.invoiceNumberPatterns {
		if m := re.FindStringSubmatch(docText); m != nil {
			v := strings.TrimSpace(m[1])
			return &v
		}
	}
	return nil
}

// ResolveInvoiceDate returns the first date-keyed pair's value, unparsed.
func (rs *Ruleset) ResolveInvoiceDate(kv *KVPairs) *string {
	var found *string
	kv.Each(func(key, value string) bool {
		if !containsAny(key, rs.dateKeywords) {
			return true
		}
		if v := strings.TrimSpace(value); v != "" {
			found = &v
			return false
		}
		return true
	})
	return found
}

// ResolvePaymentTerms returns the first terms-keyed pair whose value exceeds
// 20 characters; short "due" values (a bare due date) are excluded by the
// length filter.
func (rs *Ruleset) ResolvePaymentTerms(kv *KVPairs) *string {
	var found *string
	kv.Each(func(key, value string) bool {
		if !containsAny(key, rs.paymentTermsKeywords) || len(value) <= 20 {
			return true
		}
		v := strings.TrimSpace(value)
		found = &v
		return false
	})
	return found
}

// ResolveInvoiceTotal runs the three-tier priority search: form pairs, table
// aggregate rows, then regex fallback over the document text (only when the
// best priority so far is below 5). The zero Amount is returned when no
// candidate qualifies.
func (rs *Ruleset) ResolveInvoiceTotal(kv *KVPairs, tableTotals []string, docText string) Amount {
	best := Amount{}
	bestPriority := 0
	bestSource := ""

	// Tier A: form pairs. Exact keyword keys and tax-inclusive keys outrank
	// plain substring hits.
	kv.Each(func(key, value string) bool {
		for _, kw := range rs.totalKeywords {
			if !strings.Contains(key, kw.text) {
				continue
			}
			amt := ParseAmount(value)
			if !amt.Positive() {
				continue
			}
			priority := kw.priority
			if key == kw.text || strings.TrimSpace(strings.ReplaceAll(key, ":", "")) == kw.text {
				priority += 5
			}
			if containsAny(key, rs.inclusiveTerms) {
				priority += 3
			}
			if priority > bestPriority {
				best, bestPriority, bestSource = amt, priority, "kv: "+key
			}
		}
		return true
	})

	// Tier B: table aggregate rows, with bonuses for comprehensive totals.
	// The tier's top candidate replaces the running best only when strictly
	// better.
	var tableBest Amount
	tablePriority := 0
	tableSource := ""
	for _, rowText := range tableTotals {
		lowered := strings.ToLower(rowText)
		for _, kw := range rs.totalKeywords {
			if !strings.Contains(lowered, kw.text) {
				continue
			}
			amt := ParseAmount(rowText)
			if !amt.Positive() {
				continue
			}
			priority := kw.priority
			switch {
			case strings.Contains(lowered, "fees and disbursements"):
				priority += 10
			case strings.Contains(lowered, "gross") &&
				(strings.Contains(lowered, "incl") || strings.Contains(lowered, "vat")):
				priority += 8
			case strings.Contains(lowered, "grand total"):
				priority += 7
			case strings.Contains(lowered, "final"):
				priority += 6
			}
			if priority > tablePriority {
				tableBest, tablePriority, tableSource = amt, priority, "table: "+truncate(rowText, 50)
			}
		}
	}
	if tablePriority > bestPriority {
		best, bestPriority, bestSource = tableBest, tablePriority, tableSource
	}

	// Tier C: regex fallback, consulted only without a good match so far.
	if bestPriority < 5 {
		for _, tp := range rs.totalPatterns {
			for _, m := range tp.re.FindAllStringSubmatch(docText, -1) {
				amt := ParseAmount(m[1])
				if amt.Positive() && tp.priority > bestPriority {
					best, bestPriority, bestSource = amt, tp.priority, "regex: "+truncate(m[0], 50)
				}
			}
		}
	}

	if best.IsNumeric() {
		slog.Debug("extract.total.selected",
			"formatted", best.Formatted,
			"source", bestSource,
			"priority", bestPriority,
		)
	}
	return best
}

// truncate shortens s to max runes, never splitting a multi-byte character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return fmt.Sprintf("%s...", string(runes[:max]))
}
