package extract

import (
	"regexp"
	"strings"
)

// headerNoise matches everything except word characters, whitespace and "/"
// (kept so compound headers like "Hrs/Qty" survive cleaning).
var headerNoise = regexp.MustCompile(`[^\w\s/]`)

// MatchHeader classifies a table-cell label into a semantic field.
//
// The cleaned label is tested against each synonym group in fixed declaration
// order (description, quantity, unitprice, amount); within a group each
// synonym is tried as an exact match, a whole-word match, then a plain
// substring. The first hit wins and a cell matches at most one field.
func (rs *Ruleset) MatchHeader(cell string) Field {
	cleaned := cleanHeaderText(cell)
	if cleaned == "" {
		return FieldNone
	}
	for _, group := range rs.headerGroups {
		for _, syn := range group.synonyms {
			if cleaned == syn.text {
				return group.field
			}
			if syn.word.MatchString(cleaned) {
				return group.field
			}
			if strings.Contains(cleaned, syn.text) {
				return group.field
			}
		}
	}
	return FieldNone
}

func cleanHeaderText(cell string) string {
	lowered := strings.ToLower(strings.TrimSpace(cell))
	cleaned := headerNoise.ReplaceAllString(lowered, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}
