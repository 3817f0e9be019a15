package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// currencySymbols is scanned in order; the first symbol found anywhere in the
// input wins. Mixed-currency fields are not supported.
var currencySymbols = []string{"€", "$", "£", "¥", "₹"}

var (
	numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)
	// A trailing ",dd" marks a European decimal comma; every other comma is a
	// thousands separator.
	decimalComma = regexp.MustCompile(`,\d{2}$`)
)

var amountPrinter = message.NewPrinter(language.English)

// Amount is a normalized numeric-plus-currency value.
//
// Parse failure is lossless, not silent: Value carries the number when
// parsing succeeded, otherwise Raw echoes the original input ("" for empty
// input). Both nil means the field was never found.
type Amount struct {
	Value     *float64
	Raw       *string
	Currency  string
	Formatted string
}

type amountJSON struct {
	Value     any    `json:"value"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

func (a Amount) MarshalJSON() ([]byte, error) {
	var v any
	switch {
	case a.Value != nil:
		v = *a.Value
	case a.Raw != nil:
		v = *a.Raw
	}
	return json.Marshal(amountJSON{Value: v, Currency: a.Currency, Formatted: a.Formatted})
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var aj amountJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return err
	}
	*a = Amount{Currency: aj.Currency, Formatted: aj.Formatted}
	switch v := aj.Value.(type) {
	case float64:
		a.Value = &v
	case string:
		a.Raw = &v
	}
	return nil
}

// IsNumeric reports whether the amount carries a parsed numeric value.
func (a Amount) IsNumeric() bool { return a.Value != nil }

// Positive reports whether the amount is numeric and strictly positive.
func (a Amount) Positive() bool { return a.Value != nil && *a.Value > 0 }

// ParseAmount converts free-form monetary text into an Amount.
//
// Both decimal conventions are handled: "1,234.56", "1.234,56" and
// "1.234.567" all resolve correctly. The first number found in the cleaned
// text is used, so leading and trailing noise is tolerated.
func ParseAmount(text string) Amount {
	if text == "" {
		empty := ""
		return Amount{Raw: &empty}
	}

	value, currency := cleanCurrencyText(text)
	if value == nil {
		raw := text
		return Amount{Raw: &raw, Currency: currency, Formatted: text}
	}

	formatted := amountPrinter.Sprintf("%.2f", *value)
	if currency != "" {
		formatted = currency + " " + formatted
	}
	return Amount{Value: value, Currency: currency, Formatted: formatted}
}

// cleanCurrencyText strips currency symbols and separator noise, then
// extracts the first decimal number. Returns nil when no number is present.
func cleanCurrencyText(text string) (*float64, string) {
	currency := ""
	for _, sym := range currencySymbols {
		if strings.Contains(text, sym) {
			currency = sym
			break
		}
	}

	cleaned := text
	for _, sym := range currencySymbols {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	cleaned = strings.TrimSpace(cleaned)

	if decimalComma.MatchString(cleaned) {
		i := strings.LastIndex(cleaned, ",")
		cleaned = strings.ReplaceAll(cleaned[:i], ",", "") + "." + cleaned[i+1:]
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	// Multiple dots: European thousands separators, unless the final segment
	// looks like cents.
	if strings.Count(cleaned, ".") > 1 {
		parts := strings.Split(cleaned, ".")
		last := parts[len(parts)-1]
		if len(last) == 2 {
			cleaned = strings.Join(parts[:len(parts)-1], "") + "." + last
		} else {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	m := numberPattern.FindString(cleaned)
	if m == "" {
		return nil, currency
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil, currency
	}
	return &v, currency
}
