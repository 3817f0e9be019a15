package extract

import "regexp"

// Field is the semantic role a table column plays in a line item.
type Field int

const (
	FieldNone Field = iota
	FieldDescription
	FieldQuantity
	FieldUnitPrice
	FieldAmount
)

func (f Field) String() string {
	switch f {
	case FieldDescription:
		return "description"
	case FieldQuantity:
		return "quantity"
	case FieldUnitPrice:
		return "unitprice"
	case FieldAmount:
		return "amount"
	default:
		return "none"
	}
}

// QueryField identifies which invoice field a service-answered question feeds.
type QueryField int

const (
	QueryInvoiceNumber QueryField = iota
	QueryInvoiceDate
	QueryInvoiceTotal
	QueryPaymentTerms
)

type synonym struct {
	text string
	word *regexp.Regexp // whole-word form, precompiled
}

type headerGroup struct {
	field    Field
	synonyms []synonym
}

type totalKeyword struct {
	text     string
	priority int
}

type totalPattern struct {
	re       *regexp.Regexp
	priority int
}

// Ruleset is the immutable keyword/priority configuration driving header
// matching, summary-row detection and field resolution. Construct once with
// DefaultRuleset and pass by reference; it is never mutated at runtime.
type Ruleset struct {
	headerGroups          []headerGroup // fixed order: description, quantity, unitprice, amount
	headerHints           []string
	summaryIndicators     []string
	totalKeywords         []totalKeyword
	totalPatterns         []totalPattern
	invoiceNumberKeywords []string
	invoiceNumberPatterns []*regexp.Regexp
	dateKeywords          []string
	paymentTermsKeywords  []string
	inclusiveTerms        []string
	queryFields           map[string]QueryField
}

func newHeaderGroup(field Field, texts ...string) headerGroup {
	g := headerGroup{field: field, synonyms: make([]synonym, 0, len(texts))}
	for _, t := range texts {
		g.synonyms = append(g.synonyms, synonym{
			text: t,
			word: regexp.MustCompile(`\b` + regexp.QuoteMeta(t) + `\b`),
		})
	}
	return g
}

// DefaultRuleset returns the standard invoice extraction configuration.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		headerGroups: []headerGroup{
			newHeaderGroup(FieldDescription,
				"description", "service", "item", "details", "work performed",
				"service description", "product", "article", "task", "work", "desc"),
			newHeaderGroup(FieldQuantity,
				"qty", "quantity", "hours", "units", "hrs/qty", "hrs",
				"hrs qty", "number", "count"),
			newHeaderGroup(FieldUnitPrice,
				"unit price", "price", "rate", "rate/price", "unit cost",
				"price per unit", "cost", "unit rate", "each", "rate price"),
			newHeaderGroup(FieldAmount,
				"amount", "total", "sub total", "line total", "extended amount",
				"sum", "value", "charge", "subtotal", "sub_total"),
		},
		headerHints: []string{
			"service", "description", "rate", "price", "amount", "total", "qty", "hours",
		},
		summaryIndicators: []string{
			"subtotal", "sub total", "sub-total", "sub_total", "total", "grand total",
			"final total", "net total", "gross total", "vat", "tax", "vat 19%", "sales tax",
			"discount", "adjustment", "fee discount", "balance", "amount due", "total due",
			"fees and disbursements", "gross amount", "net amount", "incl. vat",
			"including vat", "excl. vat", "adjusted fees", "total adjusted",
		},
		totalKeywords: []totalKeyword{
			{"total", 1},
			{"subtotal", 2},
			{"amount due", 8},
			{"invoice total", 7},
			{"grand total", 9},
			{"final total", 10},
			{"total due", 8},
			{"gross total", 11},
			{"gross amount", 12},
			{"total amount", 6},
			{"net amount", 3},
			{"total incl", 13},
			{"incl. vat", 14},
			{"including vat", 14},
			{"total fees and disbursements", 15},
			{"balance due", 8},
			{"amount payable", 7},
		},
		totalPatterns: []totalPattern{
			{regexp.MustCompile(`(?i)total\s+fees\s+and\s+disbursements[^0-9]*([€$£¥₹]?\s*[0-9,]+\.?\d*)`), 20},
			{regexp.MustCompile(`(?i)gross\s+amount\s+incl[^0-9]*([€$£¥₹]?\s*[0-9,]+\.?\d*)`), 18},
			{regexp.MustCompile(`(?i)grand\s+total[^0-9]*([€$£¥₹]?\s*[0-9,]+\.?\d*)`), 15},
			{regexp.MustCompile(`(?i)final\s+total[^0-9]*([€$£¥₹]?\s*[0-9,]+\.?\d*)`), 15},
			{regexp.MustCompile(`(?i)total\s+due[^0-9]*([€$£¥₹]?\s*[0-9,]+\.?\d*)`), 12},
			{regexp.MustCompile(`(?i)amount\s+due[^0-9]*([€$£¥₹]?\s*[0-9,]+\.?\d*)`), 12},
			{regexp.MustCompile(`(?i)invoice\s+total[^0-9]*([€$£¥₹]?\s*[0-9,]+\.?\d*)`), 10},
		},
		invoiceNumberKeywords: []string{
			"invoice number", "invoice no", "invoice #", "inv number", "inv no",
		},
		invoiceNumberPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)invoice\s*(?:number|no|#)[\s:]*([A-Z0-9\-]+)`),
			regexp.MustCompile(`(?i)inv[\s\-]*(?:number|no|#)[\s:]*([A-Z0-9\-]+)`),
			regexp.MustCompile(`(?i)invoice[\s:]+([A-Z0-9\-]{3,})`),
			regexp.MustCompile(`(?i)#([A-Z0-9\-]{3,})`),
		},
		dateKeywords:         []string{"invoice date", "date", "bill date", "issued"},
		paymentTermsKeywords: []string{"payment", "terms", "due"},
		inclusiveTerms:       []string{"incl", "including", "with vat", "with tax"},
		queryFields: map[string]QueryField{
			"What is the invoice number?": QueryInvoiceNumber,
			"What is the invoice date?":   QueryInvoiceDate,
			"What is the total amount?":   QueryInvoiceTotal,
			"What is the payment terms?":  QueryPaymentTerms,
		},
	}
}
