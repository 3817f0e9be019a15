package extract

import (
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// InvoiceRecord is the normalized extraction result for one document. It is
// created once per document and never mutated afterward.
type InvoiceRecord struct {
	InvoiceNumber *string    `json:"InvoiceNumber"`
	InvoiceDate   *string    `json:"InvoiceDate"`
	LineItems     []LineItem `json:"LineItems"`
	InvoiceTotal  Amount     `json:"InvoiceTotal"`
	PaymentTerms  *string    `json:"PaymentTerms"`
}

// Extract reconstructs the invoice record from one document's full block
// collection. Service-answered queries, when present, unconditionally
// override the heuristically resolved fields; the total-amount answer must
// itself parse to a number to win.
func Extract(blocks []types.Block, queries []QueryResult, rs *Ruleset) *InvoiceRecord {
	ix := NewBlockIndex(blocks)

	kv := ix.KeyValuePairs()
	grid := ix.BuildTableGrid()
	docText := ix.DocumentText()

	items := grid.LineItems(rs)
	if items == nil {
		items = []LineItem{}
	}

	rec := &InvoiceRecord{
		InvoiceNumber: rs.ResolveInvoiceNumber(kv, docText),
		InvoiceDate:   rs.ResolveInvoiceDate(kv),
		LineItems:     items,
		InvoiceTotal:  rs.ResolveInvoiceTotal(kv, grid.TotalRows(), docText),
		PaymentTerms:  rs.ResolvePaymentTerms(kv),
	}

	for _, q := range queries {
		field, ok := rs.queryFields[q.Query]
		if !ok || q.Answer == "" {
			continue
		}
		answer := q.Answer
		switch field {
		case QueryInvoiceNumber:
			rec.InvoiceNumber = &answer
		case QueryInvoiceDate:
			rec.InvoiceDate = &answer
		case QueryPaymentTerms:
			rec.PaymentTerms = &answer
		case QueryInvoiceTotal:
			if amt := ParseAmount(answer); amt.IsNumeric() {
				rec.InvoiceTotal = amt
			}
		}
	}
	return rec
}
