package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/docupost/invoice-extract/internal/extract"
)

func sampleRecord() *extract.InvoiceRecord {
	number := "INV-2024-001"
	date := "15.01.2024"
	terms := "Net 30 days from invoice date"
	amount := extract.ParseAmount("$1,500.00")
	qty := 10.0
	return &extract.InvoiceRecord{
		InvoiceNumber: &number,
		InvoiceDate:   &date,
		LineItems: []extract.LineItem{
			{Description: "Consulting Services", Quantity: &qty, Amount: &amount},
		},
		InvoiceTotal: extract.ParseAmount("$1,750.00"),
		PaymentTerms: &terms,
	}
}

func TestInvoiceRecordMatchesSchema(t *testing.T) {
	data, err := json.Marshal(sampleRecord())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := ValidateJSONAgainstSchema(InvoiceSchema(), data); err != nil {
		t.Fatalf("record should validate: %v", err)
	}
}

func TestNullFieldsMatchSchema(t *testing.T) {
	rec := &extract.InvoiceRecord{LineItems: []extract.LineItem{}}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := ValidateJSONAgainstSchema(InvoiceSchema(), data); err != nil {
		t.Fatalf("empty record should validate: %v", err)
	}
}

func TestUnparsedTotalMatchesSchema(t *testing.T) {
	rec := &extract.InvoiceRecord{
		LineItems:    []extract.LineItem{},
		InvoiceTotal: extract.ParseAmount("see attachment"),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := ValidateJSONAgainstSchema(InvoiceSchema(), data); err != nil {
		t.Fatalf("string-valued total should validate: %v", err)
	}
}

func TestSchemaRejectsMalformed(t *testing.T) {
	cases := []string{
		`{"InvoiceNumber": 42, "InvoiceDate": null, "LineItems": [], "InvoiceTotal": {"value": null, "currency": "", "formatted": ""}, "PaymentTerms": null}`,
		`{"InvoiceNumber": null}`,
		`{"InvoiceNumber": null, "InvoiceDate": null, "LineItems": [{"Quantity": "ten"}], "InvoiceTotal": {"value": null, "currency": "", "formatted": ""}, "PaymentTerms": null}`,
	}
	for _, c := range cases {
		if err := ValidateJSONAgainstSchema(InvoiceSchema(), []byte(c)); err == nil {
			t.Fatalf("expected validation failure for %s", c)
		}
	}
}

func TestStem(t *testing.T) {
	cases := map[string]string{
		"invoice.pdf":           "invoice",
		"dir/invoice.PDF":       "invoice",
		"no-extension":          "no-extension",
		"dots.in.name.pdf":      "dots.in.name",
		"archive/2024/a.b.json": "a.b",
	}
	for in, want := range cases {
		if got := Stem(in); got != want {
			t.Fatalf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteInvoiceJSON(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteInvoiceJSON(dir, "invoice_007.pdf", sampleRecord())
	if err != nil {
		t.Fatalf("WriteInvoiceJSON: %v", err)
	}
	if filepath.Base(path) != "invoice_007_extracted.json" {
		t.Fatalf("path = %q", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var back extract.InvoiceRecord
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal artifact: %v", err)
	}
	if back.InvoiceNumber == nil || *back.InvoiceNumber != "INV-2024-001" {
		t.Fatalf("round trip number = %v", back.InvoiceNumber)
	}
	if !back.InvoiceTotal.IsNumeric() || *back.InvoiceTotal.Value != 1750.00 {
		t.Fatalf("round trip total = %+v", back.InvoiceTotal)
	}
}
