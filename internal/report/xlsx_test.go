package report

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/docupost/invoice-extract/constants"
	"github.com/docupost/invoice-extract/internal/pipeline"
)

func TestExportBatchXLSX(t *testing.T) {
	ok := sampleDocument()
	failed := &pipeline.DocumentResult{
		Metadata: pipeline.Metadata{Filename: "broken.pdf", Status: constants.DocStatusFailed, Error: "boom"},
	}

	data, err := ExportBatchXLSX([]*pipeline.DocumentResult{ok, failed}, nil)
	if err != nil {
		t.Fatalf("ExportBatchXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	const sheet = "Invoices"
	check := func(cell, want string) {
		t.Helper()
		got, err := f.GetCellValue(sheet, cell)
		if err != nil {
			t.Fatalf("cell %s: %v", cell, err)
		}
		if got != want {
			t.Fatalf("cell %s = %q, want %q", cell, got, want)
		}
	}

	check("A1", "Document")
	check("E1", "Invoice Total")
	check("A2", "invoice_007.pdf")
	check("B2", "completed")
	check("C2", "INV-2024-001")
	check("D2", "15.01.2024")
	check("E2", "1750")
	check("F2", "$")
	check("G2", "1")
	check("H2", "Net 30 days from invoice date")
	check("A3", "broken.pdf")
	check("B3", "failed")
	check("C3", "")
}
