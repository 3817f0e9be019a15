package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docupost/invoice-extract/constants"
	"github.com/docupost/invoice-extract/internal/extract"
	"github.com/docupost/invoice-extract/internal/pipeline"
)

func sampleDocument() *pipeline.DocumentResult {
	return &pipeline.DocumentResult{
		Metadata: pipeline.Metadata{
			Filename:       "invoice_007.pdf",
			Status:         constants.DocStatusCompleted,
			ProcessingTime: 3200 * time.Millisecond,
			TotalBlocks:    412,
		},
		Layout: extract.Layout{
			Titles:  []extract.LayoutElement{{Text: "INVOICE", Confidence: 99.1}},
			Headers: []extract.LayoutElement{{Text: "ACME Corp", Confidence: 97.0}},
		},
		Forms: []extract.FormField{
			{Key: "Invoice Number:", Value: "INV-2024-001", Confidence: 96.3},
			{Key: "Total | Due", Value: "1,750.00", Confidence: 91.0},
		},
		Tables: []pipeline.Table{
			{
				Page: 1,
				Rows: [][]string{
					{"Description", "Qty", "Amount"},
					{"Consulting", "10", "1,500.00"},
				},
				RowCount:    2,
				ColumnCount: 3,
			},
		},
		Queries: []extract.QueryResult{
			{Query: "What is the total amount?", Answer: "$1,750.00", Confidence: 95.5},
			{Query: "What is the due date?", Answer: "", Confidence: 0},
		},
		Signatures: []extract.Signature{{Page: 1, Confidence: 88.2}},
		Invoice:    sampleRecord(),
	}
}

func TestFormatDocumentSections(t *testing.T) {
	md := FormatDocument(sampleDocument())

	for _, want := range []string{
		"# Document Analysis Report: invoice_007.pdf",
		"## Processing Metadata",
		"- **Status:** completed",
		"- **Total Blocks:** 412",
		"## Document Structure",
		"1. **INVOICE** *(Confidence: 99.1%)*",
		"## Form Fields",
		"| Invoice Number: | INV-2024-001 | 96.3% |",
		"| Total \\| Due | 1,750.00 | 91.0% |",
		"## Tables",
		"*Page 1, dimensions: 2 rows × 3 columns*",
		"| Description | Qty | Amount |",
		"## Custom Query Results",
		"**A:** $1,750.00",
		"**A:** No answer found",
		"## Signatures",
		"**Total signatures detected:** 1",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("report missing %q\n---\n%s", want, md)
		}
	}
}

func TestFormatDocumentOmitsEmptySections(t *testing.T) {
	doc := &pipeline.DocumentResult{
		Metadata: pipeline.Metadata{
			Filename: "failed.pdf",
			Status:   constants.DocStatusFailed,
			Error:    "analysis job failed",
		},
	}
	md := FormatDocument(doc)

	if !strings.Contains(md, "- **Error:** analysis job failed") {
		t.Fatalf("failed report missing error line:\n%s", md)
	}
	for _, section := range []string{"## Document Structure", "## Form Fields", "## Tables", "## Signatures"} {
		if strings.Contains(md, section) {
			t.Fatalf("failed report should omit %q", section)
		}
	}
}

func TestFormatDocumentTruncatesLongTables(t *testing.T) {
	doc := sampleDocument()
	rows := [][]string{{"Description", "Amount"}}
	for i := 0; i < 30; i++ {
		rows = append(rows, []string{"row", "1.00"})
	}
	doc.Tables = []pipeline.Table{{Page: 1, Rows: rows, RowCount: len(rows), ColumnCount: 2}}

	md := FormatDocument(doc)
	if !strings.Contains(md, "*... and 21 more rows*") {
		t.Fatalf("long table not truncated:\n%s", md)
	}
}

func TestFormatSummary(t *testing.T) {
	ok := sampleDocument()
	failed := &pipeline.DocumentResult{
		Metadata: pipeline.Metadata{Filename: "broken.pdf", Status: constants.DocStatusFailed},
	}
	md := FormatSummary([]*pipeline.DocumentResult{ok, failed})

	for _, want := range []string{
		"# Batch Processing Summary Report",
		"**Total Documents Processed:** 2",
		"| invoice_007.pdf | Completed |",
		"| broken.pdf | Failed |",
		"- **Total Form Fields Extracted:** 2",
		"- **Total Tables Extracted:** 1",
		"- **Total Signatures Detected:** 1",
		"- [invoice_007.pdf](./invoice_007_report.md)",
		"- [broken.pdf](./broken_report.md)",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("summary missing %q\n---\n%s", want, md)
		}
	}
}

func TestWriteReports(t *testing.T) {
	dir := t.TempDir()
	doc := sampleDocument()

	docPath, err := WriteDocumentReport(dir, doc)
	if err != nil {
		t.Fatalf("WriteDocumentReport: %v", err)
	}
	if filepath.Base(docPath) != "invoice_007_report.md" {
		t.Fatalf("document report path = %q", docPath)
	}

	sumPath, err := WriteSummaryReport(dir, []*pipeline.DocumentResult{doc})
	if err != nil {
		t.Fatalf("WriteSummaryReport: %v", err)
	}
	if filepath.Base(sumPath) != "SUMMARY_REPORT.md" {
		t.Fatalf("summary path = %q", sumPath)
	}
	if _, err := os.Stat(sumPath); err != nil {
		t.Fatalf("summary not written: %v", err)
	}
}
