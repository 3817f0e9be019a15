package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docupost/invoice-extract/constants"
	"github.com/docupost/invoice-extract/internal/common"
	"github.com/docupost/invoice-extract/internal/extract"
	"github.com/docupost/invoice-extract/internal/pipeline"
)

const (
	maxFormRows      = 20
	maxTableRows     = 10
	maxParagraphs    = 3
	maxParagraphText = 200
)

// FormatDocument renders one document's full analysis as markdown: metadata,
// layout structure, form fields, tables, query answers and signatures.
func FormatDocument(doc *pipeline.DocumentResult) string {
	var md []string
	md = append(md, fmt.Sprintf("# Document Analysis Report: %s", doc.Metadata.Filename))
	md = append(md, fmt.Sprintf("\n*Generated on: %s*\n", time.Now().Format("2006-01-02 15:04:05")))

	md = append(md, "## Processing Metadata\n")
	md = append(md, fmt.Sprintf("- **Status:** %s", doc.Metadata.Status))
	md = append(md, fmt.Sprintf("- **Processing Time:** %.2fs", doc.Metadata.ProcessingTime.Seconds()))
	md = append(md, fmt.Sprintf("- **Total Blocks:** %d", doc.Metadata.TotalBlocks))
	if doc.Metadata.Error != "" {
		md = append(md, fmt.Sprintf("- **Error:** %s", doc.Metadata.Error))
	}

	md = append(md, formatLayout(doc.Layout)...)
	md = append(md, formatForms(doc.Forms)...)
	md = append(md, formatTables(doc.Tables)...)
	md = append(md, formatQueries(doc.Queries)...)
	md = append(md, formatSignatures(doc.Signatures)...)

	md = append(md, "\n---")
	md = append(md, "\n*This document was automatically generated.*")
	return strings.Join(md, "\n")
}

func formatLayout(layout extract.Layout) []string {
	if layout.Empty() {
		return nil
	}
	var md []string
	md = append(md, "\n## Document Structure\n")

	if len(layout.Titles) > 0 {
		md = append(md, "### Document Titles\n")
		for i, t := range layout.Titles {
			md = append(md, fmt.Sprintf("%d. **%s** *(Confidence: %.1f%%)*", i+1, t.Text, t.Confidence))
		}
	}
	if len(layout.Headers) > 0 {
		md = append(md, "\n### Headers\n")
		for _, h := range layout.Headers {
			md = append(md, fmt.Sprintf("- %s *(Confidence: %.1f%%)*", h.Text, h.Confidence))
		}
	}
	if len(layout.SectionHeaders) > 0 {
		md = append(md, "\n### Section Headers\n")
		for _, h := range layout.SectionHeaders {
			md = append(md, fmt.Sprintf("- **%s** *(Confidence: %.1f%%)*", h.Text, h.Confidence))
		}
	}
	if len(layout.Paragraphs) > 0 {
		md = append(md, "\n### Main Content (Sample)\n")
		for i, p := range layout.Paragraphs {
			if i >= maxParagraphs {
				break
			}
			text := p.Text
			if len(text) > maxParagraphText {
				text = text[:maxParagraphText] + "..."
			}
			md = append(md, fmt.Sprintf("\n> %s\n", text))
		}
		if extra := len(layout.Paragraphs) - maxParagraphs; extra > 0 {
			md = append(md, fmt.Sprintf("\n*... and %d more paragraphs*", extra))
		}
	}
	if len(layout.Lists) > 0 {
		md = append(md, "\n### Lists Found\n")
		for _, l := range layout.Lists {
			md = append(md, fmt.Sprintf("- %s", l.Text))
		}
	}
	return md
}

func formatForms(forms []extract.FormField) []string {
	if len(forms) == 0 {
		return nil
	}
	var md []string
	md = append(md, "\n## Form Fields\n")
	md = append(md, "\n| Field | Value | Confidence |")
	md = append(md, "|-------|-------|------------|")
	for i, f := range forms {
		if i >= maxFormRows {
			break
		}
		md = append(md, fmt.Sprintf("| %s | %s | %.1f%% |",
			escapeCell(f.Key), escapeCell(f.Value), f.Confidence))
	}
	if extra := len(forms) - maxFormRows; extra > 0 {
		md = append(md, fmt.Sprintf("\n*... and %d more fields*", extra))
	}
	return md
}

func formatTables(tables []pipeline.Table) []string {
	if len(tables) == 0 {
		return nil
	}
	var md []string
	md = append(md, "\n## Tables\n")
	for i, table := range tables {
		md = append(md, fmt.Sprintf("\n### Table %d", i+1))
		md = append(md, fmt.Sprintf("*Page %d, dimensions: %d rows × %d columns*\n",
			table.Page, table.RowCount, table.ColumnCount))

		rows := table.Rows
		if len(rows) > maxTableRows {
			rows = rows[:maxTableRows]
		}
		if len(rows) == 0 {
			continue
		}
		md = append(md, "| "+joinCells(rows[0])+" |")
		md = append(md, "|"+strings.Repeat("---|", len(rows[0])))
		for _, row := range rows[1:] {
			md = append(md, "| "+joinCells(row)+" |")
		}
		if extra := table.RowCount - maxTableRows; extra > 0 {
			md = append(md, fmt.Sprintf("\n*... and %d more rows*", extra))
		}
	}
	return md
}

func formatQueries(queries []extract.QueryResult) []string {
	if len(queries) == 0 {
		return nil
	}
	var md []string
	md = append(md, "\n## Custom Query Results\n")
	for _, q := range queries {
		answer := q.Answer
		if answer == "" {
			answer = "No answer found"
		}
		md = append(md, fmt.Sprintf("\n**Q:** %s", q.Query))
		md = append(md, fmt.Sprintf("**A:** %s", answer))
		md = append(md, fmt.Sprintf("*Confidence: %.1f%%*\n", q.Confidence))
	}
	return md
}

func formatSignatures(sigs []extract.Signature) []string {
	if len(sigs) == 0 {
		return nil
	}
	var md []string
	md = append(md, "\n## Signatures\n")
	md = append(md, fmt.Sprintf("\n**Total signatures detected:** %d\n", len(sigs)))
	for i, s := range sigs {
		md = append(md, fmt.Sprintf("- **Signature %d:** Page %d, Confidence: %.1f%%", i+1, s.Page, s.Confidence))
	}
	return md
}

// FormatSummary renders the batch overview: per-document status table,
// aggregate counts and links to the individual reports.
func FormatSummary(docs []*pipeline.DocumentResult) string {
	var md []string
	md = append(md, "# Batch Processing Summary Report")
	md = append(md, fmt.Sprintf("\n*Generated on: %s*\n", time.Now().Format("2006-01-02 15:04:05")))
	md = append(md, fmt.Sprintf("**Total Documents Processed:** %d\n", len(docs)))

	md = append(md, "## Document Overview\n")
	md = append(md, "| Document | Status | Processing Time | Forms | Tables | Signatures |")
	md = append(md, "|----------|--------|-----------------|-------|--------|------------|")

	var totalForms, totalTables, totalSigs int
	for _, doc := range docs {
		totalForms += len(doc.Forms)
		totalTables += len(doc.Tables)
		totalSigs += len(doc.Signatures)

		status := "Failed"
		if doc.Metadata.Status == constants.DocStatusCompleted {
			status = "Completed"
		}
		md = append(md, fmt.Sprintf("| %s | %s | %.2fs | %d | %d | %d |",
			escapeCell(doc.Metadata.Filename), status, doc.Metadata.ProcessingTime.Seconds(),
			len(doc.Forms), len(doc.Tables), len(doc.Signatures)))
	}

	md = append(md, "\n## Overall Statistics\n")
	md = append(md, fmt.Sprintf("- **Total Form Fields Extracted:** %d", totalForms))
	md = append(md, fmt.Sprintf("- **Total Tables Extracted:** %d", totalTables))
	md = append(md, fmt.Sprintf("- **Total Signatures Detected:** %d", totalSigs))

	md = append(md, "\n## Individual Document Reports\n")
	for _, doc := range docs {
		md = append(md, fmt.Sprintf("- [%s](./%s_report.md)", doc.Metadata.Filename, Stem(doc.Metadata.Filename)))
	}
	return strings.Join(md, "\n")
}

// WriteDocumentReport writes <stem>_report.md to outDir.
func WriteDocumentReport(outDir string, doc *pipeline.DocumentResult) (string, error) {
	path := filepath.Join(outDir, Stem(doc.Metadata.Filename)+"_report.md")
	if err := os.WriteFile(path, []byte(FormatDocument(doc)), 0o644); err != nil {
		return "", common.WrapError(err, "write document report")
	}
	return path, nil
}

// WriteSummaryReport writes SUMMARY_REPORT.md to outDir.
func WriteSummaryReport(outDir string, docs []*pipeline.DocumentResult) (string, error) {
	path := filepath.Join(outDir, "SUMMARY_REPORT.md")
	if err := os.WriteFile(path, []byte(FormatSummary(docs)), 0o644); err != nil {
		return "", common.WrapError(err, "write summary report")
	}
	return path, nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func joinCells(row []string) string {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = escapeCell(c)
	}
	return strings.Join(cells, " | ")
}
