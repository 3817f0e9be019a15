package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/docupost/invoice-extract/internal/common"
	"github.com/docupost/invoice-extract/internal/pipeline"
)

// ExportBatchXLSX returns an XLSX workbook (as bytes) summarizing the batch:
// one row per document with the extracted invoice fields.
func ExportBatchXLSX(docs []*pipeline.DocumentResult, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Invoices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Document",
		"Status",
		"Invoice Number",
		"Invoice Date",
		"Invoice Total",
		"Currency",
		"Line Items",
		"Payment Terms",
		"Elapsed (s)",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, doc := range docs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, doc.Metadata.Filename)
		write(2, string(doc.Metadata.Status))
		if inv := doc.Invoice; inv != nil {
			if inv.InvoiceNumber != nil {
				write(3, *inv.InvoiceNumber)
			}
			if inv.InvoiceDate != nil {
				write(4, *inv.InvoiceDate)
			}
			if inv.InvoiceTotal.IsNumeric() {
				write(5, *inv.InvoiceTotal.Value)
			} else {
				write(5, inv.InvoiceTotal.Formatted)
			}
			write(6, inv.InvoiceTotal.Currency)
			write(7, len(inv.LineItems))
			if inv.PaymentTerms != nil {
				write(8, *inv.PaymentTerms)
			}
		}
		write(9, doc.Metadata.ProcessingTime.Seconds())
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 36) // document
	_ = f.SetColWidth(sheet, "B", "B", 12) // status
	_ = f.SetColWidth(sheet, "C", "D", 18) // number, date
	_ = f.SetColWidth(sheet, "E", "F", 14) // total, currency
	_ = f.SetColWidth(sheet, "H", "H", 40) // terms

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("report.xlsx.ok",
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteBatchXLSX writes the batch workbook to outDir as batch_summary.xlsx.
func WriteBatchXLSX(outDir string, docs []*pipeline.DocumentResult, logger *slog.Logger) (string, error) {
	data, err := ExportBatchXLSX(docs, logger)
	if err != nil {
		return "", err
	}
	path := filepath.Join(outDir, "batch_summary.xlsx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", common.WrapError(err, "write batch workbook")
	}
	return path, nil
}
