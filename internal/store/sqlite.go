package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/docupost/invoice-extract/constants"
	"github.com/docupost/invoice-extract/internal/common"
	"github.com/docupost/invoice-extract/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	filename        TEXT PRIMARY KEY,
	status          TEXT NOT NULL,
	error           TEXT NOT NULL DEFAULT '',
	invoice_number  TEXT,
	invoice_date    TEXT,
	invoice_total   REAL,
	currency        TEXT NOT NULL DEFAULT '',
	payment_terms   TEXT,
	line_items      TEXT NOT NULL DEFAULT '[]',
	processing_ms   INTEGER NOT NULL DEFAULT 0,
	processed_at    TEXT NOT NULL
);`

// Index is a local catalog of processed documents, so repeated batch runs can
// be inspected without re-reading the JSON artifacts.
type Index struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the index database at path and ensures the schema.
func Open(path string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "open index database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, common.WrapError(err, "create documents table")
	}
	return &Index{db: db, logger: logger}, nil
}

func (ix *Index) Close() error { return ix.db.Close() }

// Record upserts one document's outcome, keyed by filename. Re-running a
// batch overwrites the previous row.
func (ix *Index) Record(ctx context.Context, doc *pipeline.DocumentResult) error {
	var (
		number, date, terms *string
		total               *float64
		currency            string
		items               = "[]"
	)
	if inv := doc.Invoice; inv != nil {
		number = inv.InvoiceNumber
		date = inv.InvoiceDate
		terms = inv.PaymentTerms
		total = inv.InvoiceTotal.Value
		currency = inv.InvoiceTotal.Currency
		if raw, err := json.Marshal(inv.LineItems); err == nil {
			items = string(raw)
		}
	}

	_, err := ix.db.ExecContext(ctx, `
INSERT INTO documents
	(filename, status, error, invoice_number, invoice_date, invoice_total,
	 currency, payment_terms, line_items, processing_ms, processed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(filename) DO UPDATE SET
	status = excluded.status,
	error = excluded.error,
	invoice_number = excluded.invoice_number,
	invoice_date = excluded.invoice_date,
	invoice_total = excluded.invoice_total,
	currency = excluded.currency,
	payment_terms = excluded.payment_terms,
	line_items = excluded.line_items,
	processing_ms = excluded.processing_ms,
	processed_at = excluded.processed_at`,
		doc.Metadata.Filename,
		string(doc.Metadata.Status),
		doc.Metadata.Error,
		number, date, total, currency, terms, items,
		doc.Metadata.ProcessingTime.Milliseconds(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return common.WrapError(err, "record document")
	}
	ix.logger.Debug("index.record", "file", doc.Metadata.Filename, "status", doc.Metadata.Status)
	return nil
}

// Entry is one indexed document row.
type Entry struct {
	Filename      string
	Status        constants.DocStatus
	Error         string
	InvoiceNumber *string
	InvoiceDate   *string
	InvoiceTotal  *float64
	Currency      string
	PaymentTerms  *string
	ProcessingMS  int64
	ProcessedAt   time.Time
}

// List returns every indexed document, most recently processed first.
func (ix *Index) List(ctx context.Context) ([]Entry, error) {
	rows, err := ix.db.QueryContext(ctx, `
SELECT filename, status, error, invoice_number, invoice_date, invoice_total,
       currency, payment_terms, processing_ms, processed_at
FROM documents ORDER BY processed_at DESC, filename`)
	if err != nil {
		return nil, common.WrapError(err, "list documents")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status, processedAt string
		if err := rows.Scan(&e.Filename, &status, &e.Error, &e.InvoiceNumber,
			&e.InvoiceDate, &e.InvoiceTotal, &e.Currency, &e.PaymentTerms,
			&e.ProcessingMS, &processedAt); err != nil {
			return nil, common.WrapError(err, "scan document row")
		}
		e.Status = constants.DocStatus(status)
		if t, err := time.Parse(time.RFC3339, processedAt); err == nil {
			e.ProcessedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
