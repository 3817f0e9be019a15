package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/docupost/invoice-extract/constants"
	"github.com/docupost/invoice-extract/internal/analysis"
	"github.com/docupost/invoice-extract/internal/extract"
)

// Analyzer runs the external document-analysis job for one stored object and
// returns the full block collection.
type Analyzer interface {
	Analyze(ctx context.Context, bucket, key string, f analysis.Features) ([]types.Block, error)
}

// Metadata records per-document processing state. A failed document carries
// its error here; the batch never aborts on a single document.
type Metadata struct {
	Filename       string              `json:"file_path"`
	Status         constants.DocStatus `json:"status"`
	Error          string              `json:"error,omitempty"`
	ProcessingTime time.Duration       `json:"-"`
	TotalBlocks    int                 `json:"total_blocks"`
}

// DocumentResult is everything produced for one document: raw sections for
// reporting plus the normalized invoice record.
type DocumentResult struct {
	Metadata   Metadata
	Layout     extract.Layout
	Forms      []extract.FormField
	Tables     []Table
	Queries    []extract.QueryResult
	Signatures []extract.Signature
	Invoice    *extract.InvoiceRecord
}

// Table is the dense row view of one page's reconstructed table, for report
// rendering.
type Table struct {
	Page        int32
	Rows        [][]string
	RowCount    int
	ColumnCount int
}

// Processor runs the full per-document pipeline: analyze, read sections,
// extract the invoice record. The computation over blocks is pure and safe
// to run in parallel across documents.
type Processor struct {
	analyzer Analyzer
	bucket   string
	features analysis.Features
	rules    *extract.Ruleset
	logger   *slog.Logger
}

func NewProcessor(analyzer Analyzer, bucket string, features analysis.Features, rules *extract.Ruleset, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = extract.DefaultRuleset()
	}
	return &Processor{
		analyzer: analyzer,
		bucket:   bucket,
		features: features,
		rules:    rules,
		logger:   logger,
	}
}

// ProcessDocument processes one document end to end. Errors and panics are
// absorbed into the result's metadata with status "failed".
func (p *Processor) ProcessDocument(ctx context.Context, filename, s3Key string) (res *DocumentResult) {
	start := time.Now()
	res = &DocumentResult{Metadata: Metadata{
		Filename: filename,
		Status:   constants.DocStatusProcessing,
	}}
	defer func() {
		if r := recover(); r != nil {
			res.Metadata.Status = constants.DocStatusFailed
			res.Metadata.Error = fmt.Sprintf("panic: %v", r)
			p.logger.Error("document processing panicked", "file", filename, "panic", r)
		}
		res.Metadata.ProcessingTime = time.Since(start)
	}()

	blocks, err := p.analyzer.Analyze(ctx, p.bucket, s3Key, p.features)
	if err != nil {
		res.Metadata.Status = constants.DocStatusFailed
		res.Metadata.Error = err.Error()
		p.logger.Error("document analysis failed", "file", filename, "error", err)
		return res
	}
	res.Metadata.TotalBlocks = len(blocks)

	ix := extract.NewBlockIndex(blocks)
	if p.features.Layout {
		res.Layout = ix.LayoutElements()
	}
	if p.features.Forms {
		res.Forms = ix.FormFields()
	}
	if p.features.Tables {
		res.Tables = tablesFromGrid(ix.BuildTableGrid())
	}
	if len(p.features.Queries) > 0 {
		res.Queries = ix.QueryAnswers()
	}
	if p.features.Signatures {
		res.Signatures = ix.Signatures()
	}

	res.Invoice = extract.Extract(blocks, res.Queries, p.rules)
	res.Metadata.Status = constants.DocStatusCompleted

	p.logger.Info("document processed",
		"file", filename,
		"blocks", len(blocks),
		"line_items", len(res.Invoice.LineItems),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func tablesFromGrid(grid extract.TableGrid) []Table {
	var tables []Table
	for _, page := range grid.Pages() {
		rows := grid[page].Materialize()
		if len(rows) == 0 {
			continue
		}
		tables = append(tables, Table{
			Page:        page,
			Rows:        rows,
			RowCount:    len(rows),
			ColumnCount: len(rows[0]),
		})
	}
	return tables
}
