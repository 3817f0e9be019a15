package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/docupost/invoice-extract/constants"
	"github.com/docupost/invoice-extract/internal/analysis"
)

type fakeAnalyzer struct {
	blocks []types.Block
	err    error
	panics bool
	key    string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, bucket, key string, feat analysis.Features) ([]types.Block, error) {
	f.key = key
	if f.panics {
		panic("boom")
	}
	return f.blocks, f.err
}

func word(id, text string) types.Block {
	return types.Block{Id: aws.String(id), BlockType: types.BlockTypeWord, Text: aws.String(text)}
}

func cellBlock(id string, row, col int32, childID string) types.Block {
	return types.Block{
		Id:          aws.String(id),
		BlockType:   types.BlockTypeCell,
		RowIndex:    aws.Int32(row),
		ColumnIndex: aws.Int32(col),
		Relationships: []types.Relationship{
			{Type: types.RelationshipTypeChild, Ids: []string{childID}},
		},
	}
}

func sampleBlocks() []types.Block {
	return []types.Block{
		word("w1", "Description"),
		word("w2", "Amount"),
		word("w3", "Consulting"),
		word("w4", "500.00"),
		cellBlock("c1", 1, 1, "w1"),
		cellBlock("c2", 1, 2, "w2"),
		cellBlock("c3", 2, 1, "w3"),
		cellBlock("c4", 2, 2, "w4"),
		{Id: aws.String("l1"), BlockType: types.BlockTypeLine, Text: aws.String("Grand Total: $500.00")},
		{Id: aws.String("t1"), BlockType: types.BlockTypeLayoutTitle, Text: aws.String("INVOICE")},
		{Id: aws.String("s1"), BlockType: types.BlockTypeSignature, Page: aws.Int32(1)},
	}
}

func allFeatures() analysis.Features {
	return analysis.Features{Layout: true, Forms: true, Tables: true, Signatures: true}
}

func TestProcessDocumentSuccess(t *testing.T) {
	fa := &fakeAnalyzer{blocks: sampleBlocks()}
	p := NewProcessor(fa, "bucket", allFeatures(), nil, nil)

	res := p.ProcessDocument(context.Background(), "a.pdf", "invoices/a.pdf")
	if res.Metadata.Status != constants.DocStatusCompleted {
		t.Fatalf("status = %s: %s", res.Metadata.Status, res.Metadata.Error)
	}
	if fa.key != "invoices/a.pdf" {
		t.Fatalf("analyzed key = %q", fa.key)
	}
	if res.Metadata.TotalBlocks != len(sampleBlocks()) {
		t.Fatalf("total blocks = %d", res.Metadata.TotalBlocks)
	}
	if res.Metadata.ProcessingTime <= 0 {
		t.Fatalf("processing time not recorded")
	}

	if len(res.Tables) != 1 || res.Tables[0].RowCount != 2 {
		t.Fatalf("tables = %+v", res.Tables)
	}
	if len(res.Layout.Titles) != 1 {
		t.Fatalf("layout = %+v", res.Layout)
	}
	if len(res.Signatures) != 1 {
		t.Fatalf("signatures = %+v", res.Signatures)
	}

	if res.Invoice == nil {
		t.Fatalf("invoice record missing")
	}
	if len(res.Invoice.LineItems) != 1 || res.Invoice.LineItems[0].Description != "Consulting" {
		t.Fatalf("line items = %+v", res.Invoice.LineItems)
	}
	if !res.Invoice.InvoiceTotal.IsNumeric() || *res.Invoice.InvoiceTotal.Value != 500.00 {
		t.Fatalf("total = %+v", res.Invoice.InvoiceTotal)
	}
}

func TestProcessDocumentDisabledFeatures(t *testing.T) {
	fa := &fakeAnalyzer{blocks: sampleBlocks()}
	p := NewProcessor(fa, "bucket", analysis.Features{Tables: true}, nil, nil)

	res := p.ProcessDocument(context.Background(), "a.pdf", "invoices/a.pdf")
	if !res.Layout.Empty() || res.Forms != nil || res.Signatures != nil {
		t.Fatalf("disabled sections populated: %+v", res)
	}
	if len(res.Tables) != 1 {
		t.Fatalf("tables = %+v", res.Tables)
	}
}

func TestProcessDocumentAnalysisError(t *testing.T) {
	fa := &fakeAnalyzer{err: errors.New("throttled")}
	p := NewProcessor(fa, "bucket", allFeatures(), nil, nil)

	res := p.ProcessDocument(context.Background(), "a.pdf", "invoices/a.pdf")
	if res.Metadata.Status != constants.DocStatusFailed {
		t.Fatalf("status = %s, want failed", res.Metadata.Status)
	}
	if res.Metadata.Error != "throttled" {
		t.Fatalf("error = %q", res.Metadata.Error)
	}
	if res.Invoice != nil {
		t.Fatalf("failed document should carry no invoice record")
	}
}

func TestProcessDocumentRecoversPanic(t *testing.T) {
	fa := &fakeAnalyzer{panics: true}
	p := NewProcessor(fa, "bucket", allFeatures(), nil, nil)

	res := p.ProcessDocument(context.Background(), "a.pdf", "invoices/a.pdf")
	if res.Metadata.Status != constants.DocStatusFailed {
		t.Fatalf("status = %s, want failed", res.Metadata.Status)
	}
	if res.Metadata.Error != "panic: boom" {
		t.Fatalf("error = %q", res.Metadata.Error)
	}
}
