package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/joho/godotenv"

	"github.com/docupost/invoice-extract/constants"
	"github.com/docupost/invoice-extract/internal/analysis"
	"github.com/docupost/invoice-extract/internal/batch"
	"github.com/docupost/invoice-extract/internal/common"
	"github.com/docupost/invoice-extract/internal/extract"
	"github.com/docupost/invoice-extract/internal/pipeline"
	"github.com/docupost/invoice-extract/internal/report"
	"github.com/docupost/invoice-extract/internal/s3sync"
	"github.com/docupost/invoice-extract/internal/store"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	_ = godotenv.Load()

	cfg := common.LoadConfig()

	// Parse CLI flags; each overrides its environment default
	var (
		dir      = flag.String("dir", cfg.Batch.InvoiceDir, "directory of invoice PDFs")
		out      = flag.String("out", cfg.Batch.OutputDir, "output directory for extraction artifacts")
		bucket   = flag.String("bucket", cfg.S3.Bucket, "S3 bucket for analysis input")
		prefix   = flag.String("prefix", cfg.S3.Prefix, "S3 key prefix")
		parallel = flag.Int("parallel", cfg.Batch.MaxParallel, "number of documents processed concurrently")
		index    = flag.String("index", cfg.Batch.IndexPath, "optional SQLite index path")
		queries  = flag.String("queries", cfg.Analysis.QueriesFile, "optional YAML file of custom queries")

		layout     = flag.Bool("layout", cfg.Analysis.Layout, "request layout analysis")
		forms      = flag.Bool("forms", cfg.Analysis.Forms, "request form analysis")
		tables     = flag.Bool("tables", cfg.Analysis.Tables, "request table analysis")
		askQueries = flag.Bool("ask-queries", cfg.Analysis.Queries, "request query answers")
		signatures = flag.Bool("signatures", cfg.Analysis.Signatures, "request signature detection")
	)
	flag.Parse()

	cfg.Batch.InvoiceDir = *dir
	cfg.Batch.OutputDir = *out
	cfg.S3.Bucket = *bucket
	cfg.S3.Prefix = *prefix
	cfg.Batch.MaxParallel = *parallel
	cfg.Batch.IndexPath = *index
	cfg.Analysis.QueriesFile = *queries
	cfg.Analysis.Layout = *layout
	cfg.Analysis.Forms = *forms
	cfg.Analysis.Tables = *tables
	cfg.Analysis.Queries = *askQueries
	cfg.Analysis.Signatures = *signatures

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}
	s3Client := s3.NewFromConfig(awsCfg)
	textractClient := textract.NewFromConfig(awsCfg)

	// Mirror the local invoice folder into the bucket
	syncer := s3sync.NewSyncer(s3Client, cfg.S3.Bucket, cfg.S3.Prefix, logger)
	uploaded, skipped, deleted, err := syncer.Sync(ctx, cfg.Batch.InvoiceDir)
	if err != nil {
		logger.Error("failed to sync invoice directory", "error", err)
		os.Exit(1)
	}
	logger.Info("sync complete",
		"uploaded", len(uploaded), "skipped", len(skipped), "deleted", len(deleted))

	if err := os.MkdirAll(cfg.Batch.OutputDir, 0o755); err != nil {
		logger.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	features := analysis.Features{
		Layout:     cfg.Analysis.Layout,
		Forms:      cfg.Analysis.Forms,
		Tables:     cfg.Analysis.Tables,
		Signatures: cfg.Analysis.Signatures,
	}
	if cfg.Analysis.Queries {
		qs, err := common.LoadQueries(cfg.Analysis.QueriesFile)
		if err != nil {
			logger.Error("failed to load queries", "error", err)
			os.Exit(1)
		}
		features.Queries = qs
	}

	analyzer := analysis.NewClient(textractClient, logger,
		analysis.WithPollInterval(cfg.Analysis.PollInterval),
		analysis.WithMaxWait(cfg.Analysis.MaxWait),
	)
	processor := pipeline.NewProcessor(analyzer, cfg.S3.Bucket, features, extract.DefaultRuleset(), logger)

	pool := batch.NewPool(processor, logger, batch.WithWorkers(cfg.Batch.MaxParallel))

	files := listPDFs(cfg.Batch.InvoiceDir, logger)
	if len(files) == 0 {
		printError("Error: no PDF files found in %s\n", cfg.Batch.InvoiceDir)
		os.Exit(1)
	}
	for _, name := range files {
		if _, err := pool.Submit(name, cfg.S3.Prefix+name); err != nil {
			logger.Error("failed to submit document", "file", name, "error", err)
		}
	}
	results := pool.Collect()

	// Stable artifact order regardless of completion order
	sort.Slice(results, func(i, j int) bool {
		return results[i].Task.Filename < results[j].Task.Filename
	})

	var docs []*pipeline.DocumentResult
	completed, failed := 0, 0
	for _, r := range results {
		doc := r.Document
		docs = append(docs, doc)

		if doc.Metadata.Status == constants.DocStatusCompleted {
			completed++
			if _, err := report.WriteInvoiceJSON(cfg.Batch.OutputDir, doc.Metadata.Filename, doc.Invoice); err != nil {
				logger.Error("failed to write invoice json", "file", doc.Metadata.Filename, "error", err)
			}
		} else {
			failed++
		}
		if _, err := report.WriteDocumentReport(cfg.Batch.OutputDir, doc); err != nil {
			logger.Error("failed to write document report", "file", doc.Metadata.Filename, "error", err)
		}
	}

	if _, err := report.WriteSummaryReport(cfg.Batch.OutputDir, docs); err != nil {
		logger.Error("failed to write summary report", "error", err)
	}
	xlsxPath, err := report.WriteBatchXLSX(cfg.Batch.OutputDir, docs, logger)
	if err != nil {
		logger.Error("failed to write batch workbook", "error", err)
	}

	if cfg.Batch.IndexPath != "" {
		ix, err := store.Open(cfg.Batch.IndexPath, logger)
		if err != nil {
			logger.Error("failed to open index", "path", cfg.Batch.IndexPath, "error", err)
		} else {
			for _, doc := range docs {
				if err := ix.Record(ctx, doc); err != nil {
					logger.Error("failed to index document", "file", doc.Metadata.Filename, "error", err)
				}
			}
			if err := ix.Close(); err != nil {
				logger.Error("failed to close index", "error", err)
			}
		}
	}

	logger.Info("batch processing complete",
		"documents", len(docs),
		"completed", completed,
		"failed", failed,
		"output_dir", cfg.Batch.OutputDir)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents: %d\n", len(docs))
	fmt.Printf("- Completed: %d\n", completed)
	fmt.Printf("- Failed: %d\n", failed)
	fmt.Printf("- Output: %s\n", cfg.Batch.OutputDir)
	if xlsxPath != "" {
		fmt.Printf("- Workbook: %s\n", xlsxPath)
	}
}

func listPDFs(dir string, logger *slog.Logger) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Error("failed to read invoice directory", "dir", dir, "error", err)
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files
}
