package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"AWS_REGION", "S3_BUCKET", "S3_PREFIX", "INVOICE_DIR", "OUTPUT_DIR",
		"MAX_PARALLEL", "POLL_INTERVAL", "MAX_WAIT", "ENABLE_LAYOUT", "QUERIES_FILE",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	if cfg.AWS.Region != "us-east-1" {
		t.Fatalf("region = %q", cfg.AWS.Region)
	}
	if cfg.S3.Prefix != "invoices/" {
		t.Fatalf("prefix = %q", cfg.S3.Prefix)
	}
	if cfg.Batch.MaxParallel != 3 {
		t.Fatalf("max parallel = %d", cfg.Batch.MaxParallel)
	}
	if cfg.Analysis.PollInterval != 5*time.Second || cfg.Analysis.MaxWait != 5*time.Minute {
		t.Fatalf("poll/wait = %v/%v", cfg.Analysis.PollInterval, cfg.Analysis.MaxWait)
	}
	if !cfg.Analysis.Layout || !cfg.Analysis.Forms || !cfg.Analysis.Tables {
		t.Fatalf("features should default on: %+v", cfg.Analysis)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("MAX_PARALLEL", "8")
	t.Setenv("POLL_INTERVAL", "2s")
	t.Setenv("ENABLE_SIGNATURES", "false")

	cfg := LoadConfig()
	if cfg.AWS.Region != "eu-central-1" || cfg.S3.Bucket != "my-bucket" {
		t.Fatalf("aws/s3 = %+v", cfg)
	}
	if cfg.Batch.MaxParallel != 8 {
		t.Fatalf("max parallel = %d", cfg.Batch.MaxParallel)
	}
	if cfg.Analysis.PollInterval != 2*time.Second {
		t.Fatalf("poll interval = %v", cfg.Analysis.PollInterval)
	}
	if cfg.Analysis.Signatures {
		t.Fatalf("signatures should be disabled")
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("S3_BUCKET", "bucket")
	cfg := LoadConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.S3.Bucket = ""
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing bucket: %v", err)
	}

	cfg.S3.Bucket = "bucket"
	cfg.Batch.MaxParallel = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero parallelism: %v", err)
	}

	cfg.Batch.MaxParallel = 1
	cfg.Analysis.PollInterval = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero poll interval: %v", err)
	}
}

func TestLoadQueriesDefault(t *testing.T) {
	qs, err := LoadQueries("")
	if err != nil {
		t.Fatalf("LoadQueries: %v", err)
	}
	if len(qs) != len(DefaultQueries) {
		t.Fatalf("queries = %d, want defaults", len(qs))
	}
}

func TestLoadQueriesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.yaml")
	content := "queries:\n  - What is the PO number?\n  - What is the shipping address?\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write queries file: %v", err)
	}

	qs, err := LoadQueries(path)
	if err != nil {
		t.Fatalf("LoadQueries: %v", err)
	}
	if len(qs) != 2 || qs[0] != "What is the PO number?" {
		t.Fatalf("queries = %v", qs)
	}
}

func TestLoadQueriesEmptyFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.yaml")
	if err := os.WriteFile(path, []byte("queries: []\n"), 0o644); err != nil {
		t.Fatalf("write queries file: %v", err)
	}
	qs, err := LoadQueries(path)
	if err != nil {
		t.Fatalf("LoadQueries: %v", err)
	}
	if len(qs) != len(DefaultQueries) {
		t.Fatalf("queries = %v, want defaults", qs)
	}
}

func TestLoadQueriesMissingFile(t *testing.T) {
	if _, err := LoadQueries(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "ctx") != nil {
		t.Fatalf("wrapping nil should stay nil")
	}
	base := errors.New("base")
	wrapped := WrapError(base, "reading file")
	if !errors.Is(wrapped, base) {
		t.Fatalf("wrapped error lost cause")
	}
	if wrapped.Error() != "reading file: base" {
		t.Fatalf("message = %q", wrapped.Error())
	}
}

func TestAppError(t *testing.T) {
	err := NewAppError("ANALYSIS_FAILED", "job died", ErrJobFailed)
	if !errors.Is(err, ErrJobFailed) {
		t.Fatalf("cause not unwrapped")
	}
	if err.Error() != "ANALYSIS_FAILED: job died: analysis job failed" {
		t.Fatalf("message = %q", err.Error())
	}
	bare := NewAppError("CONFIG_ERROR", "bad value", nil)
	if bare.Error() != "CONFIG_ERROR: bad value" {
		t.Fatalf("message = %q", bare.Error())
	}
}
