package common

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	AWS      AWSConfig
	S3       S3Config
	Batch    BatchConfig
	Analysis AnalysisConfig
}

// AWSConfig holds AWS client configuration
type AWSConfig struct {
	Region string
}

// S3Config holds object-storage sync configuration
type S3Config struct {
	Bucket string
	Prefix string
}

// BatchConfig holds batch processing configuration
type BatchConfig struct {
	InvoiceDir  string
	OutputDir   string
	MaxParallel int
	IndexPath   string
}

// AnalysisConfig holds document-analysis job configuration
type AnalysisConfig struct {
	PollInterval time.Duration
	MaxWait      time.Duration
	Layout       bool
	Forms        bool
	Tables       bool
	Queries      bool
	Signatures   bool
	QueriesFile  string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		AWS: AWSConfig{
			Region: getEnv("AWS_REGION", "us-east-1"),
		},
		S3: S3Config{
			Bucket: getEnv("S3_BUCKET", ""),
			Prefix: getEnv("S3_PREFIX", "invoices/"),
		},
		Batch: BatchConfig{
			InvoiceDir:  getEnv("INVOICE_DIR", "invoices"),
			OutputDir:   getEnv("OUTPUT_DIR", "textract_output"),
			MaxParallel: getEnvAsInt("MAX_PARALLEL", 3),
			IndexPath:   getEnv("INDEX_PATH", ""),
		},
		Analysis: AnalysisConfig{
			PollInterval: getEnvAsDuration("POLL_INTERVAL", 5*time.Second),
			MaxWait:      getEnvAsDuration("MAX_WAIT", 5*time.Minute),
			Layout:       getEnvAsBool("ENABLE_LAYOUT", true),
			Forms:        getEnvAsBool("ENABLE_FORMS", true),
			Tables:       getEnvAsBool("ENABLE_TABLES", true),
			Queries:      getEnvAsBool("ENABLE_QUERIES", true),
			Signatures:   getEnvAsBool("ENABLE_SIGNATURES", true),
			QueriesFile:  getEnv("QUERIES_FILE", ""),
		},
	}
}

// DefaultQueries are applied to every document when queries are enabled and
// no queries file is configured.
var DefaultQueries = []string{
	"What is the total amount?",
	"What is the invoice date?",
	"What is the invoice number?",
	"Who is the vendor or supplier?",
	"What is the due date?",
	"What is the payment terms?",
	"What is the tax amount?",
	"What is the customer name?",
}

// LoadQueries reads the custom query list from a YAML file of the form
//
//	queries:
//	  - What is the total amount?
//
// An empty path returns DefaultQueries.
func LoadQueries(path string) ([]string, error) {
	if path == "" {
		return DefaultQueries, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(err, "read queries file")
	}
	var doc struct {
		Queries []string `yaml:"queries"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, WrapError(err, "parse queries file")
	}
	if len(doc.Queries) == 0 {
		return DefaultQueries, nil
	}
	return doc.Queries, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.S3.Bucket == "" {
		return NewAppError("CONFIG_ERROR", "S3_BUCKET is required", ErrInvalidInput)
	}
	if c.Batch.MaxParallel < 1 {
		return NewAppError("CONFIG_ERROR", "MAX_PARALLEL must be at least 1", ErrInvalidInput)
	}
	if c.Analysis.PollInterval <= 0 || c.Analysis.MaxWait <= 0 {
		return NewAppError("CONFIG_ERROR", "POLL_INTERVAL and MAX_WAIT must be positive", ErrInvalidInput)
	}
	return nil
}
