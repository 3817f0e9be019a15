package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/docupost/invoice-extract/internal/common"
)

// API is the subset of the Textract service used by the client. It lets
// tests stub the external analysis collaborator.
type API interface {
	StartDocumentAnalysis(ctx context.Context, params *textract.StartDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.StartDocumentAnalysisOutput, error)
	GetDocumentAnalysis(ctx context.Context, params *textract.GetDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.GetDocumentAnalysisOutput, error)
}

// Features selects which analysis features a job requests. A non-empty
// Queries list enables the QUERIES feature with those questions.
type Features struct {
	Layout     bool
	Forms      bool
	Tables     bool
	Signatures bool
	Queries    []string
}

func (f Features) featureTypes() []types.FeatureType {
	var fts []types.FeatureType
	if f.Layout {
		fts = append(fts, types.FeatureTypeLayout)
	}
	if f.Forms {
		fts = append(fts, types.FeatureTypeForms)
	}
	if f.Tables {
		fts = append(fts, types.FeatureTypeTables)
	}
	if f.Signatures {
		fts = append(fts, types.FeatureTypeSignatures)
	}
	if len(f.Queries) > 0 {
		fts = append(fts, types.FeatureTypeQueries)
	}
	return fts
}

// Client drives the asynchronous document-analysis job lifecycle: start,
// poll to a terminal state, then collect the full block collection.
type Client struct {
	api          API
	logger       *slog.Logger
	pollInterval time.Duration
	maxWait      time.Duration
}

type Option func(*Client)

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithMaxWait(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

func NewClient(api API, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		api:          api,
		logger:       logger,
		pollInterval: 5 * time.Second,
		maxWait:      5 * time.Minute,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start begins an asynchronous analysis of s3://bucket/key and returns the
// job ID.
func (c *Client) Start(ctx context.Context, bucket, key string, f Features) (string, error) {
	input := &textract.StartDocumentAnalysisInput{
		DocumentLocation: &types.DocumentLocation{
			S3Object: &types.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
		FeatureTypes: f.featureTypes(),
	}
	if len(f.Queries) > 0 {
		qs := make([]types.Query, len(f.Queries))
		for i, q := range f.Queries {
			qs[i] = types.Query{
				Text:  aws.String(q),
				Alias: aws.String(fmt.Sprintf("Q%d", i+1)),
			}
		}
		input.QueriesConfig = &types.QueriesConfig{Queries: qs}
	}

	out, err := c.api.StartDocumentAnalysis(ctx, input)
	if err != nil {
		return "", common.WrapError(err, "start document analysis")
	}
	jobID := aws.ToString(out.JobId)
	c.logger.Info("analysis started", "bucket", bucket, "key", key, "job_id", jobID,
		"features", len(input.FeatureTypes), "queries", len(f.Queries))
	return jobID, nil
}

// Wait polls the job until it reaches a terminal state, with a fixed backoff
// and a hard deadline. Failure and timeout are terminal errors; the caller
// marks the document failed and the batch continues.
func (c *Client) Wait(ctx context.Context, jobID string) error {
	deadline := time.Now().Add(c.maxWait)
	for {
		out, err := c.api.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
			JobId: aws.String(jobID),
		})
		if err != nil {
			return common.WrapError(err, "get document analysis")
		}
		switch out.JobStatus {
		case types.JobStatusSucceeded:
			return nil
		case types.JobStatusFailed:
			msg := aws.ToString(out.StatusMessage)
			if msg == "" {
				msg = "unknown error"
			}
			return common.NewAppError("ANALYSIS_FAILED", msg, common.ErrJobFailed)
		}

		if time.Now().After(deadline) {
			return common.NewAppError("ANALYSIS_TIMEOUT",
				fmt.Sprintf("job %s did not complete within %s", jobID, c.maxWait),
				common.ErrJobTimeout)
		}
		c.logger.Debug("analysis in progress", "job_id", jobID, "status", out.JobStatus)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// CollectBlocks retrieves every result page of a completed job and
// concatenates the blocks. Extraction requires the full collection; partial
// invocation is not supported.
func (c *Client) CollectBlocks(ctx context.Context, jobID string) ([]types.Block, error) {
	var blocks []types.Block
	var nextToken *string
	pages := 0
	for {
		out, err := c.api.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
			JobId:     aws.String(jobID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, common.WrapError(err, fmt.Sprintf("retrieve result page %d", pages+1))
		}
		blocks = append(blocks, out.Blocks...)
		pages++
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	c.logger.Info("analysis results collected", "job_id", jobID, "pages", pages, "blocks", len(blocks))
	return blocks, nil
}

// Analyze runs the full job lifecycle for one document and returns its block
// collection.
func (c *Client) Analyze(ctx context.Context, bucket, key string, f Features) ([]types.Block, error) {
	jobID, err := c.Start(ctx, bucket, key, f)
	if err != nil {
		return nil, err
	}
	if err := c.Wait(ctx, jobID); err != nil {
		return nil, err
	}
	return c.CollectBlocks(ctx, jobID)
}
