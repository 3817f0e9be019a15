package s3sync

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/docupost/invoice-extract/internal/common"
)

// API is the subset of the S3 service used by the syncer.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// metadataFile caches content hashes between runs so unchanged files are
// skipped without re-reading the remote side.
const metadataFile = ".s3sync.json"

type fileMeta struct {
	Hash       string `json:"hash"`
	Size       int64  `json:"size"`
	S3Key      string `json:"s3_key"`
	LastSynced string `json:"last_synced"`
}

// Syncer mirrors a local PDF folder into an S3 prefix: upload new or changed
// files, skip unchanged ones, delete remote objects with no local
// counterpart. Change detection uses MD5 content hashes.
type Syncer struct {
	api    API
	bucket string
	prefix string
	logger *slog.Logger
}

func NewSyncer(api API, bucket, prefix string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{api: api, bucket: bucket, prefix: prefix, logger: logger}
}

// Sync performs one full pass over localDir and returns the uploaded,
// skipped and deleted filenames.
func (s *Syncer) Sync(ctx context.Context, localDir string) (uploaded, skipped, deleted []string, err error) {
	meta := s.loadMetadata(localDir)

	remote, err := s.remoteFiles(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	local, err := s.localFiles(localDir)
	if err != nil {
		return nil, nil, nil, err
	}

	for _, lf := range local {
		key := s.prefix + lf.name
		prev, known := meta[lf.name]
		_, onRemote := remote[lf.name]

		if onRemote && known && prev.Hash == lf.hash {
			skipped = append(skipped, lf.name)
			s.logger.Info("sync skip unchanged", "file", lf.name)
			continue
		}

		if err := s.upload(ctx, lf.path, key); err != nil {
			s.logger.Error("sync upload failed", "file", lf.name, "error", err)
			continue
		}
		uploaded = append(uploaded, lf.name)
		meta[lf.name] = fileMeta{
			Hash:       lf.hash,
			Size:       lf.size,
			S3Key:      key,
			LastSynced: time.Now().UTC().Format(time.RFC3339),
		}
		s.logger.Info("sync uploaded", "file", lf.name, "key", key)
	}

	localNames := make(map[string]struct{}, len(local))
	for _, lf := range local {
		localNames[lf.name] = struct{}{}
	}
	for name, key := range remote {
		if _, ok := localNames[name]; ok {
			continue
		}
		if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}); err != nil {
			s.logger.Error("sync delete failed", "file", name, "error", err)
			continue
		}
		deleted = append(deleted, name)
		delete(meta, name)
		s.logger.Info("sync deleted remote", "file", name, "key", key)
	}

	s.saveMetadata(localDir, meta)
	return uploaded, skipped, deleted, nil
}

type localFile struct {
	name string
	path string
	hash string
	size int64
}

func (s *Syncer) localFiles(dir string) ([]localFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, common.WrapError(err, "read local dir")
	}
	var files []localFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		hash, size, err := fileMD5(path)
		if err != nil {
			s.logger.Error("sync hash failed", "file", e.Name(), "error", err)
			continue
		}
		files = append(files, localFile{name: e.Name(), path: path, hash: hash, size: size})
	}
	return files, nil
}

// remoteFiles lists the PDFs under the configured prefix, filename → key.
func (s *Syncer) remoteFiles(ctx context.Context) (map[string]string, error) {
	remote := make(map[string]string)
	var token *string
	for {
		out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, common.WrapError(err, "list remote objects")
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(strings.ToLower(key), ".pdf") {
				remote[filepath.Base(key)] = key
			}
		}
		if out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}
	return remote, nil
}

func (s *Syncer) upload(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return common.WrapError(err, "open local file")
	}
	defer f.Close()

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	return common.WrapError(err, "put object")
}

func (s *Syncer) loadMetadata(dir string) map[string]fileMeta {
	meta := make(map[string]fileMeta)
	raw, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return meta
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		s.logger.Warn("sync metadata unreadable, starting fresh", "error", err)
		return make(map[string]fileMeta)
	}
	return meta
}

func (s *Syncer) saveMetadata(dir string, meta map[string]fileMeta) {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		s.logger.Warn("sync metadata encode failed", "error", err)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), raw, 0o644); err != nil {
		s.logger.Warn("sync metadata write failed", "error", err)
	}
}

func fileMD5(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := md5.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
