// Package artifactstore optionally uploads the finished JSONL/CSV
// outputs to S3-compatible storage, and can symmetrically fetch a
// border file staged there (SPEC_FULL §B "domain stack", mirroring the
// teacher's s3.go tile upload, repurposed to geohierarchy artifacts).
// Entirely optional: the pipeline runs standalone when no bucket is
// configured (config.S3Config.Enabled() == false).
//
// Grounded on the teacher's (mumuon-tile-service) s3.go: the same
// custom-endpoint resolver (for R2/S3-compatible endpoints),
// manager.Uploader, and UploadFile shape (without its HeadObject
// check), trimmed to what a
// two-file artifact upload needs (no parallel directory walk — the
// teacher's 100-worker tile-directory uploader has no role here, since
// this pipeline emits two files, not a tile tree).
package artifactstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Settings names the S3-compatible endpoint and bucket artifacts upload
// to. The zero value is never passed to New; callers check
// config.S3Config.Enabled() first.
type Settings struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	Prefix          string
}

// Store wraps an S3 client scoped to one bucket/prefix.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New builds a Store against an S3-compatible endpoint, matching the
// teacher's NewS3Client custom endpoint resolver (used for Cloudflare
// R2 and similar non-AWS S3 implementations).
func New(ctx context.Context, st Settings) (*Store, error) {
	logger := slog.With("endpoint", st.Endpoint, "bucket", st.Bucket)
	logger.Info("initializing artifact store")

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID && st.Endpoint != "" {
			return aws.Endpoint{URL: st.Endpoint, SigningRegion: st.Region}, nil
		}
		return aws.Endpoint{}, &smithy.GenericAPIError{Code: "UnknownEndpoint"}
	})

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(st.Region),
	}
	if st.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(st.AccessKeyID, st.SecretAccessKey, ""),
		))
	}
	if st.Endpoint != "" {
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("artifactstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.UsePathStyle = true })
	logger.Info("artifact store ready")

	return &Store{client: client, bucket: st.Bucket, prefix: st.Prefix}, nil
}

// UploadFile uploads the file at localPath to "<prefix>/<name>" and
// returns its size.
func (s *Store) UploadFile(ctx context.Context, localPath, name string) (int64, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return 0, fmt.Errorf("artifactstore: stat: %w", err)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("artifactstore: open: %w", err)
	}
	defer f.Close()

	key := s.key(name)
	uploader := manager.NewUploader(s.client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return 0, fmt.Errorf("artifactstore: upload %s: %w", key, err)
	}
	slog.Info("artifact uploaded", "key", key, "bytes", info.Size())
	return info.Size(), nil
}

// FetchBorderFile downloads a border file staged under name to
// destPath, the symmetric counterpart to UploadFile used when the
// border file itself lives in object storage rather than locally.
func (s *Store) FetchBorderFile(ctx context.Context, name, destPath string) error {
	key := s.key(name)

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("artifactstore: create %s: %w", destPath, err)
	}
	defer f.Close()

	downloader := manager.NewDownloader(s.client)
	if _, err := downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("artifactstore: download %s: %w", key, err)
	}
	slog.Info("border file fetched", "key", key, "dest", destPath)
	return nil
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}
