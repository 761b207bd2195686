//go:build aws

package s3

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/openindexer/indexerd/pkg/compression"
	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/logger"
	"github.com/openindexer/indexerd/pkg/storage"
)

const defaultRegion = "us-east-1"

// Store is an S3-backed object store
type Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	bucket     string
	prefix     string
	compressor compression.Compressor
	logger     *zap.Logger
}

// New creates an S3 object store from the storage config
func New(ctx context.Context, cfg *storage.Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// The emulator does not resolve virtual-hosted bucket names
			o.UsePathStyle = true
		}
	})

	compressor, err := compression.NewCompressor(cfg.Compression)
	if err != nil {
		return nil, err
	}

	store := &Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		compressor: compressor,
		logger:     logger.With(zap.String("component", "s3_store"), zap.String("bucket", cfg.Bucket)),
	}

	if err := store.Health(ctx); err != nil {
		return nil, err
	}

	store.logger.Info("s3 object store initialized",
		zap.String("region", region),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("compression", string(compressor.Algorithm())))

	return store, nil
}

// Put writes an object, replacing any existing object at key
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	payload, err := s.compressor.Compress(data)
	if err != nil {
		return err
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to upload object "+key)
	}

	s.logger.Debug("object uploaded", zap.String("key", key), zap.Int("bytes", len(payload)))
	return nil
}

// Get reads an object. Missing keys return a not_found error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if stderrors.As(err, &noKey) {
			return nil, errors.Newf(errors.ErrorTypeNotFound, "object %s not found", key)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to get object "+key)
	}
	defer func() { _ = out.Body.Close() }()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read object "+key)
	}

	return s.compressor.Decompress(payload)
}

// Delete removes an object. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to delete object "+key)
	}
	return nil
}

// Health verifies the bucket is reachable
func (s *Store) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeHealth, "s3 bucket not reachable")
	}
	return nil
}

// Close releases client resources
func (s *Store) Close() error {
	return nil
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimSuffix(s.prefix, "/") + "/" + key
}
