//go:build gcp

package gcs

import (
	"context"
	stderrors "errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/openindexer/indexerd/pkg/compression"
	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/logger"
	objstorage "github.com/openindexer/indexerd/pkg/storage"
)

// Store is a GCS-backed object store
type Store struct {
	client     *storage.Client
	bucket     *storage.BucketHandle
	bucketName string
	prefix     string
	compressor compression.Compressor
	logger     *zap.Logger
}

// New creates a GCS object store from the storage config
func New(ctx context.Context, cfg *objstorage.Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "bucket is required")
	}
	if cfg.ProjectID == "" && cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "project_id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		// fake-gcs-server serves the JSON API under /storage/v1/
		endpoint := strings.TrimSuffix(cfg.Endpoint, "/") + "/storage/v1/"
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create GCS client")
	}

	compressor, err := compression.NewCompressor(cfg.Compression)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	store := &Store{
		client:     client,
		bucket:     client.Bucket(cfg.Bucket),
		bucketName: cfg.Bucket,
		prefix:     cfg.Prefix,
		compressor: compressor,
		logger:     logger.With(zap.String("component", "gcs_store"), zap.String("bucket", cfg.Bucket)),
	}

	if err := store.Health(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	store.logger.Info("gcs object store initialized",
		zap.String("project_id", cfg.ProjectID),
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

	w := s.bucket.Object(s.objectKey(key)).NewWriter(ctx)
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write object "+key)
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to finalize object "+key)
	}

	s.logger.Debug("object uploaded", zap.String("key", key), zap.Int("bytes", len(payload)))
	return nil
}

// Get reads an object. Missing keys return a not_found error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.bucket.Object(s.objectKey(key)).NewReader(ctx)
	if err != nil {
		if stderrors.Is(err, storage.ErrObjectNotExist) {
			return nil, errors.Newf(errors.ErrorTypeNotFound, "object %s not found", key)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open object "+key)
	}
	defer func() { _ = r.Close() }()

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read object "+key)
	}

	return s.compressor.Decompress(payload)
}

// Delete removes an object. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(s.objectKey(key)).Delete(ctx)
	if err != nil && !stderrors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to delete object "+key)
	}
	return nil
}

// Health verifies the bucket is reachable via its metadata (the emulator's
// bucket-listing API answers this probe)
func (s *Store) Health(ctx context.Context) error {
	if _, err := s.bucket.Attrs(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeHealth, "gcs bucket not reachable")
	}
	return nil
}

// Close releases client resources
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimSuffix(s.prefix, "/") + "/" + key
}
