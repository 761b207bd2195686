// Package storage defines the object storage abstraction used to hold
// indexer scripts. Concrete backends (S3, GCS) register themselves at init
// time from build-tag-gated packages, so the compiled binary carries exactly
// the backends selected at build time.
package storage

import (
	"context"

	"github.com/openindexer/indexerd/pkg/compression"
)

// Config holds object storage settings shared by all backends
type Config struct {
	// Backend names the registered backend ("s3" or "gcs")
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Bucket is the bucket holding indexer scripts
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	// Prefix is prepended to every object key
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
	// Region is the AWS region (s3 backend only)
	Region string `mapstructure:"region" yaml:"region"`
	// ProjectID is the GCP project (gcs backend only)
	ProjectID string `mapstructure:"project_id" yaml:"project_id"`
	// Endpoint overrides the service endpoint, for local emulators
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// CredentialsFile is a path to a GCP service account key (gcs backend only)
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	// AccessKeyID and SecretAccessKey are static AWS credentials, used
	// against the emulator (s3 backend only)
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	// Compression selects the payload compression algorithm
	Compression compression.Algorithm `mapstructure:"compression" yaml:"compression"`
}

// ObjectStore stores and retrieves opaque objects by key
type ObjectStore interface {
	// Put writes an object, replacing any existing object at key
	Put(ctx context.Context, key string, data []byte) error

	// Get reads an object. Missing keys return a not_found error.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Health verifies the bucket is reachable
	Health(ctx context.Context) error

	// Close releases client resources
	Close() error
}
