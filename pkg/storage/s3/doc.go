// Package s3 provides the Amazon S3 object storage backend. The
// implementation is gated behind the aws build tag; without it the package
// compiles empty and registers nothing. Endpoint overrides with path-style
// addressing support the local emulator.
package s3
