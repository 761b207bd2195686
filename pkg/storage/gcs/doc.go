// Package gcs provides the Google Cloud Storage backend. The implementation
// is gated behind the gcp build tag; without it the package compiles empty
// and registers nothing. Setting the storage endpoint to a fake-gcs-server
// address switches the client to the emulator without credentials.
package gcs
