//go:build gcp

package gcs

import (
	"context"

	"github.com/openindexer/indexerd/pkg/storage"
)

func init() {
	storage.Register("gcs", func(ctx context.Context, cfg *storage.Config) (storage.ObjectStore, error) {
		return New(ctx, cfg)
	})
}
