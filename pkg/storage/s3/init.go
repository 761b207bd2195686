//go:build aws

package s3

import (
	"context"

	"github.com/openindexer/indexerd/pkg/storage"
)

func init() {
	storage.Register("s3", func(ctx context.Context, cfg *storage.Config) (storage.ObjectStore, error) {
		return New(ctx, cfg)
	})
}
