// Package consumer runs the queue workers: the failed-queue worker marks
// indexers FailedRunning after their process died, and the start-queue
// worker starts freshly created indexers.
package consumer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openindexer/indexerd/internal/service"
	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/logger"
	"github.com/openindexer/indexerd/pkg/metrics"
	"github.com/openindexer/indexerd/pkg/queue"
)

// Consumer dispatches queue messages to the indexer service
type Consumer struct {
	indexers    *service.IndexerService
	startQueue  queue.Consumer
	failedQueue queue.Consumer
	logger      *zap.Logger
}

// New wires a Consumer
func New(indexers *service.IndexerService, startQueue, failedQueue queue.Consumer) *Consumer {
	return &Consumer{
		indexers:    indexers,
		startQueue:  startQueue,
		failedQueue: failedQueue,
		logger:      logger.With(zap.String("component", "consumer")),
	}
}

// Run consumes both queues until ctx is cancelled
func (c *Consumer) Run(ctx context.Context) {
	go func() {
		if err := c.startQueue.Consume(ctx, c.handleStart); err != nil && ctx.Err() == nil {
			c.logger.Error("start queue consumer exited", zap.Error(err))
		}
	}()
	go func() {
		if err := c.failedQueue.Consume(ctx, c.handleFailed); err != nil && ctx.Err() == nil {
			c.logger.Error("failed queue consumer exited", zap.Error(err))
		}
	}()
}

// handleStart starts a created indexer. A conflict means the indexer was
// already started over HTTP; the message is dropped rather than redelivered.
func (c *Consumer) handleStart(ctx context.Context, body string) error {
	metrics.RecordQueueMessage("start", "consume")

	id, err := uuid.Parse(body)
	if err != nil {
		c.logger.Warn("dropping malformed start message", zap.String("body", body))
		return nil
	}

	if _, err := c.indexers.Start(ctx, id); err != nil {
		if errors.IsType(err, errors.ErrorTypeConflict) || errors.IsType(err, errors.ErrorTypeNotFound) {
			c.logger.Info("dropping stale start message",
				zap.String("indexer_id", id.String()), zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}

// handleFailed marks an indexer FailedRunning. Fail is idempotent, so
// redeliveries are harmless.
func (c *Consumer) handleFailed(ctx context.Context, body string) error {
	metrics.RecordQueueMessage("failed", "consume")

	id, err := uuid.Parse(body)
	if err != nil {
		c.logger.Warn("dropping malformed failure message", zap.String("body", body))
		return nil
	}

	if _, err := c.indexers.Fail(ctx, id); err != nil {
		if errors.IsType(err, errors.ErrorTypeConflict) || errors.IsType(err, errors.ErrorTypeNotFound) {
			c.logger.Info("dropping stale failure message",
				zap.String("indexer_id", id.String()), zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}
