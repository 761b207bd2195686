// Package service implements the business operations of indexerd on top of
// the repositories, object store, queues and the process runner.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openindexer/indexerd/internal/cache"
	"github.com/openindexer/indexerd/internal/repository"
	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/logger"
	"github.com/openindexer/indexerd/pkg/metrics"
	"github.com/openindexer/indexerd/pkg/models"
	"github.com/openindexer/indexerd/pkg/observability"
	"github.com/openindexer/indexerd/pkg/queue"
	"github.com/openindexer/indexerd/pkg/storage"
)

// ProcessRunner is the slice of the runner the service needs
type ProcessRunner interface {
	Start(ctx context.Context, indexer *models.Indexer, script []byte) (int64, error)
	Stop(ctx context.Context, id uuid.UUID) error
	Kill(pid int64)
}

// IndexerService manages the indexer lifecycle
type IndexerService struct {
	repo       repository.IndexerRepository
	stats      repository.StatsRepository
	store      storage.ObjectStore
	startQueue queue.Publisher
	runner     ProcessRunner
	cache      cache.Cache
	logger     *zap.Logger
}

// NewIndexerService wires an IndexerService
func NewIndexerService(
	repo repository.IndexerRepository,
	stats repository.StatsRepository,
	store storage.ObjectStore,
	startQueue queue.Publisher,
	runner ProcessRunner,
	c cache.Cache,
) *IndexerService {
	return &IndexerService{
		repo:       repo,
		stats:      stats,
		store:      store,
		startQueue: startQueue,
		runner:     runner,
		cache:      c,
		logger:     logger.With(zap.String("component", "indexer_service")),
	}
}

// Create registers a webhook indexer: the script goes to object storage, the
// Created row to the database, and the id to the start queue.
func (s *IndexerService) Create(ctx context.Context, script []byte, targetURL string) (*models.Indexer, error) {
	ctx, span := observability.StartSpan(ctx, "indexer.create")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if len(script) == 0 {
		err = errors.New(errors.ErrorTypeValidation, "script is required")
		return nil, err
	}
	if targetURL == "" {
		err = errors.New(errors.ErrorTypeValidation, "webhook_url is required")
		return nil, err
	}

	indexer := models.NewIndexer(models.IndexerTypeWebhook, targetURL)

	err = s.store.Put(ctx, indexer.ScriptKey(), script)
	metrics.RecordStorageOp("put", err)
	if err != nil {
		return nil, err
	}

	if err = s.repo.Insert(ctx, indexer); err != nil {
		return nil, err
	}

	if err = s.startQueue.Publish(ctx, indexer.ID.String()); err != nil {
		return nil, err
	}
	metrics.RecordQueueMessage("start", "publish")
	metrics.RecordTransition(string(models.IndexerStatusCreated))

	s.cacheIndexer(ctx, indexer)
	s.logger.Info("indexer created",
		zap.String("indexer_id", indexer.ID.String()),
		zap.String("target_url", targetURL))

	return indexer, nil
}

// Start spawns the indexer process and moves the indexer to Running
func (s *IndexerService) Start(ctx context.Context, id uuid.UUID) (*models.Indexer, error) {
	ctx, span := observability.StartSpan(ctx, "indexer.start")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	indexer, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !indexer.Status.CanTransition(models.IndexerStatusRunning) {
		err = errors.Newf(errors.ErrorTypeConflict,
			"cannot start indexer in status %s", indexer.Status)
		return nil, err
	}

	script, err := s.store.Get(ctx, indexer.ScriptKey())
	metrics.RecordStorageOp("get", err)
	if err != nil {
		return nil, err
	}

	pid, err := s.runner.Start(ctx, indexer, script)
	if err != nil {
		return nil, err
	}

	indexer, err = s.repo.UpdateStatusAndProcessID(ctx, id, models.IndexerStatusRunning, pid)
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition(string(models.IndexerStatusRunning))

	s.cacheIndexer(ctx, indexer)
	s.logger.Info("indexer started",
		zap.String("indexer_id", id.String()), zap.Int64("pid", pid))

	return indexer, nil
}

// Stop terminates the indexer process. A process that cannot be stopped
// cleanly moves the indexer to FailedStopping instead of Stopped; the call
// still succeeds so the caller observes the final status.
func (s *IndexerService) Stop(ctx context.Context, id uuid.UUID) (*models.Indexer, error) {
	ctx, span := observability.StartSpan(ctx, "indexer.stop")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	indexer, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if indexer.Status != models.IndexerStatusRunning {
		err = errors.Newf(errors.ErrorTypeConflict,
			"cannot stop indexer in status %s", indexer.Status)
		return nil, err
	}

	next := models.IndexerStatusStopped
	if stopErr := s.runner.Stop(ctx, id); stopErr != nil {
		s.logger.Warn("indexer stop failed",
			zap.String("indexer_id", id.String()), zap.Error(stopErr))
		next = models.IndexerStatusFailedStopping
	}

	indexer, err = s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition(string(next))

	s.cacheIndexer(ctx, indexer)
	s.logger.Info("indexer stopped",
		zap.String("indexer_id", id.String()), zap.String("status", string(next)))

	return indexer, nil
}

// Fail marks an indexer FailedRunning after its process died. It is
// idempotent for indexers that already failed. Any lingering process is
// killed first.
func (s *IndexerService) Fail(ctx context.Context, id uuid.UUID) (*models.Indexer, error) {
	ctx, span := observability.StartSpan(ctx, "indexer.fail")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	indexer, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if indexer.Status == models.IndexerStatusFailedRunning {
		return indexer, nil
	}
	if indexer.Status != models.IndexerStatusRunning {
		err = errors.Newf(errors.ErrorTypeConflict,
			"cannot fail indexer in status %s", indexer.Status)
		return nil, err
	}

	if indexer.ProcessID != nil {
		s.runner.Kill(*indexer.ProcessID)
	}

	indexer, err = s.repo.UpdateStatus(ctx, id, models.IndexerStatusFailedRunning)
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition(string(models.IndexerStatusFailedRunning))

	s.cacheIndexer(ctx, indexer)
	s.logger.Warn("indexer failed", zap.String("indexer_id", id.String()))

	return indexer, nil
}

// Get fetches one indexer, served from cache when possible
func (s *IndexerService) Get(ctx context.Context, id uuid.UUID) (*models.Indexer, error) {
	var cached models.Indexer
	if hit, err := s.cache.GetJSON(ctx, cache.IndexerKey(id.String()), &cached); err == nil && hit {
		return &cached, nil
	}

	indexer, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheIndexer(ctx, indexer)
	return indexer, nil
}

// List fetches indexers, optionally filtered by status
func (s *IndexerService) List(ctx context.Context, filter repository.IndexerFilter) ([]*models.Indexer, error) {
	return s.repo.List(ctx, filter)
}

// Stats returns heartbeat samples for an indexer within [from, to)
func (s *IndexerService) Stats(ctx context.Context, id uuid.UUID, from, to time.Time) ([]*models.IndexerStat, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.stats.ListRange(ctx, id, from, to)
}

// cacheIndexer updates the cached entry; cache failures are non-fatal
func (s *IndexerService) cacheIndexer(ctx context.Context, indexer *models.Indexer) {
	if err := s.cache.SetJSON(ctx, cache.IndexerKey(indexer.ID.String()), indexer); err != nil {
		s.logger.Debug("cache update failed", zap.Error(err))
	}
}
