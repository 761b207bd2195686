package api

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openindexer/indexerd/internal/cache"
	"github.com/openindexer/indexerd/internal/repository"
	"github.com/openindexer/indexerd/internal/service"
	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/models"
)

// Function-field fakes. Unset fields return not_found so handler tests only
// wire the calls they care about.

type fakeIndexerRepo struct {
	insert             func(ctx context.Context, indexer *models.Indexer) error
	get                func(ctx context.Context, id uuid.UUID) (*models.Indexer, error)
	list               func(ctx context.Context, filter repository.IndexerFilter) ([]*models.Indexer, error)
	updateStatus       func(ctx context.Context, id uuid.UUID, status models.IndexerStatus) (*models.Indexer, error)
	updateStatusAndPID func(ctx context.Context, id uuid.UUID, status models.IndexerStatus, pid int64) (*models.Indexer, error)
}

func (f *fakeIndexerRepo) Insert(ctx context.Context, indexer *models.Indexer) error {
	if f.insert == nil {
		return nil
	}
	return f.insert(ctx, indexer)
}

func (f *fakeIndexerRepo) Get(ctx context.Context, id uuid.UUID) (*models.Indexer, error) {
	if f.get == nil {
		return nil, errors.New(errors.ErrorTypeNotFound, "indexer not found")
	}
	return f.get(ctx, id)
}

func (f *fakeIndexerRepo) List(ctx context.Context, filter repository.IndexerFilter) ([]*models.Indexer, error) {
	if f.list == nil {
		return nil, nil
	}
	return f.list(ctx, filter)
}

func (f *fakeIndexerRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IndexerStatus) (*models.Indexer, error) {
	if f.updateStatus == nil {
		return nil, errors.New(errors.ErrorTypeNotFound, "indexer not found")
	}
	return f.updateStatus(ctx, id, status)
}

func (f *fakeIndexerRepo) UpdateStatusAndProcessID(ctx context.Context, id uuid.UUID, status models.IndexerStatus, pid int64) (*models.Indexer, error) {
	if f.updateStatusAndPID == nil {
		return nil, errors.New(errors.ErrorTypeNotFound, "indexer not found")
	}
	return f.updateStatusAndPID(ctx, id, status, pid)
}

type fakeStatsRepo struct {
	listRange func(ctx context.Context, indexerID uuid.UUID, from, to time.Time) ([]*models.IndexerStat, error)
}

func (f *fakeStatsRepo) RecordHeartbeat(context.Context, *models.IndexerStat) error { return nil }

func (f *fakeStatsRepo) ListRange(ctx context.Context, indexerID uuid.UUID, from, to time.Time) ([]*models.IndexerStat, error) {
	if f.listRange == nil {
		return nil, nil
	}
	return f.listRange(ctx, indexerID, from, to)
}

type fakeStore struct {
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Put(_ context.Context, key string, data []byte) error {
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, "object not found")
	}
	return data, nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

type fakePublisher struct {
	published []string
	healthErr error
}

func (p *fakePublisher) Publish(_ context.Context, body string) error {
	p.published = append(p.published, body)
	return nil
}

func (p *fakePublisher) Purge(context.Context) error {
	p.published = nil
	return nil
}

func (p *fakePublisher) Health(context.Context) error { return p.healthErr }

type fakeRunner struct {
	startErr error
	stopErr  error
	killed   []int64
}

func (r *fakeRunner) Start(context.Context, *models.Indexer, []byte) (int64, error) {
	if r.startErr != nil {
		return 0, r.startErr
	}
	return 4321, nil
}

func (r *fakeRunner) Stop(context.Context, uuid.UUID) error { return r.stopErr }

func (r *fakeRunner) Kill(pid int64) { r.killed = append(r.killed, pid) }

type fakePostRepo struct {
	insert func(ctx context.Context, post *models.Post) error
	get    func(ctx context.Context, id uuid.UUID) (*models.Post, error)
	list   func(ctx context.Context) ([]*models.Post, error)
}

func (f *fakePostRepo) Insert(ctx context.Context, post *models.Post) error {
	if f.insert == nil {
		return nil
	}
	return f.insert(ctx, post)
}

func (f *fakePostRepo) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	if f.get == nil {
		return nil, errors.New(errors.ErrorTypeNotFound, "post not found")
	}
	return f.get(ctx, id)
}

func (f *fakePostRepo) List(ctx context.Context) ([]*models.Post, error) {
	if f.list == nil {
		return nil, nil
	}
	return f.list(ctx)
}

// testDeps bundles the fakes behind one Server for handler tests
type testDeps struct {
	repo     *fakeIndexerRepo
	stats    *fakeStatsRepo
	store    *fakeStore
	queue    *fakePublisher
	runner   *fakeRunner
	postRepo *fakePostRepo
	checks   map[string]HealthCheck
}

func newTestDeps() *testDeps {
	return &testDeps{
		repo:     &fakeIndexerRepo{},
		stats:    &fakeStatsRepo{},
		store:    newFakeStore(),
		queue:    &fakePublisher{},
		runner:   &fakeRunner{},
		postRepo: &fakePostRepo{},
		checks:   map[string]HealthCheck{},
	}
}

func (d *testDeps) server(_ *testing.T) *Server {
	indexers := service.NewIndexerService(d.repo, d.stats, d.store, d.queue, d.runner, cache.Noop{})
	posts := service.NewPostService(d.postRepo, cache.Noop{})
	return NewServer(indexers, posts, d.checks)
}
