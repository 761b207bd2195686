package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/openindexer/indexerd/internal/repository"
	"github.com/openindexer/indexerd/pkg/models"
)

// MockIndexerRepository is a mock implementation of repository.IndexerRepository
type MockIndexerRepository struct {
	mock.Mock
}

func (m *MockIndexerRepository) Insert(ctx context.Context, indexer *models.Indexer) error {
	args := m.Called(ctx, indexer)
	return args.Error(0)
}

func (m *MockIndexerRepository) Get(ctx context.Context, id uuid.UUID) (*models.Indexer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Indexer), args.Error(1)
}

func (m *MockIndexerRepository) List(ctx context.Context, filter repository.IndexerFilter) ([]*models.Indexer, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Indexer), args.Error(1)
}

func (m *MockIndexerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IndexerStatus) (*models.Indexer, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Indexer), args.Error(1)
}

func (m *MockIndexerRepository) UpdateStatusAndProcessID(ctx context.Context, id uuid.UUID, status models.IndexerStatus, processID int64) (*models.Indexer, error) {
	args := m.Called(ctx, id, status, processID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Indexer), args.Error(1)
}

// MockStatsRepository is a mock implementation of repository.StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) RecordHeartbeat(ctx context.Context, stat *models.IndexerStat) error {
	args := m.Called(ctx, stat)
	return args.Error(0)
}

func (m *MockStatsRepository) ListRange(ctx context.Context, indexerID uuid.UUID, from, to time.Time) ([]*models.IndexerStat, error) {
	args := m.Called(ctx, indexerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.IndexerStat), args.Error(1)
}

// MockPostRepository is a mock implementation of repository.PostRepository
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Insert(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) List(ctx context.Context) ([]*models.Post, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

// MockObjectStore is a mock implementation of storage.ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *MockObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStore) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockObjectStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockPublisher is a mock implementation of queue.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, body string) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

func (m *MockPublisher) Purge(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPublisher) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRunner is a mock implementation of ProcessRunner
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Start(ctx context.Context, indexer *models.Indexer, script []byte) (int64, error) {
	args := m.Called(ctx, indexer, script)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRunner) Stop(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRunner) Kill(pid int64) {
	m.Called(pid)
}
