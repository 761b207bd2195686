package repository

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/models"
)

// IndexerFilter narrows List results
type IndexerFilter struct {
	Status *models.IndexerStatus
}

// IndexerRepository persists indexer lifecycle state
type IndexerRepository interface {
	Insert(ctx context.Context, indexer *models.Indexer) error
	Get(ctx context.Context, id uuid.UUID) (*models.Indexer, error)
	List(ctx context.Context, filter IndexerFilter) ([]*models.Indexer, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.IndexerStatus) (*models.Indexer, error)
	UpdateStatusAndProcessID(ctx context.Context, id uuid.UUID, status models.IndexerStatus, processID int64) (*models.Indexer, error)
}

type indexerRepository struct {
	pool *pgxpool.Pool
}

// NewIndexerRepository creates a Postgres-backed IndexerRepository
func NewIndexerRepository(pool *pgxpool.Pool) IndexerRepository {
	return &indexerRepository{pool: pool}
}

const indexerColumns = "id, status, indexer_type, process_id, target_url, created_at, updated_at"

func (r *indexerRepository) Insert(ctx context.Context, indexer *models.Indexer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO indexers (id, status, indexer_type, process_id, target_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		indexer.ID, string(indexer.Status), string(indexer.Type),
		indexer.ProcessID, indexer.TargetURL, indexer.CreatedAt, indexer.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to insert indexer")
	}
	return nil
}

func (r *indexerRepository) Get(ctx context.Context, id uuid.UUID) (*models.Indexer, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+indexerColumns+" FROM indexers WHERE id = $1", id)
	return scanIndexer(row)
}

func (r *indexerRepository) List(ctx context.Context, filter IndexerFilter) ([]*models.Indexer, error) {
	query, args := buildIndexerListQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to list indexers")
	}
	defer rows.Close()

	var indexers []*models.Indexer
	for rows.Next() {
		indexer, err := scanIndexer(rows)
		if err != nil {
			return nil, err
		}
		indexers = append(indexers, indexer)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to iterate indexers")
	}
	return indexers, nil
}

func (r *indexerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IndexerStatus) (*models.Indexer, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE indexers SET status = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+indexerColumns, id, string(status))
	return scanIndexer(row)
}

func (r *indexerRepository) UpdateStatusAndProcessID(ctx context.Context, id uuid.UUID, status models.IndexerStatus, processID int64) (*models.Indexer, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE indexers SET status = $2, process_id = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+indexerColumns, id, string(status), processID)
	return scanIndexer(row)
}

// buildIndexerListQuery assembles the List query for the given filter.
// Split out so filter composition is testable without a database.
func buildIndexerListQuery(filter IndexerFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("SELECT " + indexerColumns + " FROM indexers")

	var args []interface{}
	if filter.Status != nil {
		sb.WriteString(" WHERE status = $1")
		args = append(args, string(*filter.Status))
	}
	sb.WriteString(" ORDER BY created_at")

	return sb.String(), args
}

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanIndexer maps one row into a domain Indexer, validating the stored
// status and type strings
func scanIndexer(row rowScanner) (*models.Indexer, error) {
	var (
		indexer   models.Indexer
		status    string
		indexType string
	)

	err := row.Scan(&indexer.ID, &status, &indexType, &indexer.ProcessID,
		&indexer.TargetURL, &indexer.CreatedAt, &indexer.UpdatedAt)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrorTypeNotFound, "indexer not found")
		}
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to scan indexer")
	}

	indexer.Status, err = models.ParseIndexerStatus(status)
	if err != nil {
		return nil, err
	}
	indexer.Type, err = models.ParseIndexerType(indexType)
	if err != nil {
		return nil, err
	}
	return &indexer, nil
}
