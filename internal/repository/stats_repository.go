package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/models"
)

// StatsRepository records indexer heartbeat samples into the indexer_stats
// hypertable
type StatsRepository interface {
	RecordHeartbeat(ctx context.Context, stat *models.IndexerStat) error
	ListRange(ctx context.Context, indexerID uuid.UUID, from, to time.Time) ([]*models.IndexerStat, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a Postgres-backed StatsRepository
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) RecordHeartbeat(ctx context.Context, stat *models.IndexerStat) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO indexer_stats (indexer_id, time, blocks_processed, head_block)
		 VALUES ($1, $2, $3, $4)`,
		stat.IndexerID, stat.Time, stat.BlocksProcessed, stat.HeadBlock)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to record heartbeat")
	}
	return nil
}

func (r *statsRepository) ListRange(ctx context.Context, indexerID uuid.UUID, from, to time.Time) ([]*models.IndexerStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT indexer_id, time, blocks_processed, head_block
		 FROM indexer_stats
		 WHERE indexer_id = $1 AND time >= $2 AND time < $3
		 ORDER BY time`,
		indexerID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to list stats")
	}
	defer rows.Close()

	var stats []*models.IndexerStat
	for rows.Next() {
		var stat models.IndexerStat
		if err := rows.Scan(&stat.IndexerID, &stat.Time, &stat.BlocksProcessed, &stat.HeadBlock); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to scan stat")
		}
		stats = append(stats, &stat)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to iterate stats")
	}
	return stats, nil
}
