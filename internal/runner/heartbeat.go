package runner

import (
	"bufio"
	"context"
	"io"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openindexer/indexerd/pkg/models"
)

// heartbeatLine is the progress line an indexer process emits on stdout
type heartbeatLine struct {
	BlocksProcessed int64 `json:"blocks_processed"`
	HeadBlock       int64 `json:"head_block"`
}

// maxHeartbeatLine bounds one stdout line; runtimes can dump large log lines
// and those must not kill the scanner
const maxHeartbeatLine = 1 << 20

// scanHeartbeats reads progress lines from the process stdout and records at
// most one stats sample per heartbeat interval. Non-JSON lines are ignored;
// indexer runtimes log freely on stdout.
func (r *Runner) scanHeartbeats(id uuid.UUID, stdout io.Reader) {
	interval := r.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	var lastRecorded time.Time
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxHeartbeatLine)
	for scanner.Scan() {
		var line heartbeatLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}

		now := time.Now().UTC()
		if r.stats == nil || now.Sub(lastRecorded) < interval {
			continue
		}
		lastRecorded = now

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := r.stats.RecordHeartbeat(ctx, &models.IndexerStat{
			IndexerID:       id,
			Time:            now,
			BlocksProcessed: line.BlocksProcessed,
			HeadBlock:       line.HeadBlock,
		})
		cancel()
		if err != nil {
			r.logger.Warn("failed to record heartbeat",
				zap.String("indexer_id", id.String()), zap.Error(err))
		}
	}

	if err := scanner.Err(); err != nil {
		r.logger.Warn("heartbeat stream ended early",
			zap.String("indexer_id", id.String()), zap.Error(err))
	}
}
