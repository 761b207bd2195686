// Package runner supervises indexer child processes. Each running indexer is
// one process executing the stored script against its target URL. Unexpected
// exits are reported to the failed queue so the consumer can mark the indexer
// FailedRunning.
package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openindexer/indexerd/internal/repository"
	"github.com/openindexer/indexerd/pkg/config"
	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/logger"
	"github.com/openindexer/indexerd/pkg/metrics"
	"github.com/openindexer/indexerd/pkg/models"
	"github.com/openindexer/indexerd/pkg/queue"
)

// Runner spawns and tracks indexer processes
type Runner struct {
	cfg         config.RunnerConfig
	failedQueue queue.Publisher
	stats       repository.StatsRepository
	logger      *zap.Logger

	mu        sync.Mutex
	processes map[uuid.UUID]*trackedProcess
}

type trackedProcess struct {
	cmd      *exec.Cmd
	pid      int64
	stopping bool
}

// New creates a Runner. stats may be nil when heartbeat recording is not
// wanted (tests).
func New(cfg config.RunnerConfig, failedQueue queue.Publisher, stats repository.StatsRepository) *Runner {
	return &Runner{
		cfg:         cfg,
		failedQueue: failedQueue,
		stats:       stats,
		logger:      logger.With(zap.String("component", "runner")),
		processes:   make(map[uuid.UUID]*trackedProcess),
	}
}

// Start materializes the script on disk and spawns the indexer process.
// Returns the child pid. The process is watched: an exit without a prior
// Stop publishes the indexer id to the failed queue.
func (r *Runner) Start(ctx context.Context, indexer *models.Indexer, script []byte) (int64, error) {
	// Reserve the slot under one lock so concurrent starts for the same
	// indexer cannot both spawn
	proc := &trackedProcess{}
	r.mu.Lock()
	if _, exists := r.processes[indexer.ID]; exists {
		r.mu.Unlock()
		return 0, errors.Newf(errors.ErrorTypeConflict, "indexer %s already has a process", indexer.ID)
	}
	r.processes[indexer.ID] = proc
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		delete(r.processes, indexer.ID)
		r.mu.Unlock()
	}

	scriptPath, err := r.writeScript(indexer.ID, script)
	if err != nil {
		release()
		return 0, err
	}

	cmd := exec.Command(r.cfg.Command, scriptPath, indexer.TargetURL)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		release()
		return 0, errors.Wrap(err, errors.ErrorTypeProcess, "failed to pipe indexer stdout")
	}

	if err := cmd.Start(); err != nil {
		release()
		return 0, errors.Wrap(err, errors.ErrorTypeProcess, "failed to start indexer process")
	}

	pid := int64(cmd.Process.Pid)
	r.mu.Lock()
	proc.cmd = cmd
	proc.pid = pid
	r.mu.Unlock()
	metrics.RunningIndexers.Inc()

	r.logger.Info("indexer process started",
		zap.String("indexer_id", indexer.ID.String()),
		zap.Int64("pid", pid))

	go r.scanHeartbeats(indexer.ID, stdout)
	go r.watch(indexer.ID, proc)

	return pid, nil
}

// Stop terminates the indexer process gracefully. It fails with a process
// error when the process already exited or refuses to die within the stop
// timeout, in which case the caller marks the indexer FailedStopping.
func (r *Runner) Stop(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	proc, exists := r.processes[id]
	var cmd *exec.Cmd
	var pid int64
	if exists {
		proc.stopping = true
		cmd = proc.cmd
		pid = proc.pid
	}
	r.mu.Unlock()

	if !exists {
		return errors.Newf(errors.ErrorTypeProcess, "no tracked process for indexer %s", id)
	}

	// The slot may be reserved while the process is still being spawned
	if cmd == nil {
		return errors.Newf(errors.ErrorTypeProcess, "indexer %s is still starting", id)
	}

	if !IsRunning(pid) {
		return errors.Newf(errors.ErrorTypeProcess, "indexer %s process %d already exited", id, pid)
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return errors.Wrap(err, errors.ErrorTypeProcess, "failed to signal indexer process")
	}

	stopTimeout := r.cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 5 * time.Second
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if !IsRunning(pid) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	_ = cmd.Process.Kill()
	return errors.Newf(errors.ErrorTypeProcess, "indexer %s did not stop within %s", id, stopTimeout)
}

// Kill force-terminates a process by pid, used by the fail path where the
// indexer may or may not still be tracked
func (r *Runner) Kill(pid int64) {
	if proc, err := os.FindProcess(int(pid)); err == nil {
		_ = proc.Kill()
	}
}

// IsRunning probes a pid with signal 0
func IsRunning(pid int64) bool {
	proc, err := os.FindProcess(int(pid))
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// watch reaps the process and reports unexpected exits
func (r *Runner) watch(id uuid.UUID, proc *trackedProcess) {
	err := proc.cmd.Wait()

	r.mu.Lock()
	stopping := proc.stopping
	delete(r.processes, id)
	r.mu.Unlock()
	metrics.RunningIndexers.Dec()

	if stopping {
		r.logger.Info("indexer process stopped",
			zap.String("indexer_id", id.String()), zap.Int64("pid", proc.pid))
		return
	}

	r.logger.Warn("indexer process exited unexpectedly",
		zap.String("indexer_id", id.String()),
		zap.Int64("pid", proc.pid),
		zap.Error(err))

	if r.failedQueue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.failedQueue.Publish(ctx, id.String()); err != nil {
			r.logger.Error("failed to publish to failed queue", zap.Error(err))
			return
		}
		metrics.RecordQueueMessage("failed", "publish")
	}
}

func (r *Runner) writeScript(id uuid.UUID, script []byte) (string, error) {
	if err := os.MkdirAll(r.cfg.ScriptDir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeProcess, "failed to create script dir")
	}

	path := filepath.Join(r.cfg.ScriptDir, id.String()+".js")
	if err := os.WriteFile(path, script, 0o644); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeProcess, "failed to write script")
	}
	return path, nil
}
