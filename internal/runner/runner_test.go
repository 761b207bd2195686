package runner

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openindexer/indexerd/pkg/config"
	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/models"
	"github.com/openindexer/indexerd/pkg/testutil"
)

// The tests use /bin/sh as the indexer runtime; the "script" is then a shell
// script receiving the target URL as $1.

func testConfig(t *testing.T) config.RunnerConfig {
	t.Helper()
	return config.RunnerConfig{
		Command:           "/bin/sh",
		ScriptDir:         t.TempDir(),
		HeartbeatInterval: time.Millisecond,
		StopTimeout:       3 * time.Second,
	}
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []string
}

func (p *recordingPublisher) Publish(_ context.Context, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, body)
	return nil
}

func (p *recordingPublisher) Purge(context.Context) error { return nil }

func (p *recordingPublisher) Health(context.Context) error { return nil }

func (p *recordingPublisher) bodies() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

type recordingStats struct {
	mu    sync.Mutex
	stats []*models.IndexerStat
}

func (s *recordingStats) RecordHeartbeat(_ context.Context, stat *models.IndexerStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = append(s.stats, stat)
	return nil
}

func (s *recordingStats) ListRange(context.Context, uuid.UUID, time.Time, time.Time) ([]*models.IndexerStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.IndexerStat(nil), s.stats...), nil
}

func TestRunnerStartStop(t *testing.T) {
	r := New(testConfig(t), &recordingPublisher{}, nil)
	indexer := models.NewIndexer(models.IndexerTypeWebhook, "https://example.com/hook")

	pid, err := r.Start(context.Background(), indexer, []byte("sleep 30\n"))
	require.NoError(t, err)
	assert.Greater(t, pid, int64(0))
	assert.True(t, IsRunning(pid))

	require.NoError(t, r.Stop(context.Background(), indexer.ID))

	testutil.AssertEventually(t, func() bool {
		return !IsRunning(pid)
	}, 3*time.Second, "process still running after stop")
}

func TestRunnerStop_Untracked(t *testing.T) {
	r := New(testConfig(t), &recordingPublisher{}, nil)

	err := r.Stop(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeProcess))
}

func TestRunnerStart_Duplicate(t *testing.T) {
	r := New(testConfig(t), &recordingPublisher{}, nil)
	indexer := models.NewIndexer(models.IndexerTypeWebhook, "https://example.com/hook")

	_, err := r.Start(context.Background(), indexer, []byte("sleep 30\n"))
	require.NoError(t, err)
	defer func() { _ = r.Stop(context.Background(), indexer.ID) }()

	_, err = r.Start(context.Background(), indexer, []byte("sleep 30\n"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
}

func TestRunnerStart_ConcurrentDuplicates(t *testing.T) {
	r := New(testConfig(t), &recordingPublisher{}, nil)
	indexer := models.NewIndexer(models.IndexerTypeWebhook, "https://example.com/hook")

	const attempts = 8
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Start(context.Background(), indexer, []byte("sleep 30\n"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	started, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			started++
		case errors.IsType(err, errors.ErrorTypeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Exactly one attempt may spawn a process
	assert.Equal(t, 1, started)
	assert.Equal(t, attempts-1, conflicts)

	require.NoError(t, r.Stop(context.Background(), indexer.ID))
}

func TestRunnerUnexpectedExitPublishesFailure(t *testing.T) {
	failed := &recordingPublisher{}
	r := New(testConfig(t), failed, nil)
	indexer := models.NewIndexer(models.IndexerTypeWebhook, "https://example.com/hook")

	_, err := r.Start(context.Background(), indexer, []byte("exit 1\n"))
	require.NoError(t, err)

	testutil.AssertEventually(t, func() bool {
		bodies := failed.bodies()
		return len(bodies) == 1 && bodies[0] == indexer.ID.String()
	}, 5*time.Second, "failure was not published")
}

func TestRunnerCleanStopDoesNotPublish(t *testing.T) {
	failed := &recordingPublisher{}
	r := New(testConfig(t), failed, nil)
	indexer := models.NewIndexer(models.IndexerTypeWebhook, "https://example.com/hook")

	pid, err := r.Start(context.Background(), indexer, []byte("sleep 30\n"))
	require.NoError(t, err)
	require.NoError(t, r.Stop(context.Background(), indexer.ID))

	testutil.AssertEventually(t, func() bool {
		return !IsRunning(pid)
	}, 3*time.Second, "process still running after stop")

	// Give the watcher a moment to run before asserting it stayed quiet
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, failed.bodies())
}

func TestRunnerHeartbeats(t *testing.T) {
	stats := &recordingStats{}
	r := New(testConfig(t), &recordingPublisher{}, stats)
	indexer := models.NewIndexer(models.IndexerTypeWebhook, "https://example.com/hook")

	script := "echo not-json\n" +
		`echo '{"blocks_processed":7,"head_block":9}'` + "\n" +
		"sleep 30\n"

	_, err := r.Start(context.Background(), indexer, []byte(script))
	require.NoError(t, err)
	defer func() { _ = r.Stop(context.Background(), indexer.ID) }()

	testutil.AssertEventually(t, func() bool {
		recorded, _ := stats.ListRange(context.Background(), indexer.ID, time.Time{}, time.Time{})
		return len(recorded) > 0
	}, 5*time.Second, "heartbeat was not recorded")

	recorded, _ := stats.ListRange(context.Background(), indexer.ID, time.Time{}, time.Time{})
	assert.Equal(t, indexer.ID, recorded[0].IndexerID)
	assert.Equal(t, int64(7), recorded[0].BlocksProcessed)
	assert.Equal(t, int64(9), recorded[0].HeadBlock)
}

func TestRunnerHeartbeats_SurvivesLongLine(t *testing.T) {
	stats := &recordingStats{}
	r := New(testConfig(t), &recordingPublisher{}, stats)
	indexer := models.NewIndexer(models.IndexerTypeWebhook, "https://example.com/hook")

	// A log line well past bufio's default 64KB token size must not end
	// heartbeat scanning
	script := "dd if=/dev/zero bs=1024 count=128 2>/dev/null | tr '\\0' x; echo\n" +
		`echo '{"blocks_processed":3,"head_block":4}'` + "\n" +
		"sleep 30\n"

	_, err := r.Start(context.Background(), indexer, []byte(script))
	require.NoError(t, err)
	defer func() { _ = r.Stop(context.Background(), indexer.ID) }()

	testutil.AssertEventually(t, func() bool {
		recorded, _ := stats.ListRange(context.Background(), indexer.ID, time.Time{}, time.Time{})
		return len(recorded) > 0
	}, 5*time.Second, "heartbeat after long line was not recorded")

	recorded, _ := stats.ListRange(context.Background(), indexer.ID, time.Time{}, time.Time{})
	assert.Equal(t, int64(3), recorded[0].BlocksProcessed)
}

func TestRunnerWritesScript(t *testing.T) {
	cfg := testConfig(t)
	r := New(cfg, &recordingPublisher{}, nil)
	indexer := models.NewIndexer(models.IndexerTypeWebhook, "https://example.com/hook")

	_, err := r.Start(context.Background(), indexer, []byte("sleep 30\n"))
	require.NoError(t, err)
	defer func() { _ = r.Stop(context.Background(), indexer.ID) }()

	data, err := os.ReadFile(cfg.ScriptDir + "/" + indexer.ID.String() + ".js")
	require.NoError(t, err)
	assert.Equal(t, []byte("sleep 30\n"), data)
}

func TestIsRunning(t *testing.T) {
	assert.True(t, IsRunning(int64(os.Getpid())))
}
