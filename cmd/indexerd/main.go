package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openindexer/indexerd/internal/api"
	"github.com/openindexer/indexerd/internal/cache"
	"github.com/openindexer/indexerd/internal/consumer"
	"github.com/openindexer/indexerd/internal/repository"
	"github.com/openindexer/indexerd/internal/runner"
	"github.com/openindexer/indexerd/internal/service"
	"github.com/openindexer/indexerd/pkg/config"
	"github.com/openindexer/indexerd/pkg/logger"
	"github.com/openindexer/indexerd/pkg/metrics"
	"github.com/openindexer/indexerd/pkg/observability"
	"github.com/openindexer/indexerd/pkg/queue"
	"github.com/openindexer/indexerd/pkg/storage"

	// Import storage backends to register them; each is gated behind its
	// build tag so the binary carries exactly the selected backend
	_ "github.com/openindexer/indexerd/pkg/storage/gcs"
	_ "github.com/openindexer/indexerd/pkg/storage/s3"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var configFile string

	root := &cobra.Command{
		Use:   "indexerd",
		Short: "indexerd - indexer lifecycle management service",
		Long: `indexerd manages webhook indexers: scripts are stored in object storage
(S3 or GCS, selected at build time), lifecycle state lives in Postgres, and
start/failure events are coordinated over SQS queues.`,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file (optional)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("indexerd v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "backends",
		Short: "List storage backends compiled into this binary",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range storage.Backends() {
				fmt.Printf("  - %s\n", name)
			}
		},
	})

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Print a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Default().WriteYAML()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	})
	root.AddCommand(configCmd)

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the API server, queue workers and indexer supervisor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configFile)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Development: cfg.Observability.Development,
		Encoding:    "json",
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Observability.EnableTracing {
		if err := observability.Init("indexerd", version); err != nil {
			return err
		}
		defer func() { _ = observability.Shutdown(context.Background()) }()
	}

	pool, err := repository.NewPool(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	cacheClient, err := cache.New(ctx, &cfg.Cache)
	if err != nil {
		return err
	}
	defer func() { _ = cacheClient.Close() }()

	store, err := storage.Open(ctx, &cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sqsClient, err := queue.NewSQSClient(ctx, &cfg.Queue)
	if err != nil {
		return err
	}
	startQueue := queue.NewSQSQueue(sqsClient, cfg.Queue.StartQueueURL)
	failedQueue := queue.NewSQSQueue(sqsClient, cfg.Queue.FailedQueueURL)

	indexerRepo := repository.NewIndexerRepository(pool)
	postRepo := repository.NewPostRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)

	procRunner := runner.New(cfg.Runner, failedQueue, statsRepo)

	indexerService := service.NewIndexerService(indexerRepo, statsRepo, store, startQueue, procRunner, cacheClient)
	postService := service.NewPostService(postRepo, cacheClient)

	consumer.New(indexerService, startQueue, failedQueue).Run(ctx)
	metrics.StartSystemSampler(ctx, 0)

	server := api.NewServer(indexerService, postService, map[string]api.HealthCheck{
		"database": pool.Ping,
		"cache":    cacheClient.Health,
		"storage":  store.Health,
		"queue": func(ctx context.Context) error {
			if err := startQueue.Health(ctx); err != nil {
				return err
			}
			return failedQueue.Health(ctx)
		},
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", httpServer.Addr),
			zap.Strings("storage_backends", storage.Backends()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}
