package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/clipfetch/internal/config"
	"github.com/cuongbtq/clipfetch/internal/history"
	"github.com/cuongbtq/clipfetch/internal/manifest"
	"github.com/cuongbtq/clipfetch/internal/outcome"
	"github.com/cuongbtq/clipfetch/internal/status"
	"github.com/cuongbtq/clipfetch/internal/tools"
	"github.com/cuongbtq/clipfetch/internal/worker"
	"github.com/cuongbtq/clipfetch/internal/worker/domain"
	"github.com/cuongbtq/clipfetch/shared/logger"
	"github.com/cuongbtq/clipfetch/shared/postgresql"
	"github.com/cuongbtq/clipfetch/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	configPath := flag.String("config", os.Getenv("CLIPFETCH_CONFIG_PATH"), "Path to configuration file")
	manifestPath := flag.String("i", "", "Path to the manifest file (CSV with header row)")
	outputDir := flag.String("o", "", "Output directory for fetched clips")
	workers := flag.Int("w", 0, "Number of concurrent workers (default: number of CPUs)")
	timeoutSec := flag.Int("t", 0, "Per-tool timeout in seconds (0 uses the configured default)")
	queueMode := flag.Bool("queue", false, "Consume jobs from RabbitMQ instead of a manifest file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// CLI flags override the config file
	if *outputDir != "" {
		cfg.Fetch.OutputDir = *outputDir
	}
	if *workers > 0 {
		cfg.Fetch.Workers = *workers
	}
	if *timeoutSec > 0 {
		cfg.Fetch.ToolTimeout = time.Duration(*timeoutSec) * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if *queueMode {
		if err := cfg.ValidateQueue(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	} else if *manifestPath == "" {
		flag.Usage()
		return fmt.Errorf("manifest path is required: clipfetch -i <manifest> -o <output-dir> [-w workers] [-t timeout-seconds]")
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting clipfetch",
		slog.String("version", cfg.App.Version),
		slog.String("output_dir", cfg.Fetch.OutputDir),
		slog.Bool("queue_mode", *queueMode),
	)

	// Parse the manifest before touching anything else: a bad manifest
	// aborts the run with zero jobs dispatched.
	var jobs []domain.Job
	if !*queueMode {
		parsed, err := manifest.Read(*manifestPath)
		if err != nil {
			return err
		}
		jobs = parsed
		appLogger.Info("Manifest parsed",
			slog.String("manifest", *manifestPath),
			slog.Int("jobs", len(jobs)),
		)
	}

	if err := os.MkdirAll(cfg.Fetch.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outcomePath := cfg.Fetch.OutcomeLog
	if outcomePath == "" {
		outcomePath = cfg.Fetch.OutputDir + "/outcomes.tsv"
	}
	sink, err := outcome.NewSink(outcomePath, appLogger.Logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	runID := uuid.New().String()
	recorders := []outcome.Recorder{sink}

	var store *history.Store
	if cfg.History.Enabled {
		dbClient, err := initPostgreSQL(&cfg.History, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize history database: %w", err)
		}
		defer dbClient.Close()

		store = history.NewStore(dbClient, appLogger.Logger, runID)

		source := *manifestPath
		if *queueMode {
			source = "queue:" + cfg.Queue.Queue
		}
		if err := store.StartRun(context.Background(), source, len(jobs)); err != nil {
			// History is observability; the run proceeds without it.
			appLogger.Warn("Failed to record run start", slog.Any("error", err))
		} else {
			recorders = append(recorders, store)
		}
	}

	concurrency := cfg.Fetch.Workers
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	w := worker.New(&worker.Config{
		Logger:       appLogger.Logger,
		RunID:        runID,
		Downloader:   tools.NewYtDlpDownloader(cfg.Tools.Downloader, appLogger.Logger),
		Transcoder:   tools.NewFfmpegTranscoder(cfg.Tools.Transcoder, appLogger.Logger),
		Recorder:     outcome.Multi(recorders...),
		OutputDir:    cfg.Fetch.OutputDir,
		VideoFormat:  cfg.Fetch.VideoFormat,
		Concurrency:  concurrency,
		ToolTimeout:  cfg.Fetch.ToolTimeout,
		SkipExisting: cfg.Fetch.SkipExisting,
	})

	if cfg.Status.Enabled {
		statusServer := status.New(cfg.Status.Port, sink, appLogger.Logger)
		go statusServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			statusServer.Shutdown(shutdownCtx)
		}()
	}

	// Cancel the run context on SIGINT/SIGTERM; in-flight tools are
	// killed and every remaining job still records an outcome.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
		cancel()
	}()

	if *queueMode {
		rabbitClient, err := initRabbitMQ(&cfg.Queue, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()

		if err := w.RunQueue(ctx, rabbitClient); err != nil {
			return err
		}
	} else {
		sink.SetExpected(len(jobs))
		w.Run(ctx, jobs)
	}

	counts := sink.Counts()
	if store != nil {
		finishCtx, cancelFinish := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelFinish()
		if err := store.FinishRun(finishCtx, counts); err != nil {
			appLogger.Warn("Failed to finalize run history", slog.Any("error", err))
		}
	}

	appLogger.Info("Run complete",
		slog.String("run_id", runID),
		slog.Int("succeeded", counts.Succeeded),
		slog.Int("failed", counts.Failed),
	)

	// Per-job failures are recorded outcomes, not process failures: the
	// exit code is non-zero only for fatal startup errors above.
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		TimeFormat: time.RFC3339,
	})
}

// initPostgreSQL initializes the run-history database client
func initPostgreSQL(cfg *config.HistoryConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
}

// initRabbitMQ initializes the queue-mode job source
func initRabbitMQ(cfg *config.QueueConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		User:          cfg.User,
		Password:      cfg.Password,
		VHost:         cfg.VHost,
		Exchange:      cfg.Exchange,
		ExchangeType:  cfg.ExchangeType,
		Queue:         cfg.Queue,
		RoutingKey:    cfg.RoutingKey,
		PrefetchCount: cfg.PrefetchCount,
		RetryAttempts: cfg.RetryAttempts,
		RetryInterval: cfg.RetryInterval,
		Heartbeat:     cfg.Heartbeat,
	}, logger)
}
