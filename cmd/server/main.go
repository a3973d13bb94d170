package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nguyentantai21042004/speech-to-text/internal/audio"
	"github.com/nguyentantai21042004/speech-to-text/internal/config"
	"github.com/nguyentantai21042004/speech-to-text/internal/engine"
	"github.com/nguyentantai21042004/speech-to-text/internal/fetch"
	"github.com/nguyentantai21042004/speech-to-text/internal/jobs"
	"github.com/nguyentantai21042004/speech-to-text/internal/metrics"
	"github.com/nguyentantai21042004/speech-to-text/internal/pipeline"
	"github.com/nguyentantai21042004/speech-to-text/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "speech-to-text"
	serviceVersion    = "1.0.0"

	downloadTimeout = 2 * time.Minute
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		slog.String("engine_backend", cfg.Engine.Backend),
		slog.String("model_path", cfg.Engine.ModelPath),
		slog.Bool("chunking_enabled", cfg.Chunking.Enabled),
		slog.Duration("chunk_duration", cfg.Chunking.GetDuration()),
		slog.Duration("chunk_overlap", cfg.Chunking.GetOverlap()),
		slog.Duration("base_timeout", cfg.Timeout.GetBaseTimeout()),
		slog.Int("job_workers", cfg.Jobs.Workers),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.New(prometheus.DefaultRegisterer)
	logger.Info("Prometheus metrics initialized")

	// Initialize the engine adapter; loading the model is the slow part
	// of startup
	adapter, err := engine.NewAdapter(engine.Config{
		Backend:     cfg.Engine.Backend,
		ModelPath:   cfg.Engine.ModelPath,
		Executable:  cfg.Engine.Executable,
		SampleRate:  cfg.Audio.SampleRate,
		NThreads:    cfg.Engine.NThreads,
		CallTimeout: cfg.Engine.GetCallTimeout(),
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize transcription engine", slog.String("error", err.Error()))
		os.Exit(1)
	}
	adapter.OnRecovery(appMetrics.RecordEngineRecovery)
	logger.Info("Transcription engine initialized",
		slog.String("backend", cfg.Engine.Backend),
	)

	// Initialize the job store
	store, err := newStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize job store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize the media downloader
	downloader, err := newDownloader(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize downloader", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pipe := pipeline.New(adapter, pipeline.Config{
		ChunkingEnabled:  cfg.Chunking.Enabled,
		ChunkDuration:    cfg.Chunking.Duration,
		ChunkOverlap:     cfg.Chunking.Overlap,
		MinChunkDuration: cfg.Chunking.MinDuration,
	}, logger, appMetrics)

	// The adaptive deadline cancels synchronous requests only; async
	// jobs run to completion and are merely measured against it
	syncTranscribe := newTranscribeFunc(cfg, downloader, pipe, logger, true)
	asyncTranscribe := newTranscribeFunc(cfg, downloader, pipe, logger, false)

	orchestrator := jobs.NewOrchestrator(store, jobs.ProcessFunc(asyncTranscribe),
		cfg.Jobs.Workers, logger, appMetrics)

	httpServer := server.New(cfg, logger, adapter, orchestrator, syncTranscribe, appMetrics)
	httpServer.Start()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop accepting new requests first
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Let in-flight jobs write their terminal records
	if err := orchestrator.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping job orchestrator", slog.String("error", err.Error()))
	}

	if err := store.Close(); err != nil {
		logger.Error("Error closing job store", slog.String("error", err.Error()))
	}

	if err := adapter.Close(); err != nil {
		logger.Error("Error closing transcription engine", slog.String("error", err.Error()))
	}

	stats := adapter.Stats()
	logger.Info("Final engine statistics",
		slog.Uint64("calls", stats.Calls),
		slog.Uint64("failures", stats.Failures),
		slog.Uint64("recoveries", stats.Recoveries),
		slog.Uint64("timeouts", stats.Timeouts),
	)

	logger.Info("Service stopped")
}

// newStore selects the job store backend. The special address "memory"
// runs without Redis for single-node deployments.
func newStore(cfg *config.Config, logger *slog.Logger) (jobs.Store, error) {
	if cfg.Jobs.RedisAddr == "memory" {
		logger.Warn("Using in-memory job store; job state will not survive restarts")
		return jobs.NewMemoryStore(cfg.Jobs.GetTTL()), nil
	}

	store, err := jobs.NewRedisStore(cfg.Jobs.RedisAddr, cfg.Jobs.RedisPassword,
		cfg.Jobs.RedisDB, cfg.Jobs.GetTTL())
	if err != nil {
		return nil, err
	}

	logger.Info("Connected to Redis job store",
		slog.String("addr", cfg.Jobs.RedisAddr),
		slog.Int("db", cfg.Jobs.RedisDB),
	)
	return store, nil
}

// newDownloader builds the media downloader, layering object storage
// support over HTTP when an endpoint is configured
func newDownloader(cfg *config.Config, logger *slog.Logger) (fetch.Downloader, error) {
	httpDownloader := fetch.NewHTTPDownloader(downloadTimeout,
		cfg.Audio.MaxFileSizeBytes(), logger)

	if cfg.Storage.Endpoint == "" {
		return httpDownloader, nil
	}

	minioDownloader, err := fetch.NewMinioDownloader(cfg.Storage.Endpoint,
		cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL,
		cfg.Audio.MaxFileSizeBytes(), httpDownloader)
	if err != nil {
		return nil, err
	}

	logger.Info("Object storage downloader initialized",
		slog.String("endpoint", cfg.Storage.Endpoint),
	)
	return minioDownloader, nil
}

// transcriber is the pipeline surface newTranscribeFunc composes over
type transcriber interface {
	Transcribe(ctx context.Context, buf *audio.Buffer, language string) (*pipeline.Result, error)
}

// newTranscribeFunc composes fetch, decode and the pipeline into the
// operation behind the sync endpoint and async jobs. The adaptive
// allowance scales with audio length; when bounded it becomes a
// cancelling deadline (sync requests), otherwise the job runs to
// completion and an overrun is only logged (async jobs have no
// cancellation).
func newTranscribeFunc(cfg *config.Config, downloader fetch.Downloader, pipe transcriber,
	logger *slog.Logger, bounded bool) server.TranscribeFunc {

	return func(ctx context.Context, mediaURL, language string) (*pipeline.Result, error) {
		path := filepath.Join(os.TempDir(), fmt.Sprintf("stt_media_%s.wav", uuid.NewString()))
		if _, err := downloader.Fetch(ctx, mediaURL, path); err != nil {
			return nil, err
		}
		defer os.Remove(path)

		buf, err := audio.DecodeWAVFile(path, cfg.Audio.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("failed to decode audio: %w", err)
		}

		allowance := pipeline.AdaptiveTimeout(cfg.Timeout.GetBaseTimeout(), buf.Duration())
		if bounded {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, allowance)
			defer cancel()
		}

		start := time.Now()
		result, err := pipe.Transcribe(ctx, buf, language)
		if err != nil {
			return nil, err
		}

		if elapsed := time.Since(start); !bounded && elapsed > allowance {
			logger.Warn("Transcription exceeded its processing allowance",
				slog.String("media_url", mediaURL),
				slog.Duration("allowance", allowance),
				slog.Duration("elapsed", elapsed),
			)
		}
		return result, nil
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
