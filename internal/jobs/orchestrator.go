package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nguyentantai21042004/speech-to-text/internal/metrics"
	"github.com/nguyentantai21042004/speech-to-text/internal/pipeline"
)

// ProcessFunc performs the actual work of one job: fetch the media,
// decode it and run the transcription pipeline
type ProcessFunc func(ctx context.Context, mediaURL, language string) (*pipeline.Result, error)

// Orchestrator owns job lifecycle: idempotent submission, a bounded
// worker pool, and terminal record writes
type Orchestrator struct {
	store   Store
	process ProcessFunc
	logger  *slog.Logger
	metrics *metrics.Metrics

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewOrchestrator creates an orchestrator running at most workers jobs
// concurrently
func NewOrchestrator(store Store, process ProcessFunc, workers int, logger *slog.Logger, m *metrics.Metrics) *Orchestrator {
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:   store,
		process: process,
		logger:  logger,
		metrics: m,
		sem:     make(chan struct{}, workers),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit registers a job under the client-chosen id and schedules it.
// Resubmitting an id whose job is processing or completed is a no-op
// returning the current status; resubmitting a failed id discards the
// old record and starts fresh.
func (o *Orchestrator) Submit(ctx context.Context, id, mediaURL, language string) (Status, error) {
	existing, err := o.store.Get(ctx, id)
	switch {
	case err == nil:
		if existing.Status != StatusFailed {
			o.metrics.RecordJobSubmitted("duplicate")
			return existing.Status, nil
		}
		// A failed job is retried by replacing its record entirely
		if err := o.store.Delete(ctx, id); err != nil {
			return "", fmt.Errorf("failed to discard failed job %s: %w", id, err)
		}
		o.metrics.RecordJobSubmitted("retry")

	case errors.Is(err, ErrNotFound):
		o.metrics.RecordJobSubmitted("new")

	default:
		return "", fmt.Errorf("failed to check job %s: %w", id, err)
	}

	rec := Record{
		Status:      StatusProcessing,
		MediaURL:    mediaURL,
		Language:    language,
		SubmittedAt: time.Now().UTC(),
	}

	if err := o.store.Create(ctx, id, rec); err != nil {
		if errors.Is(err, ErrExists) {
			// Lost a submission race for the same id; the winner's
			// job is already scheduled
			return StatusProcessing, nil
		}
		return "", fmt.Errorf("failed to create job %s: %w", id, err)
	}

	o.logger.Info("Job submitted",
		slog.String("request_id", id),
		slog.String("media_url", mediaURL),
	)

	o.wg.Add(1)
	go o.run(id, rec)

	return StatusProcessing, nil
}

// Status returns the stored record for id
func (o *Orchestrator) Status(ctx context.Context, id string) (*Record, error) {
	return o.store.Get(ctx, id)
}

// Stop cancels in-flight jobs and waits for workers to finish writing
// their terminal records, up to the context deadline
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for jobs to finish: %w", ctx.Err())
	}
}

func (o *Orchestrator) run(id string, rec Record) {
	defer o.wg.Done()

	select {
	case o.sem <- struct{}{}:
	case <-o.ctx.Done():
		rec.Status = StatusFailed
		rec.Error = "service shutting down before job started"
		rec.Transient = true
		now := time.Now().UTC()
		rec.FinishedAt = &now
		o.writeTerminal(id, rec)
		return
	}
	defer func() { <-o.sem }()

	start := time.Now()
	o.metrics.RecordJobStarted()

	result, err := o.process(o.ctx, rec.MediaURL, rec.Language)

	now := time.Now().UTC()
	rec.FinishedAt = &now

	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		rec.Transient = pipeline.IsTransient(err) || errors.Is(err, context.Canceled)
		o.logger.Error("Job failed",
			slog.String("request_id", id),
			slog.String("error", err.Error()),
			slog.Bool("transient", rec.Transient),
		)
	} else {
		rec.Status = StatusCompleted
		rec.Transcription = result.Text
		rec.Duration = result.Duration
		rec.Confidence = result.Confidence
		rec.ProcessingTime = result.ProcessingTime
		o.logger.Info("Job completed",
			slog.String("request_id", id),
			slog.Float64("duration", result.Duration),
			slog.Float64("processing_time", result.ProcessingTime),
		)
	}

	o.metrics.RecordJobFinished(string(rec.Status), time.Since(start))
	o.writeTerminal(id, rec)
}

// writeTerminal persists a terminal record on a fresh context so a
// shutdown cancellation cannot lose the result
func (o *Orchestrator) writeTerminal(id string, rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.store.Set(ctx, id, rec); err != nil {
		o.logger.Error("Failed to persist job result",
			slog.String("request_id", id),
			slog.String("error", err.Error()),
		)
	}
}
