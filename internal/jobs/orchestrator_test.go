package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nguyentantai21042004/speech-to-text/internal/engine"
	"github.com/nguyentantai21042004/speech-to-text/internal/metrics"
	"github.com/nguyentantai21042004/speech-to-text/internal/pipeline"
)

func newTestOrchestrator(store Store, process ProcessFunc) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(store, process, 2, logger, metrics.New(prometheus.NewRegistry()))
}

// waitForTerminal polls until the job leaves the processing state
func waitForTerminal(t *testing.T, o *Orchestrator, id string) *Record {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := o.Status(context.Background(), id)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if rec.Status != StatusProcessing {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", id)
	return nil
}

func TestSubmitAndComplete(t *testing.T) {
	process := func(ctx context.Context, mediaURL, language string) (*pipeline.Result, error) {
		return &pipeline.Result{
			Text:       "transcribed text",
			Duration:   12.5,
			Confidence: 0.98,
		}, nil
	}
	o := newTestOrchestrator(NewMemoryStore(time.Hour), process)
	defer o.Stop(context.Background())

	status, err := o.Submit(context.Background(), "req-1", "https://cdn.example.com/a.wav", "en")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if status != StatusProcessing {
		t.Errorf("Submit() status = %v, want %v", status, StatusProcessing)
	}

	rec := waitForTerminal(t, o, "req-1")
	if rec.Status != StatusCompleted {
		t.Fatalf("final status = %v, want %v", rec.Status, StatusCompleted)
	}
	if rec.Transcription != "transcribed text" {
		t.Errorf("Transcription = %q, want %q", rec.Transcription, "transcribed text")
	}
	if rec.Duration != 12.5 {
		t.Errorf("Duration = %v, want 12.5", rec.Duration)
	}
	if rec.FinishedAt == nil {
		t.Error("FinishedAt not set on completed job")
	}
}

func TestSubmitIdempotentWhileProcessing(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32

	process := func(ctx context.Context, mediaURL, language string) (*pipeline.Result, error) {
		calls.Add(1)
		<-release
		return &pipeline.Result{Text: "done"}, nil
	}
	o := newTestOrchestrator(NewMemoryStore(time.Hour), process)
	defer o.Stop(context.Background())

	if _, err := o.Submit(context.Background(), "req-1", "https://cdn.example.com/a.wav", ""); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Duplicate submission must not schedule a second run
	status, err := o.Submit(context.Background(), "req-1", "https://cdn.example.com/a.wav", "")
	if err != nil {
		t.Fatalf("duplicate Submit() error = %v", err)
	}
	if status != StatusProcessing {
		t.Errorf("duplicate Submit() status = %v, want %v", status, StatusProcessing)
	}

	close(release)
	waitForTerminal(t, o, "req-1")

	if got := calls.Load(); got != 1 {
		t.Errorf("process invocations = %d, want 1", got)
	}
}

func TestSubmitIdempotentAfterCompletion(t *testing.T) {
	var calls atomic.Int32
	process := func(ctx context.Context, mediaURL, language string) (*pipeline.Result, error) {
		calls.Add(1)
		return &pipeline.Result{Text: "done"}, nil
	}
	o := newTestOrchestrator(NewMemoryStore(time.Hour), process)
	defer o.Stop(context.Background())

	if _, err := o.Submit(context.Background(), "req-1", "https://cdn.example.com/a.wav", ""); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitForTerminal(t, o, "req-1")

	status, err := o.Submit(context.Background(), "req-1", "https://cdn.example.com/a.wav", "")
	if err != nil {
		t.Fatalf("Submit() after completion error = %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("Submit() after completion status = %v, want %v", status, StatusCompleted)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("process invocations = %d, want 1", got)
	}
}

func TestSubmitRetriesFailedJob(t *testing.T) {
	var calls atomic.Int32
	process := func(ctx context.Context, mediaURL, language string) (*pipeline.Result, error) {
		if calls.Add(1) == 1 {
			return nil, engine.ErrContextUnavailable
		}
		return &pipeline.Result{Text: "second attempt worked"}, nil
	}
	o := newTestOrchestrator(NewMemoryStore(time.Hour), process)
	defer o.Stop(context.Background())

	if _, err := o.Submit(context.Background(), "req-1", "https://cdn.example.com/a.wav", ""); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	rec := waitForTerminal(t, o, "req-1")
	if rec.Status != StatusFailed {
		t.Fatalf("first attempt status = %v, want %v", rec.Status, StatusFailed)
	}
	if !rec.Transient {
		t.Error("context unavailability should be marked transient")
	}

	// Resubmitting a failed id replaces the record and runs again
	status, err := o.Submit(context.Background(), "req-1", "https://cdn.example.com/a.wav", "")
	if err != nil {
		t.Fatalf("retry Submit() error = %v", err)
	}
	if status != StatusProcessing {
		t.Errorf("retry Submit() status = %v, want %v", status, StatusProcessing)
	}

	rec = waitForTerminal(t, o, "req-1")
	if rec.Status != StatusCompleted {
		t.Fatalf("retry status = %v, want %v", rec.Status, StatusCompleted)
	}
	if rec.Transcription != "second attempt worked" {
		t.Errorf("Transcription = %q, want %q", rec.Transcription, "second attempt worked")
	}
	if rec.Error != "" {
		t.Errorf("Error = %q, want empty after successful retry", rec.Error)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("process invocations = %d, want 2", got)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	o := newTestOrchestrator(NewMemoryStore(time.Hour), nil)
	defer o.Stop(context.Background())

	_, err := o.Status(context.Background(), "never-submitted")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Status() error = %v, want ErrNotFound", err)
	}
}

func TestStopCancelsRunningJobs(t *testing.T) {
	started := make(chan struct{})
	process := func(ctx context.Context, mediaURL, language string) (*pipeline.Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	o := newTestOrchestrator(NewMemoryStore(time.Hour), process)

	if _, err := o.Submit(context.Background(), "req-1", "https://cdn.example.com/a.wav", ""); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	rec, err := o.Status(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if rec.Status != StatusFailed {
		t.Errorf("status after shutdown = %v, want %v", rec.Status, StatusFailed)
	}
	if !rec.Transient {
		t.Error("cancellation should be marked transient")
	}
}
