package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State describes the lifecycle of the native context
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateCorrupted
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateCorrupted:
		return "corrupted"
	default:
		return "unknown"
	}
}

type callResult struct {
	text string
	err  error
}

// Adapter owns the single engine context for the process lifetime and is
// the only component allowed to touch it. The underlying engine is not
// reentrant, so every call runs under one exclusive lock: concurrent
// callers queue, they never overlap inside the native call.
type Adapter struct {
	mu      sync.Mutex // held for the whole duration of a call
	backend Backend
	state   State

	cfg        Config
	factory    func(Config) (Backend, error)
	logger     *slog.Logger
	onRecovery func()

	// Statistics, guarded separately so monitoring never waits on a call
	statsMu    sync.RWMutex
	calls      uint64
	failures   uint64
	recoveries uint64
	timeouts   uint64
}

// AdapterStats is a snapshot of adapter counters for monitoring
type AdapterStats struct {
	State      string `json:"state"`
	Calls      uint64 `json:"calls"`
	Failures   uint64 `json:"failures"`
	Recoveries uint64 `json:"recoveries"`
	Timeouts   uint64 `json:"timeouts"`
}

// NewAdapter constructs the backend and wraps it. Called once at startup;
// the returned Adapter is shared by all requests.
func NewAdapter(cfg Config, logger *slog.Logger) (*Adapter, error) {
	return newAdapter(cfg, logger, New)
}

func newAdapter(cfg Config, logger *slog.Logger, factory func(Config) (Backend, error)) (*Adapter, error) {
	backend, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine backend: %w", err)
	}

	return &Adapter{
		backend: backend,
		state:   StateReady,
		cfg:     cfg,
		factory: factory,
		logger:  logger,
	}, nil
}

// Transcribe converts samples to text through the shared context. Safe for
// concurrent use. A per-chunk inference failure is returned as-is for the
// pipeline to absorb; ErrContextUnavailable and ErrCallTimeout are
// transient faults the caller may resubmit. Caller cancellation does not
// abandon the context: a disconnected client must not cost everyone a
// model reload, so CallTimeout is the only abandonment trigger and a
// cancelled caller waits at most that long for the in-flight call.
func (a *Adapter) Transcribe(ctx context.Context, samples []float32, language string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.recordCall()

	if !a.healthy() {
		a.logger.Warn("Engine context unhealthy, attempting recovery",
			slog.String("state", a.state.String()),
		)
		if err := a.reinitialize(); err != nil {
			a.recordFailure()
			return "", fmt.Errorf("%w: recovery failed: %v", ErrContextUnavailable, err)
		}
	}

	// The native call cannot be interrupted. Run it on its own goroutine
	// and bound the wait; if the call is abandoned the backend is detached
	// with it, so the next caller gets a fresh context instead of one a
	// stray call may still be using.
	backend := a.backend
	done := make(chan callResult, 1)
	go func() {
		text, err := backend.Transcribe(samples, language)
		done <- callResult{text: text, err: err}
	}()

	timer := time.NewTimer(a.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			a.recordFailure()
			return "", r.err
		}
		return r.text, nil

	case <-timer.C:
		a.detach(backend, done)
		a.recordTimeout()
		a.logger.Error("Engine call exceeded timeout, context marked corrupted",
			slog.Duration("timeout", a.cfg.CallTimeout),
		)
		return "", ErrCallTimeout
	}
}

// healthy is the lightweight liveness probe run before every call
func (a *Adapter) healthy() bool {
	return a.state == StateReady && a.backend != nil
}

// reinitialize reloads the model into a fresh context. Caller holds mu.
func (a *Adapter) reinitialize() error {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Warn("Failed to close old engine backend",
				slog.String("error", err.Error()),
			)
		}
		a.backend = nil
	}
	a.setState(StateUninitialized)

	backend, err := a.factory(a.cfg)
	if err != nil {
		a.setState(StateCorrupted)
		return err
	}

	a.backend = backend
	a.setState(StateReady)
	a.recordRecovery()
	if a.onRecovery != nil {
		a.onRecovery()
	}
	a.logger.Warn("Engine context reinitialized successfully")
	return nil
}

// OnRecovery registers a callback invoked after each successful context
// reinitialization. Must be called before the adapter is shared.
func (a *Adapter) OnRecovery(fn func()) {
	a.onRecovery = fn
}

// detach abandons a backend to a stray in-flight call and marks the
// context corrupted. The backend is closed once that call finally
// returns, so the stray call never races with a fresh context. Caller
// holds mu.
func (a *Adapter) detach(backend Backend, done <-chan callResult) {
	a.backend = nil
	a.setState(StateCorrupted)

	go func() {
		<-done
		if err := backend.Close(); err != nil {
			a.logger.Warn("Failed to close abandoned engine backend",
				slog.String("error", err.Error()),
			)
		}
	}()
}

// State returns the current lifecycle state
func (a *Adapter) State() State {
	a.statsMu.RLock()
	defer a.statsMu.RUnlock()
	return a.state
}

// Stats returns a snapshot of adapter counters
func (a *Adapter) Stats() AdapterStats {
	a.statsMu.RLock()
	defer a.statsMu.RUnlock()

	return AdapterStats{
		State:      a.state.String(),
		Calls:      a.calls,
		Failures:   a.failures,
		Recoveries: a.recoveries,
		Timeouts:   a.timeouts,
	}
}

// Close releases the context at process shutdown
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.backend == nil {
		return nil
	}

	err := a.backend.Close()
	a.backend = nil
	a.setState(StateUninitialized)
	return err
}

// setState synchronizes state mutations with the monitoring readers.
// Mutating callers hold mu, so writes are already serialized.
func (a *Adapter) setState(s State) {
	a.statsMu.Lock()
	a.state = s
	a.statsMu.Unlock()
}

func (a *Adapter) recordCall() {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	a.calls++
}

func (a *Adapter) recordFailure() {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	a.failures++
}

func (a *Adapter) recordRecovery() {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	a.recoveries++
}

func (a *Adapter) recordTimeout() {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	a.timeouts++
}
