package engine

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Sentinel errors for the failure taxonomy. Transient errors are candidates
// for caller-level resubmission; permanent ones are not.
var (
	// ErrContextUnavailable means the context was corrupted and
	// reinitialization failed; the current call must not retry.
	ErrContextUnavailable = errors.New("engine context unavailable")

	// ErrCallTimeout means a single inference call exceeded its bound.
	// The context is considered corrupted until it recovers.
	ErrCallTimeout = errors.New("engine call timed out")
)

// maxAutoThreads caps auto-detected inference threads
const maxAutoThreads = 8

// Backend converts audio samples to text. Implementations are not required
// to be safe for concurrent use; the Adapter serializes all access.
type Backend interface {
	// Transcribe converts mono 16kHz float32 samples to text.
	Transcribe(samples []float32, language string) (string, error)
	// Close releases backend resources.
	Close() error
}

// Config contains backend construction parameters
type Config struct {
	Backend     string // "library" or "process"
	ModelPath   string
	Executable  string // process backend only
	SampleRate  int
	NThreads    int // 0 = auto-detect, capped at maxAutoThreads
	CallTimeout time.Duration
}

// Threads resolves the effective inference thread count
func (c *Config) Threads() int {
	if c.NThreads > 0 {
		return c.NThreads
	}

	n := runtime.NumCPU()
	if n > maxAutoThreads {
		n = maxAutoThreads
	}
	return n
}

// New creates a Backend based on the configured variant. The set of
// variants is closed and selected at construction time, not per call.
func New(cfg Config) (Backend, error) {
	switch cfg.Backend {
	case "library", "":
		return newLibraryBackend(cfg)
	case "process":
		return newProcessBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown engine backend %q (supported: library, process)", cfg.Backend)
	}
}

// IsTransient reports whether an error from the engine or pipeline is a
// candidate for resubmission
func IsTransient(err error) bool {
	return errors.Is(err, ErrContextUnavailable) || errors.Is(err, ErrCallTimeout)
}
