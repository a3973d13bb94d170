package jobs

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a job
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var (
	// ErrNotFound means no record exists for the id, or it expired
	ErrNotFound = errors.New("job not found")

	// ErrExists means a record for the id is already present
	ErrExists = errors.New("job already exists")
)

// Record is the stored state of one job. Every field a client needs to
// act on the outcome lives here; nothing about a job survives outside
// the store.
type Record struct {
	Status         Status     `json:"status"`
	MediaURL       string     `json:"media_url"`
	Language       string     `json:"language,omitempty"`
	Transcription  string     `json:"transcription,omitempty"`
	Duration       float64    `json:"duration,omitempty"`
	Confidence     float64    `json:"confidence,omitempty"`
	ProcessingTime float64    `json:"processing_time,omitempty"`
	Error          string     `json:"error,omitempty"`
	Transient      bool       `json:"transient,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Store persists job records with a TTL. Every write, including status
// updates, restarts the TTL clock; records disappear silently once it
// lapses.
type Store interface {
	// Create stores a record only if the id is absent, returning
	// ErrExists otherwise.
	Create(ctx context.Context, id string, rec Record) error
	// Set stores a record unconditionally and refreshes its TTL.
	Set(ctx context.Context, id string, rec Record) error
	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)
	// Delete removes the record for id. Deleting an absent id is not
	// an error.
	Delete(ctx context.Context, id string) error
	// Close releases store resources.
	Close() error
}
