// Package jobs manages asynchronous transcription jobs: a TTL-bound
// record store keyed by client-chosen request id, and an orchestrator
// that enforces idempotent submission, runs jobs through a bounded
// worker pool, and persists terminal results.
package jobs
