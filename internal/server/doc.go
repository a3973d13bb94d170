// Package server provides the HTTP API: synchronous and asynchronous
// transcription endpoints, job status lookup, and the monitoring
// surface (health, config, stats, Prometheus metrics).
package server
