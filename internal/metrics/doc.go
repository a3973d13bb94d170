// Package metrics defines the Prometheus collectors for the service and
// typed helpers for recording them.
package metrics
