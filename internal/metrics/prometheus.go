package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service
type Metrics struct {
	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Pipeline
	chunksProcessed *prometheus.CounterVec
	chunkDuration   prometheus.Histogram
	audioDuration   prometheus.Histogram
	mergeDuration   prometheus.Histogram

	// Engine
	engineCalls      *prometheus.CounterVec
	engineCallTime   prometheus.Histogram
	engineRecoveries prometheus.Counter
	engineTimeouts   prometheus.Counter

	// Jobs
	jobsSubmitted  *prometheus.CounterVec
	jobsCompleted  *prometheus.CounterVec
	jobsProcessing prometheus.Gauge
	jobDuration    prometheus.Histogram
}

// New creates and registers all collectors with the given registerer
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stt_http_requests_total",
				Help: "Total HTTP requests by method, path and status code",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stt_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		chunksProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stt_chunks_processed_total",
				Help: "Audio chunks processed by outcome (transcribed, skipped, failed)",
			},
			[]string{"outcome"},
		),
		chunkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stt_chunk_audio_seconds",
				Help:    "Audio duration of processed chunks in seconds",
				Buckets: []float64{1, 5, 10, 15, 20, 25, 30, 45, 60},
			},
		),
		audioDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stt_audio_duration_seconds",
				Help:    "Audio duration of transcribed files in seconds",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
		),
		mergeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stt_merge_duration_seconds",
				Help:    "Time spent merging chunk transcriptions",
				Buckets: prometheus.DefBuckets,
			},
		),
		engineCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stt_engine_calls_total",
				Help: "Engine inference calls by outcome (success, error, timeout)",
			},
			[]string{"outcome"},
		),
		engineCallTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stt_engine_call_duration_seconds",
				Help:    "Engine inference call duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
			},
		),
		engineRecoveries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "stt_engine_recoveries_total",
				Help: "Successful engine context reinitializations",
			},
		),
		engineTimeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "stt_engine_timeouts_total",
				Help: "Engine calls abandoned after exceeding the call timeout",
			},
		),
		jobsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stt_jobs_submitted_total",
				Help: "Job submissions by kind (new, duplicate, retry)",
			},
			[]string{"kind"},
		),
		jobsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stt_jobs_finished_total",
				Help: "Finished jobs by terminal status (completed, failed)",
			},
			[]string{"status"},
		),
		jobsProcessing: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stt_jobs_processing",
				Help: "Jobs currently being processed",
			},
		),
		jobDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stt_job_duration_seconds",
				Help:    "End-to-end job processing time in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
		),
	}
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordChunk records a processed chunk by outcome
func (m *Metrics) RecordChunk(outcome string, audioSeconds float64) {
	m.chunksProcessed.WithLabelValues(outcome).Inc()
	m.chunkDuration.Observe(audioSeconds)
}

// RecordAudio records a transcribed file's audio duration
func (m *Metrics) RecordAudio(audioSeconds float64) {
	m.audioDuration.Observe(audioSeconds)
}

// RecordMerge records time spent merging chunk texts
func (m *Metrics) RecordMerge(duration time.Duration) {
	m.mergeDuration.Observe(duration.Seconds())
}

// RecordEngineCall records an engine call by outcome
func (m *Metrics) RecordEngineCall(outcome string, duration time.Duration) {
	m.engineCalls.WithLabelValues(outcome).Inc()
	m.engineCallTime.Observe(duration.Seconds())
}

// RecordEngineRecovery records a successful context reinitialization
func (m *Metrics) RecordEngineRecovery() {
	m.engineRecoveries.Inc()
}

// RecordEngineTimeout records an abandoned engine call
func (m *Metrics) RecordEngineTimeout() {
	m.engineTimeouts.Inc()
}

// RecordJobSubmitted records a job submission by kind
func (m *Metrics) RecordJobSubmitted(kind string) {
	m.jobsSubmitted.WithLabelValues(kind).Inc()
}

// RecordJobStarted marks a job as in flight
func (m *Metrics) RecordJobStarted() {
	m.jobsProcessing.Inc()
}

// RecordJobFinished records a terminal job outcome
func (m *Metrics) RecordJobFinished(status string, duration time.Duration) {
	m.jobsProcessing.Dec()
	m.jobsCompleted.WithLabelValues(status).Inc()
	m.jobDuration.Observe(duration.Seconds())
}
