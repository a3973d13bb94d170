package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nguyentantai21042004/speech-to-text/internal/config"
	"github.com/nguyentantai21042004/speech-to-text/internal/engine"
	"github.com/nguyentantai21042004/speech-to-text/internal/jobs"
	"github.com/nguyentantai21042004/speech-to-text/internal/metrics"
	"github.com/nguyentantai21042004/speech-to-text/internal/pipeline"
)

// maxRequestBody bounds JSON request bodies
const maxRequestBody = 1 << 20

// TranscribeFunc fetches a media URL, decodes it and runs it through
// the transcription pipeline
type TranscribeFunc func(ctx context.Context, mediaURL, language string) (*pipeline.Result, error)

// EngineMonitor is the engine adapter surface the API exposes
type EngineMonitor interface {
	State() engine.State
	Stats() engine.AdapterStats
}

// JobManager is the orchestrator surface behind the async endpoints
type JobManager interface {
	Submit(ctx context.Context, id, mediaURL, language string) (jobs.Status, error)
	Status(ctx context.Context, id string) (*jobs.Record, error)
}

// Server is the HTTP API server
type Server struct {
	server *http.Server
	logger *slog.Logger
	config *config.Config

	adapter      EngineMonitor
	orchestrator JobManager
	transcribe   TranscribeFunc
	metrics      *metrics.Metrics

	startTime time.Time
}

// New creates the HTTP API server with all routes configured
func New(cfg *config.Config, logger *slog.Logger, adapter EngineMonitor,
	orchestrator JobManager, transcribe TranscribeFunc, m *metrics.Metrics) *Server {

	s := &Server{
		logger:       logger,
		config:       cfg,
		adapter:      adapter,
		orchestrator: orchestrator,
		transcribe:   transcribe,
		metrics:      m,
		startTime:    time.Now(),
	}

	// No WriteTimeout: synchronous transcription legitimately runs for
	// minutes under the adaptive deadline
	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:     s.routes(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	origins := s.config.HTTP.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/transcribe-sync", s.withMetrics("/api/v1/transcribe-sync", s.handleTranscribeSync))
		r.Post("/transcribe", s.withMetrics("/api/v1/transcribe", s.handleSubmit))
		r.Get("/transcribe/{request_id}", s.withMetrics("/api/v1/transcribe/{request_id}", s.handleJobStatus))
	})

	r.Get("/health", s.withMetrics("/health", s.handleHealth))
	r.Get("/config", s.withMetrics("/config", s.handleConfig))
	r.Get("/stats", s.withMetrics("/stats", s.handleStats))
	r.Get("/", s.withMetrics("/", s.handleRoot))

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// withMetrics wraps a handler with request metrics collection
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)

		s.metrics.RecordHTTPRequest(r.Method, endpoint,
			fmt.Sprintf("%d", ww.statusCode), time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start begins serving in a background goroutine
func (s *Server) Start() {
	s.logger.Info("Starting HTTP API server",
		slog.String("address", s.server.Addr),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP API server...")
	return s.server.Shutdown(ctx)
}

// envelope is the uniform response shape: error_code 0 for success, 1
// for failure
type envelope struct {
	ErrorCode int      `json:"error_code"`
	Message   string   `json:"message"`
	Data      any      `json:"data,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any) {
	s.writeJSON(w, status, envelope{Message: "success", Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, details ...string) {
	s.writeJSON(w, status, envelope{ErrorCode: 1, Message: message, Errors: details})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}
