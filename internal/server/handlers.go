package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nguyentantai21042004/speech-to-text/internal/engine"
	"github.com/nguyentantai21042004/speech-to-text/internal/fetch"
	"github.com/nguyentantai21042004/speech-to-text/internal/jobs"
	"github.com/nguyentantai21042004/speech-to-text/internal/pipeline"
)

type transcribeRequest struct {
	RequestID string `json:"request_id"`
	MediaURL  string `json:"media_url"`
	Language  string `json:"language"`
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, req *transcribeRequest) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	if req.MediaURL == "" {
		s.writeError(w, http.StatusBadRequest, "validation failed", "media_url is required")
		return false
	}
	if req.Language == "" {
		req.Language = s.config.Engine.Language
	}
	return true
}

// handleTranscribeSync implements POST /api/v1/transcribe-sync: fetch,
// transcribe and answer in one request
func (s *Server) handleTranscribeSync(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	s.logger.Info("Synchronous transcription requested",
		slog.String("media_url", req.MediaURL),
		slog.String("language", req.Language),
	)

	result, err := s.transcribe(r.Context(), req.MediaURL, req.Language)
	if err != nil {
		s.writeTranscribeError(w, req.MediaURL, err)
		return
	}

	s.writeData(w, http.StatusOK, result)
}

// handleSubmit implements POST /api/v1/transcribe: register a job under
// the client-chosen request id and answer immediately
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		s.writeError(w, http.StatusBadRequest, "validation failed", "request_id is required")
		return
	}

	status, err := s.orchestrator.Submit(r.Context(), req.RequestID, req.MediaURL, req.Language)
	if err != nil {
		s.logger.Error("Job submission failed",
			slog.String("request_id", req.RequestID),
			slog.String("error", err.Error()),
		)
		s.writeError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	s.writeData(w, http.StatusAccepted, map[string]any{
		"request_id": req.RequestID,
		"status":     status,
	})
}

// handleJobStatus implements GET /api/v1/transcribe/{request_id}
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "request_id")

	rec, err := s.orchestrator.Status(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "job not found",
			fmt.Sprintf("no job with request_id %q; it may have expired", id))
		return
	}
	if err != nil {
		s.logger.Error("Job lookup failed",
			slog.String("request_id", id),
			slog.String("error", err.Error()),
		)
		s.writeError(w, http.StatusInternalServerError, "failed to look up job")
		return
	}

	s.writeData(w, http.StatusOK, map[string]any{
		"request_id": id,
		"job":        rec,
	})
}

// writeTranscribeError maps pipeline failures onto HTTP statuses
func (s *Server) writeTranscribeError(w http.ResponseWriter, mediaURL string, err error) {
	s.logger.Error("Transcription failed",
		slog.String("media_url", mediaURL),
		slog.String("error", err.Error()),
	)

	switch {
	case errors.Is(err, fetch.ErrTooLarge):
		s.writeError(w, http.StatusRequestEntityTooLarge, "media file too large", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, "transcription exceeded the processing deadline", err.Error())
	case errors.Is(err, engine.ErrContextUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, "transcription engine unavailable", err.Error())
	case pipeline.IsTransient(err):
		s.writeError(w, http.StatusServiceUnavailable, "transcription failed, retry may succeed", err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, "transcription failed", err.Error())
	}
}

// handleHealth implements the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	engineStats := s.adapter.Stats()

	status := "healthy"
	httpStatus := http.StatusOK
	if s.adapter.State() != engine.StateReady {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	s.writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
		"service": map[string]any{
			"name":    "speech-to-text",
			"version": "1.0.0",
		},
		"components": map[string]any{
			"engine": engineStats,
		},
	})
}

// handleConfig implements the /config endpoint. Credentials are omitted.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := map[string]any{
		"http": map[string]any{
			"address": s.config.HTTP.Address,
			"port":    s.config.HTTP.Port,
		},
		"audio": map[string]any{
			"sample_rate":      s.config.Audio.SampleRate,
			"max_file_size_mb": s.config.Audio.MaxFileSizeMB,
		},
		"chunking": map[string]any{
			"enabled":      s.config.Chunking.Enabled,
			"duration":     s.config.Chunking.Duration,
			"overlap":      s.config.Chunking.Overlap,
			"min_duration": s.config.Chunking.MinDuration,
		},
		"engine": map[string]any{
			"backend":      s.config.Engine.Backend,
			"model_path":   s.config.Engine.ModelPath,
			"language":     s.config.Engine.Language,
			"n_threads":    s.config.Engine.NThreads,
			"call_timeout": s.config.Engine.CallTimeout,
		},
		"timeout": map[string]any{
			"base_seconds": s.config.Timeout.BaseSeconds,
		},
		"jobs": map[string]any{
			"ttl_seconds": s.config.Jobs.TTLSeconds,
			"workers":     s.config.Jobs.Workers,
		},
		"logging": map[string]any{
			"level":  s.config.Logging.Level,
			"format": s.config.Logging.Format,
		},
	}

	s.writeJSON(w, http.StatusOK, cfg)
}

// handleStats implements the /stats endpoint
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"uptime":    time.Since(s.startTime).String(),
		"timestamp": time.Now().UTC(),
		"engine":    s.adapter.Stats(),
	})
}

// handleRoot implements the / endpoint with API documentation
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"service": "Speech-to-Text Service",
		"version": "1.0.0",
		"endpoints": map[string]any{
			"POST /api/v1/transcribe-sync":        "Transcribe a media URL synchronously",
			"POST /api/v1/transcribe":             "Submit an asynchronous transcription job",
			"GET /api/v1/transcribe/{request_id}": "Get job status and result",
			"GET /health":                         "Service health check",
			"GET /config":                         "Get service configuration",
			"GET /stats":                          "Get service statistics",
			"GET /metrics":                        "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	})
}
