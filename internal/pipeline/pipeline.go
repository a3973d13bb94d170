package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nguyentantai21042004/speech-to-text/internal/audio"
	"github.com/nguyentantai21042004/speech-to-text/internal/engine"
	"github.com/nguyentantai21042004/speech-to-text/internal/metrics"
)

// ErrAllChunksFailed means every viable chunk errored during inference.
// Treated as transient: the engine was reachable but persistently
// unhealthy, so a later resubmission may succeed.
var ErrAllChunksFailed = errors.New("all audio chunks failed to transcribe")

// baseConfidence is reported for a fully successful transcription. The
// engine does not expose a usable per-token confidence, so the score is
// scaled down by the fraction of chunks that failed.
const baseConfidence = 0.98

// Transcriber is the engine surface the pipeline needs
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, language string) (string, error)
}

// Config controls chunking behavior
type Config struct {
	ChunkingEnabled  bool
	ChunkDuration    float64 // seconds
	ChunkOverlap     float64 // seconds
	MinChunkDuration float64 // seconds
}

// Result is the outcome of transcribing one audio buffer
type Result struct {
	Text           string  `json:"text"`
	Duration       float64 `json:"duration"`
	Confidence     float64 `json:"confidence"`
	ProcessingTime float64 `json:"processing_time"`
	ChunksTotal    int     `json:"chunks_total"`
	ChunksFailed   int     `json:"chunks_failed"`
}

// Pipeline runs the chunk/validate/transcribe/merge sequence
type Pipeline struct {
	engine  Transcriber
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Pipeline
func New(eng Transcriber, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		engine:  eng,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// Transcribe converts a decoded buffer to text. Chunks are processed
// sequentially: the engine context is exclusive, so parallel chunk
// submission would only queue on its lock. A single failed chunk is
// absorbed into the result; errors are returned only when nothing could
// be transcribed at all or the engine itself is unavailable.
func (p *Pipeline) Transcribe(ctx context.Context, buf *audio.Buffer, language string) (*Result, error) {
	start := time.Now()
	duration := buf.Duration()
	p.metrics.RecordAudio(duration)

	if !p.cfg.ChunkingEnabled || duration <= p.cfg.ChunkDuration {
		return p.transcribeWhole(ctx, buf, language, start)
	}

	chunks, err := audio.Segment(buf, audio.SegmentConfig{
		ChunkDuration:    p.cfg.ChunkDuration,
		ChunkOverlap:     p.cfg.ChunkOverlap,
		MinChunkDuration: p.cfg.MinChunkDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to segment audio: %w", err)
	}

	p.logger.Info("Processing audio in chunks",
		slog.Float64("duration", duration),
		slog.Int("chunks", len(chunks)),
	)

	var (
		texts       []string
		transcribed int
		failed      int
	)

	for _, chunk := range chunks {
		// The engine does not observe ctx mid-call, so the deadline is
		// honored at chunk boundaries
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		class, stats := audio.Classify(chunk.Samples)
		if class != audio.Viable {
			p.logger.Warn("Skipping non-viable chunk",
				slog.Int("chunk", chunk.Index),
				slog.String("classification", class.String()),
				slog.Float64("max_amplitude", stats.MaxAmplitude),
				slog.Float64("std_dev", stats.StdDev),
			)
			p.metrics.RecordChunk("skipped", chunk.Duration())
			continue
		}

		transcribed++
		text, err := p.transcribeChunk(ctx, chunk, language)
		if err != nil {
			if engine.IsTransient(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			p.logger.Error("Chunk transcription failed",
				slog.Int("chunk", chunk.Index),
				slog.String("error", err.Error()),
			)
			p.metrics.RecordChunk("failed", chunk.Duration())
			failed++
			continue
		}

		p.metrics.RecordChunk("transcribed", chunk.Duration())
		texts = append(texts, text)
	}

	if transcribed > 0 && failed == transcribed {
		return nil, ErrAllChunksFailed
	}

	mergeStart := time.Now()
	text := MergeTexts(texts)
	p.metrics.RecordMerge(time.Since(mergeStart))

	return &Result{
		Text:           text,
		Duration:       duration,
		Confidence:     confidence(transcribed, failed),
		ProcessingTime: time.Since(start).Seconds(),
		ChunksTotal:    len(chunks),
		ChunksFailed:   failed,
	}, nil
}

// transcribeWhole handles audio short enough to skip chunking. The
// single-chunk failure taxonomy differs from the multi-chunk path: with
// nothing to absorb the failure into, any engine error fails the call.
func (p *Pipeline) transcribeWhole(ctx context.Context, buf *audio.Buffer, language string, start time.Time) (*Result, error) {
	duration := buf.Duration()

	class, stats := audio.Classify(buf.Samples)
	if class != audio.Viable {
		p.logger.Warn("Audio content not viable, returning empty transcription",
			slog.String("classification", class.String()),
			slog.Float64("max_amplitude", stats.MaxAmplitude),
			slog.Float64("std_dev", stats.StdDev),
		)
		p.metrics.RecordChunk("skipped", duration)
		return &Result{
			Duration:       duration,
			ProcessingTime: time.Since(start).Seconds(),
			ChunksTotal:    1,
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	callStart := time.Now()
	text, err := p.engine.Transcribe(ctx, buf.Samples, language)
	if err != nil {
		p.recordEngineError(err, callStart)
		return nil, err
	}
	p.metrics.RecordEngineCall("success", time.Since(callStart))
	p.metrics.RecordChunk("transcribed", duration)

	return &Result{
		Text:           text,
		Duration:       duration,
		Confidence:     baseConfidence,
		ProcessingTime: time.Since(start).Seconds(),
		ChunksTotal:    1,
	}, nil
}

func (p *Pipeline) transcribeChunk(ctx context.Context, chunk audio.Chunk, language string) (string, error) {
	callStart := time.Now()
	text, err := p.engine.Transcribe(ctx, chunk.Samples, language)
	if err != nil {
		p.recordEngineError(err, callStart)
		return "", err
	}
	p.metrics.RecordEngineCall("success", time.Since(callStart))
	return text, nil
}

func (p *Pipeline) recordEngineError(err error, callStart time.Time) {
	if errors.Is(err, engine.ErrCallTimeout) {
		p.metrics.RecordEngineCall("timeout", time.Since(callStart))
		p.metrics.RecordEngineTimeout()
		return
	}
	p.metrics.RecordEngineCall("error", time.Since(callStart))
}

// confidence scales the base score by the fraction of viable chunks that
// transcribed successfully. With no viable chunks there is no text and
// no basis for a score.
func confidence(transcribed, failed int) float64 {
	if transcribed == 0 {
		return 0
	}
	return baseConfidence * float64(transcribed-failed) / float64(transcribed)
}

// IsTransient reports whether a pipeline error may succeed on resubmission
func IsTransient(err error) bool {
	return engine.IsTransient(err) || errors.Is(err, ErrAllChunksFailed)
}
