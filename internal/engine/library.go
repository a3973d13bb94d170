package engine

import (
	"fmt"
	"io"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// libraryBackend runs inference in-process through the whisper.cpp Go
// bindings. The loaded model is the process-wide native context; it is
// created once and reused for every call.
type libraryBackend struct {
	model    whisper.Model
	nThreads int
}

// newLibraryBackend loads the ggml model from disk
func newLibraryBackend(cfg Config) (*libraryBackend, error) {
	model, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model %q: %w", cfg.ModelPath, err)
	}

	return &libraryBackend{
		model:    model,
		nThreads: cfg.Threads(),
	}, nil
}

// Transcribe runs whisper inference over the samples and joins the
// resulting segments
func (b *libraryBackend) Transcribe(samples []float32, language string) (string, error) {
	ctx, err := b.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("failed to create whisper context: %w", err)
	}

	if language != "" {
		if err := ctx.SetLanguage(language); err != nil {
			return "", fmt.Errorf("failed to set language %q: %w", language, err)
		}
	}
	ctx.SetThreads(uint(b.nThreads))

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper inference failed: %w", err)
	}

	var parts []string
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read whisper segment: %w", err)
		}
		parts = append(parts, seg.Text)
	}

	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

// Close releases the model
func (b *libraryBackend) Close() error {
	if b.model != nil {
		return b.model.Close()
	}
	return nil
}
