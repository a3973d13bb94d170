package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/nguyentantai21042004/speech-to-text/internal/audio"
	"github.com/nguyentantai21042004/speech-to-text/internal/config"
	"github.com/nguyentantai21042004/speech-to-text/internal/pipeline"
)

// fakeDownloader writes pre-encoded WAV bytes to the destination path
type fakeDownloader struct {
	data []byte
}

func (f *fakeDownloader) Fetch(ctx context.Context, mediaURL, dest string) (int64, error) {
	if err := os.WriteFile(dest, f.data, 0644); err != nil {
		return 0, err
	}
	return int64(len(f.data)), nil
}

// fakeTranscriber records the deadline of the context it was called with
type fakeTranscriber struct {
	gotDeadline bool
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, buf *audio.Buffer, language string) (*pipeline.Result, error) {
	_, f.gotDeadline = ctx.Deadline()
	return &pipeline.Result{Text: "ok", Duration: buf.Duration()}, nil
}

func testTranscribeConfig() *config.Config {
	return &config.Config{
		Audio:   config.AudioConfig{SampleRate: 16000, MaxFileSizeMB: 100},
		Timeout: config.TimeoutConfig{BaseSeconds: 60},
	}
}

func testWAV(t *testing.T) []byte {
	t.Helper()

	data, err := audio.EncodeWAV(make([]float32, 16000), 16000)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	return data
}

func TestTranscribeFuncBoundedDeadline(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	downloader := &fakeDownloader{data: testWAV(t)}

	tests := []struct {
		name         string
		bounded      bool
		wantDeadline bool
	}{
		// Synchronous requests carry the adaptive deadline
		{"bounded sets a deadline", true, true},
		// Async jobs must never be cancelled by the processing
		// allowance; they run on an undecorated context
		{"unbounded leaves the context bare", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipe := &fakeTranscriber{}
			transcribe := newTranscribeFunc(testTranscribeConfig(), downloader, pipe, logger, tt.bounded)

			result, err := transcribe(context.Background(), "http://example.com/a.wav", "en")
			if err != nil {
				t.Fatalf("transcribe() error = %v", err)
			}
			if result.Text != "ok" {
				t.Errorf("Text = %q, want %q", result.Text, "ok")
			}
			if pipe.gotDeadline != tt.wantDeadline {
				t.Errorf("context deadline present = %v, want %v", pipe.gotDeadline, tt.wantDeadline)
			}
		})
	}
}
