package engine

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nguyentantai21042004/speech-to-text/internal/audio"
)

// processBackend shells out to a whisper-cli binary, the legacy fallback
// for deployments where the shared library cannot be linked. Each call
// writes the samples to a temp WAV, runs the binary, and reads stdout.
type processBackend struct {
	executable string
	modelPath  string
	sampleRate int
	nThreads   int
	tempDir    string
}

// newProcessBackend validates the executable and model paths up front so a
// misconfiguration fails at startup, not on the first request
func newProcessBackend(cfg Config) (*processBackend, error) {
	if _, err := os.Stat(cfg.Executable); err != nil {
		return nil, fmt.Errorf("whisper executable not found at %s: %w", cfg.Executable, err)
	}

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("whisper model not found at %s: %w", cfg.ModelPath, err)
	}

	return &processBackend{
		executable: cfg.Executable,
		modelPath:  cfg.ModelPath,
		sampleRate: cfg.SampleRate,
		nThreads:   cfg.Threads(),
		tempDir:    os.TempDir(),
	}, nil
}

// Transcribe writes the samples to a temp WAV and invokes the binary
func (b *processBackend) Transcribe(samples []float32, language string) (string, error) {
	data, err := audio.EncodeWAV(samples, b.sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to encode chunk audio: %w", err)
	}

	path := filepath.Join(b.tempDir, fmt.Sprintf("stt_%s.wav", uuid.NewString()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp audio file: %w", err)
	}
	defer os.Remove(path)

	args := []string{
		"-m", b.modelPath,
		"-f", path,
		"--no-timestamps",
		"-t", strconv.Itoa(b.nThreads),
	}
	if language != "" {
		args = append(args, "-l", language)
	}

	cmd := exec.Command(b.executable, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("whisper process failed with code %d: %s",
				exitErr.ExitCode(), firstLine(exitErr.Stderr))
		}
		return "", fmt.Errorf("whisper process failed: %w", err)
	}

	return strings.TrimSpace(string(out)), nil
}

// Close is a no-op; the process backend holds no persistent resources
func (b *processBackend) Close() error {
	return nil
}

func firstLine(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "no stderr output"
	}
	return s
}
