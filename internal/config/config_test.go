package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:    8000,
			Address: "0.0.0.0",
		},
		Audio: AudioConfig{
			SampleRate:    16000,
			MaxFileSizeMB: 100,
		},
		Chunking: ChunkingConfig{
			Enabled:     true,
			Duration:    30.0,
			Overlap:     3.0,
			MinDuration: 2.0,
		},
		Engine: EngineConfig{
			Backend:     "library",
			ModelPath:   "models/ggml-base.bin",
			Language:    "en",
			NThreads:    0,
			CallTimeout: 300,
		},
		Timeout: TimeoutConfig{
			BaseSeconds: 60,
		},
		Jobs: JobsConfig{
			RedisAddr:  "localhost:6379",
			TTLSeconds: 3600,
			Workers:    2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "invalid http port",
			mutate:      func(c *Config) { c.HTTP.Port = 70000 },
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name:        "empty http address",
			mutate:      func(c *Config) { c.HTTP.Address = "" },
			expectError: true,
			errorMsg:    "address cannot be empty",
		},
		{
			name:        "wrong sample rate",
			mutate:      func(c *Config) { c.Audio.SampleRate = 8000 },
			expectError: true,
			errorMsg:    "sample_rate must be 16000",
		},
		{
			name:        "overlap at half duration",
			mutate:      func(c *Config) { c.Chunking.Overlap = 15.0 },
			expectError: true,
			errorMsg:    "overlap",
		},
		{
			name:        "negative overlap",
			mutate:      func(c *Config) { c.Chunking.Overlap = -1.0 },
			expectError: true,
			errorMsg:    "overlap cannot be negative",
		},
		{
			name:        "zero chunk duration",
			mutate:      func(c *Config) { c.Chunking.Duration = 0 },
			expectError: true,
			errorMsg:    "duration must be positive",
		},
		{
			name:        "unknown engine backend",
			mutate:      func(c *Config) { c.Engine.Backend = "grpc" },
			expectError: true,
			errorMsg:    "backend must be 'library' or 'process'",
		},
		{
			name:        "library backend without model",
			mutate:      func(c *Config) { c.Engine.ModelPath = "" },
			expectError: true,
			errorMsg:    "model_path cannot be empty",
		},
		{
			name: "process backend without executable",
			mutate: func(c *Config) {
				c.Engine.Backend = "process"
				c.Engine.Executable = ""
			},
			expectError: true,
			errorMsg:    "executable cannot be empty",
		},
		{
			name:        "zero call timeout",
			mutate:      func(c *Config) { c.Engine.CallTimeout = 0 },
			expectError: true,
			errorMsg:    "call_timeout must be at least 1",
		},
		{
			name:        "zero base timeout",
			mutate:      func(c *Config) { c.Timeout.BaseSeconds = 0 },
			expectError: true,
			errorMsg:    "base_seconds must be at least 1",
		},
		{
			name:        "empty redis address",
			mutate:      func(c *Config) { c.Jobs.RedisAddr = "" },
			expectError: true,
			errorMsg:    "redis_addr cannot be empty",
		},
		{
			name:        "zero job ttl",
			mutate:      func(c *Config) { c.Jobs.TTLSeconds = 0 },
			expectError: true,
			errorMsg:    "ttl_seconds must be at least 1",
		},
		{
			name:        "zero workers",
			mutate:      func(c *Config) { c.Jobs.Workers = 0 },
			expectError: true,
			errorMsg:    "workers must be at least 1",
		},
		{
			name:        "bad log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
		{
			name:        "bad log format",
			mutate:      func(c *Config) { c.Logging.Format = "xml" },
			expectError: true,
			errorMsg:    "format must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatal("Validate() succeeded, want error")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Validate() error = %q, want substring %q", err, tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	yaml := `
http:
  port: 9000
  address: "127.0.0.1"
audio:
  sample_rate: 16000
  max_file_size_mb: 50
chunking:
  enabled: true
  duration: 25.0
  overlap: 2.5
  min_duration: 1.5
engine:
  backend: "library"
  model_path: "models/ggml-base.bin"
  language: "uk"
  n_threads: 4
  call_timeout: 120
timeout:
  base_seconds: 45
jobs:
  redis_addr: "redis:6379"
  redis_db: 1
  ttl_seconds: 1800
  workers: 3
logging:
  level: "debug"
  format: "text"
  output: "stderr"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTP.Port != 9000 {
		t.Errorf("HTTP.Port = %d, want 9000", cfg.HTTP.Port)
	}
	if cfg.Chunking.Duration != 25.0 {
		t.Errorf("Chunking.Duration = %v, want 25.0", cfg.Chunking.Duration)
	}
	if cfg.Engine.Language != "uk" {
		t.Errorf("Engine.Language = %q, want %q", cfg.Engine.Language, "uk")
	}
	if cfg.Jobs.RedisDB != 1 {
		t.Errorf("Jobs.RedisDB = %d, want 1", cfg.Jobs.RedisDB)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() of missing file succeeded, want error")
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: -1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() of invalid config succeeded, want validation error")
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := validConfig()

	if got := cfg.Chunking.GetDuration(); got != 30*time.Second {
		t.Errorf("GetDuration() = %v, want 30s", got)
	}
	if got := cfg.Chunking.GetOverlap(); got != 3*time.Second {
		t.Errorf("GetOverlap() = %v, want 3s", got)
	}
	if got := cfg.Engine.GetCallTimeout(); got != 300*time.Second {
		t.Errorf("GetCallTimeout() = %v, want 300s", got)
	}
	if got := cfg.Timeout.GetBaseTimeout(); got != 60*time.Second {
		t.Errorf("GetBaseTimeout() = %v, want 60s", got)
	}
	if got := cfg.Jobs.GetTTL(); got != time.Hour {
		t.Errorf("GetTTL() = %v, want 1h", got)
	}
	if got := cfg.Audio.MaxFileSizeBytes(); got != 100*1024*1024 {
		t.Errorf("MaxFileSizeBytes() = %d, want %d", got, 100*1024*1024)
	}
}
