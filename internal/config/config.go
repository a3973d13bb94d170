package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Audio    AudioConfig    `yaml:"audio"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Engine   EngineConfig   `yaml:"engine"`
	Timeout  TimeoutConfig  `yaml:"timeout"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port           int      `yaml:"port"`
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AudioConfig contains audio input constraints
type AudioConfig struct {
	SampleRate    int `yaml:"sample_rate"`      // Hz, engine expects 16000
	MaxFileSizeMB int `yaml:"max_file_size_mb"` // upper bound for downloads
}

// ChunkingConfig contains long-audio segmentation parameters
type ChunkingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Duration    float64 `yaml:"duration"`     // seconds per chunk
	Overlap     float64 `yaml:"overlap"`      // seconds of overlap between chunks
	MinDuration float64 `yaml:"min_duration"` // seconds, shorter final chunks are absorbed
}

// EngineConfig contains transcription engine configuration
type EngineConfig struct {
	Backend     string `yaml:"backend"`      // "library" or "process"
	ModelPath   string `yaml:"model_path"`   // ggml model file
	Executable  string `yaml:"executable"`   // whisper-cli path (process backend)
	Language    string `yaml:"language"`     // default language hint
	NThreads    int    `yaml:"n_threads"`    // 0 = auto-detect, capped at 8
	CallTimeout int    `yaml:"call_timeout"` // seconds, bound on a single inference call
}

// TimeoutConfig contains request deadline configuration
type TimeoutConfig struct {
	BaseSeconds int `yaml:"base_seconds"`
}

// JobsConfig contains async job orchestration configuration
type JobsConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
	Workers       int    `yaml:"workers"`
}

// StorageConfig contains object storage configuration for minio:// audio URLs
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking config: %w", err)
	}

	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	if err := c.Timeout.Validate(); err != nil {
		return fmt.Errorf("timeout config: %w", err)
	}

	if err := c.Jobs.Validate(); err != nil {
		return fmt.Errorf("jobs config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz for the inference engine, got %d", a.SampleRate)
	}

	if a.MaxFileSizeMB < 1 {
		return fmt.Errorf("max_file_size_mb must be at least 1, got %d", a.MaxFileSizeMB)
	}

	return nil
}

// Validate validates chunking configuration
func (c *ChunkingConfig) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", c.Duration)
	}

	if c.Overlap < 0 {
		return fmt.Errorf("overlap cannot be negative, got %f", c.Overlap)
	}

	if c.Overlap >= c.Duration/2 {
		return fmt.Errorf("overlap (%gs) must be less than half of duration (%gs / 2 = %gs)",
			c.Overlap, c.Duration, c.Duration/2)
	}

	if c.MinDuration <= 0 {
		return fmt.Errorf("min_duration must be positive, got %f", c.MinDuration)
	}

	return nil
}

// Validate validates engine configuration
func (e *EngineConfig) Validate() error {
	switch e.Backend {
	case "library":
		if e.ModelPath == "" {
			return fmt.Errorf("model_path cannot be empty for the library backend")
		}
	case "process":
		if e.Executable == "" {
			return fmt.Errorf("executable cannot be empty for the process backend")
		}
		if e.ModelPath == "" {
			return fmt.Errorf("model_path cannot be empty for the process backend")
		}
	default:
		return fmt.Errorf("backend must be 'library' or 'process', got '%s'", e.Backend)
	}

	if e.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}

	if e.NThreads < 0 {
		return fmt.Errorf("n_threads cannot be negative, got %d", e.NThreads)
	}

	if e.CallTimeout < 1 {
		return fmt.Errorf("call_timeout must be at least 1 second, got %d", e.CallTimeout)
	}

	return nil
}

// Validate validates timeout configuration
func (t *TimeoutConfig) Validate() error {
	if t.BaseSeconds < 1 {
		return fmt.Errorf("base_seconds must be at least 1, got %d", t.BaseSeconds)
	}

	return nil
}

// Validate validates jobs configuration
func (j *JobsConfig) Validate() error {
	if j.RedisAddr == "" {
		return fmt.Errorf("redis_addr cannot be empty")
	}

	if j.RedisDB < 0 {
		return fmt.Errorf("redis_db cannot be negative, got %d", j.RedisDB)
	}

	if j.TTLSeconds < 1 {
		return fmt.Errorf("ttl_seconds must be at least 1, got %d", j.TTLSeconds)
	}

	if j.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", j.Workers)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetDuration returns the chunk duration as a time.Duration
func (c *ChunkingConfig) GetDuration() time.Duration {
	return time.Duration(c.Duration * float64(time.Second))
}

// GetOverlap returns the chunk overlap as a time.Duration
func (c *ChunkingConfig) GetOverlap() time.Duration {
	return time.Duration(c.Overlap * float64(time.Second))
}

// GetCallTimeout returns the engine call timeout as a time.Duration
func (e *EngineConfig) GetCallTimeout() time.Duration {
	return time.Duration(e.CallTimeout) * time.Second
}

// GetBaseTimeout returns the base request timeout as a time.Duration
func (t *TimeoutConfig) GetBaseTimeout() time.Duration {
	return time.Duration(t.BaseSeconds) * time.Second
}

// GetTTL returns the job record TTL as a time.Duration
func (j *JobsConfig) GetTTL() time.Duration {
	return time.Duration(j.TTLSeconds) * time.Second
}

// MaxFileSizeBytes returns the download size limit in bytes
func (a *AudioConfig) MaxFileSizeBytes() int64 {
	return int64(a.MaxFileSizeMB) * 1024 * 1024
}
