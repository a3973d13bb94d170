// Package config provides configuration loading and validation for the
// speech-to-text service. It handles YAML-based configuration with struct
// validation covering the HTTP API, audio constraints, chunking, the
// transcription engine, async jobs, and logging.
package config
