package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	VAD     VADConfig     `yaml:"vad"`
	Video   VideoConfig   `yaml:"video"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// AudioConfig contains audio capture and encoding parameters
type AudioConfig struct {
	TargetSampleRate  int    `yaml:"target_sample_rate"`  // Hz, rate of saved recordings
	CaptureSampleRate int    `yaml:"capture_sample_rate"` // Hz, native microphone rate
	ChunkSize         int    `yaml:"chunk_size"`          // samples per VAD chunk
	Format            string `yaml:"format"`              // "flac" or "wav"
	FlacCompression   int    `yaml:"flac_compression"`    // 0-8
	OutputDirectory   string `yaml:"output_directory"`
}

// VADConfig contains the energy-threshold voice activity detection parameters
type VADConfig struct {
	SpikeFactor         float64 `yaml:"spike_factor"`          // onset threshold over background
	StopFactor          float64 `yaml:"stop_factor"`           // offset floor over background
	ReleaseRatio        float64 `yaml:"release_ratio"`         // offset floor over utterance peak
	SilenceLimitSecs    float64 `yaml:"silence_limit_secs"`    // trailing silence before finalize
	SilenceAbsThreshold float64 `yaml:"silence_abs_threshold"` // absolute offset floor
	MinRecordSeconds    float64 `yaml:"min_record_seconds"`    // shortest utterance worth saving
	BackgroundAlpha     float64 `yaml:"background_alpha"`      // EMA weight of the noise floor
	PreRollChunks       int     `yaml:"pre_roll_chunks"`       // chunks kept ahead of the onset
}

// VideoConfig contains camera capture and frame buffer parameters
type VideoConfig struct {
	Enabled            bool    `yaml:"enabled"`
	CameraIndex        int     `yaml:"camera_index"`
	FPS                float64 `yaml:"fps"`
	Width              int     `yaml:"width"`
	Height             int     `yaml:"height"`
	JPEGQuality        int     `yaml:"jpeg_quality"`
	BufferDurationSecs float64 `yaml:"buffer_duration_secs"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration. Quiet suppresses the
// per-utterance operational log lines without touching warnings and errors.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	Quiet  bool   `yaml:"quiet"`
}

// Default returns the configuration used when no file overrides are given
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			TargetSampleRate:  16000,
			CaptureSampleRate: 48000,
			ChunkSize:         512,
			Format:            "flac",
			FlacCompression:   5,
			OutputDirectory:   "data/recordings",
		},
		VAD: VADConfig{
			SpikeFactor:         2.5,
			StopFactor:          2.5,
			ReleaseRatio:        0.25,
			SilenceLimitSecs:    2.0,
			SilenceAbsThreshold: 0.008,
			MinRecordSeconds:    0.3,
			BackgroundAlpha:     0.95,
			PreRollChunks:       10,
		},
		Video: VideoConfig{
			Enabled:            false,
			CameraIndex:        0,
			FPS:                0.5,
			Width:              640,
			Height:             480,
			JPEGQuality:        75,
			BufferDurationSecs: 30.0,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    8900,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Video.Validate(); err != nil {
		return fmt.Errorf("video config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.TargetSampleRate < 8000 || a.TargetSampleRate > 48000 {
		return fmt.Errorf("target_sample_rate must be between 8000 and 48000 Hz, got %d", a.TargetSampleRate)
	}

	if a.CaptureSampleRate <= 0 {
		return fmt.Errorf("capture_sample_rate must be positive, got %d", a.CaptureSampleRate)
	}

	if a.ChunkSize < 64 || a.ChunkSize > 8192 {
		return fmt.Errorf("chunk_size must be between 64 and 8192 samples, got %d", a.ChunkSize)
	}

	if a.Format != "flac" && a.Format != "wav" {
		return fmt.Errorf("format must be 'flac' or 'wav', got '%s'", a.Format)
	}

	if a.FlacCompression < 0 || a.FlacCompression > 8 {
		return fmt.Errorf("flac_compression must be between 0 and 8, got %d", a.FlacCompression)
	}

	if a.OutputDirectory == "" {
		return fmt.Errorf("output_directory cannot be empty")
	}

	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	if v.SpikeFactor <= 1 {
		return fmt.Errorf("spike_factor must be greater than 1, got %f", v.SpikeFactor)
	}

	if v.StopFactor <= 0 {
		return fmt.Errorf("stop_factor must be positive, got %f", v.StopFactor)
	}

	if v.ReleaseRatio < 0 || v.ReleaseRatio >= 1 {
		return fmt.Errorf("release_ratio must be between 0 and 1 (exclusive), got %f", v.ReleaseRatio)
	}

	if v.SilenceLimitSecs <= 0 {
		return fmt.Errorf("silence_limit_secs must be positive, got %f", v.SilenceLimitSecs)
	}

	if v.SilenceAbsThreshold < 0 || v.SilenceAbsThreshold > 1 {
		return fmt.Errorf("silence_abs_threshold must be between 0 and 1, got %f", v.SilenceAbsThreshold)
	}

	if v.MinRecordSeconds < 0 {
		return fmt.Errorf("min_record_seconds cannot be negative, got %f", v.MinRecordSeconds)
	}

	if v.BackgroundAlpha <= 0 || v.BackgroundAlpha >= 1 {
		return fmt.Errorf("background_alpha must be between 0 and 1 (exclusive), got %f", v.BackgroundAlpha)
	}

	if v.PreRollChunks < 1 {
		return fmt.Errorf("pre_roll_chunks must be at least 1, got %d", v.PreRollChunks)
	}

	return nil
}

// Validate validates video configuration
func (v *VideoConfig) Validate() error {
	if !v.Enabled {
		return nil
	}

	if v.CameraIndex < 0 {
		return fmt.Errorf("camera_index cannot be negative, got %d", v.CameraIndex)
	}

	if v.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %f", v.FPS)
	}

	if v.Width < 1 || v.Height < 1 {
		return fmt.Errorf("resolution must be positive, got %dx%d", v.Width, v.Height)
	}

	if v.JPEGQuality < 1 || v.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", v.JPEGQuality)
	}

	if v.BufferDurationSecs <= 0 {
		return fmt.Errorf("buffer_duration_secs must be positive, got %f", v.BufferDurationSecs)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
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

// ChunkDuration returns the duration of one VAD chunk
func (a *AudioConfig) ChunkDuration() time.Duration {
	return time.Duration(float64(a.ChunkSize) / float64(a.TargetSampleRate) * float64(time.Second))
}

// GetSilenceLimitDuration returns the trailing silence limit as a time.Duration
func (v *VADConfig) GetSilenceLimitDuration() time.Duration {
	return time.Duration(v.SilenceLimitSecs * float64(time.Second))
}

// GetBufferDuration returns the frame buffer window as a time.Duration
func (v *VideoConfig) GetBufferDuration() time.Duration {
	return time.Duration(v.BufferDurationSecs * float64(time.Second))
}
