package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate, got: %v", err)
	}

	if cfg.Audio.TargetSampleRate != 16000 {
		t.Errorf("expected target sample rate 16000, got %d", cfg.Audio.TargetSampleRate)
	}

	if cfg.Audio.ChunkSize != 512 {
		t.Errorf("expected chunk size 512, got %d", cfg.Audio.ChunkSize)
	}

	if cfg.Audio.Format != "flac" {
		t.Errorf("expected default format flac, got %s", cfg.Audio.Format)
	}

	if cfg.VAD.SpikeFactor != 2.5 {
		t.Errorf("expected spike factor 2.5, got %f", cfg.VAD.SpikeFactor)
	}

	if cfg.VAD.SilenceLimitSecs != 2.0 {
		t.Errorf("expected silence limit 2.0, got %f", cfg.VAD.SilenceLimitSecs)
	}

	if cfg.VAD.PreRollChunks != 10 {
		t.Errorf("expected 10 pre-roll chunks, got %d", cfg.VAD.PreRollChunks)
	}

	if cfg.Video.Enabled {
		t.Error("video must be disabled by default")
	}

	if cfg.Video.BufferDurationSecs != 30.0 {
		t.Errorf("expected frame buffer window 30s, got %f", cfg.Video.BufferDurationSecs)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	yaml := `
audio:
  target_sample_rate: 8000
  format: wav
  output_directory: /tmp/recordings
vad:
  spike_factor: 3.0
video:
  enabled: true
  fps: 1.0
  camera_index: 1
`
	path := writeConfigFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Audio.TargetSampleRate != 8000 {
		t.Errorf("expected overridden sample rate 8000, got %d", cfg.Audio.TargetSampleRate)
	}

	if cfg.Audio.Format != "wav" {
		t.Errorf("expected overridden format wav, got %s", cfg.Audio.Format)
	}

	if cfg.VAD.SpikeFactor != 3.0 {
		t.Errorf("expected overridden spike factor 3.0, got %f", cfg.VAD.SpikeFactor)
	}

	// Untouched keys keep their defaults.
	if cfg.Audio.ChunkSize != 512 {
		t.Errorf("expected default chunk size 512, got %d", cfg.Audio.ChunkSize)
	}

	if cfg.VAD.ReleaseRatio != 0.25 {
		t.Errorf("expected default release ratio 0.25, got %f", cfg.VAD.ReleaseRatio)
	}

	if !cfg.Video.Enabled || cfg.Video.CameraIndex != 1 {
		t.Errorf("expected video enabled on camera 1, got enabled=%v index=%d",
			cfg.Video.Enabled, cfg.Video.CameraIndex)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "audio: [not a mapping")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "sample rate too low",
			mutate:  func(c *Config) { c.Audio.TargetSampleRate = 4000 },
			wantErr: "target_sample_rate",
		},
		{
			name:    "capture rate below target is allowed",
			mutate:  func(c *Config) { c.Audio.CaptureSampleRate = 8000 },
			wantErr: "",
		},
		{
			name:    "zero capture rate",
			mutate:  func(c *Config) { c.Audio.CaptureSampleRate = 0 },
			wantErr: "capture_sample_rate",
		},
		{
			name:    "unknown format",
			mutate:  func(c *Config) { c.Audio.Format = "mp3" },
			wantErr: "format",
		},
		{
			name:    "flac compression out of range",
			mutate:  func(c *Config) { c.Audio.FlacCompression = 9 },
			wantErr: "flac_compression",
		},
		{
			name:    "empty output directory",
			mutate:  func(c *Config) { c.Audio.OutputDirectory = "" },
			wantErr: "output_directory",
		},
		{
			name:    "spike factor not above one",
			mutate:  func(c *Config) { c.VAD.SpikeFactor = 1.0 },
			wantErr: "spike_factor",
		},
		{
			name:    "release ratio at one",
			mutate:  func(c *Config) { c.VAD.ReleaseRatio = 1.0 },
			wantErr: "release_ratio",
		},
		{
			name:    "alpha at one",
			mutate:  func(c *Config) { c.VAD.BackgroundAlpha = 1.0 },
			wantErr: "background_alpha",
		},
		{
			name:    "zero pre-roll",
			mutate:  func(c *Config) { c.VAD.PreRollChunks = 0 },
			wantErr: "pre_roll_chunks",
		},
		{
			name: "video enabled with bad fps",
			mutate: func(c *Config) {
				c.Video.Enabled = true
				c.Video.FPS = 0
			},
			wantErr: "fps",
		},
		{
			name: "video disabled skips video checks",
			mutate: func(c *Config) {
				c.Video.Enabled = false
				c.Video.FPS = 0
			},
			wantErr: "",
		},
		{
			name:    "http port out of range",
			mutate:  func(c *Config) { c.HTTP.Port = 70000 },
			wantErr: "port",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error but got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %q but got none", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()

	if got := cfg.Audio.ChunkDuration(); got != 32*time.Millisecond {
		t.Errorf("expected 32ms chunk duration for 512 samples at 16kHz, got %v", got)
	}

	if got := cfg.VAD.GetSilenceLimitDuration(); got != 2*time.Second {
		t.Errorf("expected 2s silence limit, got %v", got)
	}

	if got := cfg.Video.GetBufferDuration(); got != 30*time.Second {
		t.Errorf("expected 30s buffer duration, got %v", got)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}
