package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewStoreValidation(t *testing.T) {
	tests := []struct {
		name       string
		dir        string
		format     string
		sampleRate int
		expectErr  bool
	}{
		{"valid wav", "out", FormatWAV, 16000, false},
		{"valid flac", "out", FormatFLAC, 16000, false},
		{"empty dir", "", FormatWAV, 16000, true},
		{"unknown format", "out", "mp3", 16000, true},
		{"zero sample rate", "out", FormatWAV, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStore(tt.dir, tt.format, tt.sampleRate)
			if tt.expectErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}

func TestStoreSaveWAV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "recordings")

	store, err := NewStore(dir, FormatWAV, 16000)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	store.now = func() time.Time {
		return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	}

	samples := make([]int16, 8000)
	path, err := store.Save(samples)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if filepath.Base(path) != "250314_150926.wav" {
		t.Errorf("expected timestamp filename 250314_150926.wav, got %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}

	if len(data) != 44+2*len(samples) {
		t.Errorf("expected %d bytes on disk, got %d", 44+2*len(samples), len(data))
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("saved file does not decode: %v", err)
	}
	if rate != 16000 || len(decoded) != len(samples) {
		t.Errorf("expected 16000Hz/%d samples, got %dHz/%d", len(samples), rate, len(decoded))
	}
}

func TestStoreSaveFLAC(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, FormatFLAC, 16000)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	samples := make([]int16, 5000)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}

	path, err := store.Save(samples)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if filepath.Ext(path) != ".flac" {
		t.Errorf("expected .flac extension, got %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}

	if len(data) < 4 || string(data[0:4]) != "fLaC" {
		t.Error("saved file is missing the fLaC stream marker")
	}
}

func TestStoreSaveEmpty(t *testing.T) {
	store, err := NewStore(t.TempDir(), FormatWAV, 16000)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if _, err := store.Save(nil); err == nil {
		t.Error("expected error when saving an empty recording")
	}
}
