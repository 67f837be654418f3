package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Supported recording formats.
const (
	FormatFLAC = "flac"
	FormatWAV  = "wav"
)

// Store persists finished recordings as timestamp-named files in a single
// output directory, creating the directory on first use.
type Store struct {
	dir        string
	format     string
	sampleRate int

	now func() time.Time
}

// NewStore creates a store writing files of the given format ("flac" or "wav")
func NewStore(dir, format string, sampleRate int) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}

	if format != FormatFLAC && format != FormatWAV {
		return nil, fmt.Errorf("unsupported format '%s'", format)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	return &Store{
		dir:        dir,
		format:     format,
		sampleRate: sampleRate,
		now:        time.Now,
	}, nil
}

// Format returns the file format the store writes
func (s *Store) Format() string {
	return s.format
}

// Save encodes the samples and writes them to <dir>/<YYMMDD_HHMMSS>.<ext>,
// returning the path of the written file.
func (s *Store) Save(samples []int16) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("cannot save empty recording")
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", s.dir, err)
	}

	filename := s.now().Format("060102_150405") + "." + s.format
	path := filepath.Join(s.dir, filename)

	switch s.format {
	case FormatWAV:
		data, err := EncodeWAV(samples, s.sampleRate)
		if err != nil {
			return "", fmt.Errorf("failed to encode WAV: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}

	case FormatFLAC:
		file, err := os.Create(path)
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := EncodeFLAC(file, samples, s.sampleRate); err != nil {
			file.Close()
			os.Remove(path)
			return "", fmt.Errorf("failed to encode FLAC: %w", err)
		}
		if err := file.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("failed to close %s: %w", path, err)
		}
	}

	return path, nil
}
