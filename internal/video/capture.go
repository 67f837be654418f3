package video

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/acoustiq/speech-recorder/internal/metrics"
)

// readErrorBackoff is how long the capture loop sleeps after a failed camera
// read before retrying.
const readErrorBackoff = 100 * time.Millisecond

// FrameSource produces raw camera frames. Implementations are expected to
// block until the next frame is available.
type FrameSource interface {
	ReadFrame() (image.Image, error)
	Close() error
}

// CaptureConfig contains capture loop parameters
type CaptureConfig struct {
	FPS         float64
	JPEGQuality int
}

// Capture polls a frame source at a fixed rate, JPEG-encodes each frame and
// pushes it into a FrameBuffer. Camera errors are logged and retried; they
// never stop the loop.
type Capture struct {
	cfg     CaptureConfig
	source  FrameSource
	buffer  *FrameBuffer
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewCapture creates a capture loop over the given source and buffer.
// Metrics may be nil.
func NewCapture(cfg CaptureConfig, source FrameSource, buffer *FrameBuffer, logger *slog.Logger, m *metrics.Metrics) (*Capture, error) {
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %f", cfg.FPS)
	}

	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return nil, fmt.Errorf("jpeg quality must be between 1 and 100, got %d", cfg.JPEGQuality)
	}

	if source == nil {
		return nil, fmt.Errorf("frame source is required")
	}

	return &Capture{
		cfg:     cfg,
		source:  source,
		buffer:  buffer,
		logger:  logger,
		metrics: m,
	}, nil
}

// Start launches the capture loop. Calling Start on a running capture is a
// no-op.
func (c *Capture) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.running = true

	go c.run(c.stop, c.done)

	c.logger.Info("Video capture started",
		"fps", c.cfg.FPS,
		"jpeg_quality", c.cfg.JPEGQuality)
}

// Stop halts the capture loop and closes the frame source. Calling Stop on a
// stopped capture is a no-op.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	close(c.stop)
	<-c.done
	c.running = false

	if err := c.source.Close(); err != nil {
		c.logger.Warn("Failed to close frame source", "error", err)
	}

	c.logger.Info("Video capture stopped")
}

func (c *Capture) run(stop, done chan struct{}) {
	defer close(done)

	interval := time.Duration(float64(time.Second) / c.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.captureFrame(); err != nil {
				c.logger.Warn("Frame capture failed", "error", err)
				if c.metrics != nil {
					c.metrics.RecordFrameError()
				}

				select {
				case <-stop:
					return
				case <-time.After(readErrorBackoff):
				}
			}
		}
	}
}

func (c *Capture) captureFrame() error {
	img, err := c.source.ReadFrame()
	if err != nil {
		return fmt.Errorf("failed to read frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.cfg.JPEGQuality}); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	c.buffer.Push(buf.Bytes())
	if c.metrics != nil {
		c.metrics.RecordFrameCaptured(c.buffer.Size())
	}
	return nil
}
