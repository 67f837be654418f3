package capture

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// sampleQueueDepth bounds the capture-to-consumer channel. At 48kHz the
// device delivers batches every ~10ms, so 64 slots absorb well over half a
// second of consumer stall before anything is dropped.
const sampleQueueDepth = 64

// Microphone captures mono float32 PCM from the default input device and
// forwards it in device-sized batches over a bounded channel. The device
// callback never blocks: when the consumer falls behind, batches are dropped
// and counted.
type Microphone struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	logger     *slog.Logger
	sampleRate int
	samples    chan []float32
	dropped    atomic.Uint64

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewMicrophone opens the default capture device at the given sample rate.
// Device initialization failure is fatal here; there is no capture fallback.
func NewMicrophone(sampleRate int, logger *slog.Logger) (*Microphone, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio backend: %w", err)
	}

	m := &Microphone{
		ctx:        ctx,
		logger:     logger,
		sampleRate: sampleRate,
		samples:    make(chan []float32, sampleQueueDepth),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: m.onFrames,
	})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to open capture device: %w", err)
	}
	m.device = device

	return m, nil
}

// onFrames runs on the audio thread. It copies the incoming float32 frames
// and hands them off without blocking.
func (m *Microphone) onFrames(_, pSample []byte, frameCount uint32) {
	if frameCount == 0 {
		return
	}

	batch := make([]float32, frameCount)
	for i := range batch {
		batch[i] = math.Float32frombits(binary.LittleEndian.Uint32(pSample[i*4:]))
	}

	select {
	case m.samples <- batch:
	default:
		m.dropped.Add(uint64(len(batch)))
	}
}

// Samples returns the channel of captured sample batches. Batch sizes follow
// the device period and carry no particular alignment.
func (m *Microphone) Samples() <-chan []float32 {
	return m.samples
}

// Dropped returns the total number of samples discarded because the consumer
// fell behind
func (m *Microphone) Dropped() uint64 {
	return m.dropped.Load()
}

// Start begins capturing. Calling Start on a started microphone is a no-op.
func (m *Microphone) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("microphone is closed")
	}
	if m.started {
		return nil
	}

	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	m.started = true

	m.logger.Info("Microphone capture started", "sample_rate", m.sampleRate)
	return nil
}

// Close stops the device and releases the audio backend. The samples channel
// is closed so consumers can drain and exit.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.started = false

	m.device.Uninit()
	if err := m.ctx.Uninit(); err != nil {
		m.logger.Warn("Failed to uninitialize audio backend", "error", err)
	}
	m.ctx.Free()

	close(m.samples)

	if dropped := m.dropped.Load(); dropped > 0 {
		m.logger.Warn("Capture dropped samples under backpressure", "samples", dropped)
	}
	return nil
}
