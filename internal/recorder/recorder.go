package recorder

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/acoustiq/speech-recorder/internal/audio"
	"github.com/acoustiq/speech-recorder/internal/config"
	"github.com/acoustiq/speech-recorder/internal/metrics"
	"github.com/acoustiq/speech-recorder/internal/vad"
	"github.com/acoustiq/speech-recorder/internal/video"
)

// eventQueueDepth bounds the speech event queue. Consumers poll; events past
// the bound are dropped and counted rather than stalling the pipeline.
const eventQueueDepth = 32

// SpeechEvent describes one utterance recording saved to disk
type SpeechEvent struct {
	Path     string    `json:"path"`
	Duration float64   `json:"duration_seconds"`
	Peak     float64   `json:"peak_volume"`
	SavedAt  time.Time `json:"saved_at"`
}

// Stats is a snapshot of the recorder pipeline for monitoring
type Stats struct {
	Running        bool                    `json:"running"`
	Detector       vad.Stats               `json:"detector"`
	DroppedSamples uint64                  `json:"dropped_samples"`
	QueuedEvents   int                     `json:"queued_events"`
	Video          *video.FrameBufferStats `json:"video,omitempty"`
}

// SampleSource produces mono float32 PCM batches. The capture package's
// Microphone implements it; tests substitute an in-memory source.
type SampleSource interface {
	Start() error
	Samples() <-chan []float32
	Dropped() uint64
	Close() error
}

// Recorder runs the speech recording pipeline: capture batches are resampled
// into fixed chunks, segmented by the voice detector, encoded off the hot
// path and announced as events.
//
// The detector and resampler are owned exclusively by the consumer goroutine;
// only snapshot state crosses goroutines, under detectorMu.
type Recorder struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	source    SampleSource
	resampler *audio.Resampler
	detector  *vad.Detector
	store     *audio.Store

	videoCapture *video.Capture
	frameBuffer  *video.FrameBuffer

	events   chan SpeechEvent
	segments chan *vad.Segment

	detectorMu    sync.Mutex
	detectorStats vad.Stats

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// New assembles the pipeline from configuration. The video capture and frame
// buffer are optional; metrics may be nil.
func New(cfg *config.Config, source SampleSource, videoCapture *video.Capture, frameBuffer *video.FrameBuffer, logger *slog.Logger, m *metrics.Metrics) (*Recorder, error) {
	resampler, err := audio.NewResampler(cfg.Audio.CaptureSampleRate, cfg.Audio.TargetSampleRate, cfg.Audio.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	detector, err := vad.New(vad.Config{
		SampleRate:          cfg.Audio.TargetSampleRate,
		ChunkSize:           cfg.Audio.ChunkSize,
		SpikeFactor:         cfg.VAD.SpikeFactor,
		StopFactor:          cfg.VAD.StopFactor,
		ReleaseRatio:        cfg.VAD.ReleaseRatio,
		SilenceLimitSecs:    cfg.VAD.SilenceLimitSecs,
		SilenceAbsThreshold: cfg.VAD.SilenceAbsThreshold,
		MinRecordSeconds:    cfg.VAD.MinRecordSeconds,
		BackgroundAlpha:     cfg.VAD.BackgroundAlpha,
		PreRollChunks:       cfg.VAD.PreRollChunks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create voice detector: %w", err)
	}

	store, err := audio.NewStore(cfg.Audio.OutputDirectory, cfg.Audio.Format, cfg.Audio.TargetSampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording store: %w", err)
	}

	return &Recorder{
		cfg:          cfg,
		logger:       logger,
		metrics:      m,
		source:       source,
		resampler:    resampler,
		detector:     detector,
		store:        store,
		videoCapture: videoCapture,
		frameBuffer:  frameBuffer,
		events:       make(chan SpeechEvent, eventQueueDepth),
		segments:     make(chan *vad.Segment, 4),
	}, nil
}

// Start launches the pipeline goroutines and begins capturing. Calling Start
// on a running recorder is a no-op.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	if err := r.source.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	r.wg.Add(2)
	go r.consume()
	go r.write()

	if r.videoCapture != nil {
		r.videoCapture.Start()
	}

	r.running = true
	r.logger.Info("Recorder started",
		"capture_rate", r.cfg.Audio.CaptureSampleRate,
		"target_rate", r.cfg.Audio.TargetSampleRate,
		"chunk_size", r.cfg.Audio.ChunkSize,
		"format", r.cfg.Audio.Format,
		"output_dir", r.cfg.Audio.OutputDirectory)
	return nil
}

// Stop halts capture and waits for the pipeline to drain. An utterance still
// in progress is discarded. Calling Stop on a stopped recorder is a no-op.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	// Closing the source closes its sample channel, which unwinds the
	// consumer and, through the segment channel, the writer.
	if err := r.source.Close(); err != nil {
		r.logger.Warn("Failed to close capture source", "error", err)
	}
	r.wg.Wait()

	if r.videoCapture != nil {
		r.videoCapture.Stop()
	}

	r.running = false
	r.logger.Info("Recorder stopped")
}

// consume owns the resampler and detector. It drains capture batches, cuts
// them into fixed chunks and advances the detector state machine.
func (r *Recorder) consume() {
	defer r.wg.Done()
	defer close(r.segments)

	wasActive := false
	var reportedDrops uint64
	for batch := range r.source.Samples() {
		// Publish capture backpressure drops as deltas.
		if r.metrics != nil {
			if dropped := r.source.Dropped(); dropped > reportedDrops {
				r.metrics.RecordSamplesDropped(int(dropped - reportedDrops))
				reportedDrops = dropped
			}
		}

		for _, chunk := range r.resampler.Push(batch) {
			segment := r.detector.ProcessChunk(chunk)

			if r.metrics != nil {
				r.metrics.RecordChunkProcessed(r.detector.Background())
			}

			active := r.detector.Active()
			if active && !wasActive {
				if r.metrics != nil {
					r.metrics.RecordUtteranceStarted()
				}
				if !r.cfg.Logging.Quiet {
					r.logger.Info("Utterance started", "background", r.detector.Background())
				}
			}
			wasActive = active

			r.snapshotDetector()

			if segment != nil {
				r.segments <- segment
			}
		}
	}

	if r.detector.Active() {
		r.detector.Abort()
		if r.metrics != nil {
			r.metrics.RecordUtteranceDiscarded()
		}
		r.logger.Warn("Discarded utterance in progress at shutdown")
	}
	r.snapshotDetector()
}

// write encodes and saves finalized segments, keeping disk and codec latency
// off the capture path.
func (r *Recorder) write() {
	defer r.wg.Done()

	for segment := range r.segments {
		start := time.Now()
		path, err := r.store.Save(segment.Samples)
		if err != nil {
			r.logger.Error("Failed to save recording",
				"duration", segment.Duration,
				"error", err)
			if r.metrics != nil {
				r.metrics.RecordEncodeFailure()
			}
			continue
		}

		elapsed := time.Since(start)
		if r.metrics != nil {
			r.metrics.RecordUtteranceSaved(segment.Duration, elapsed.Seconds())
		}
		if !r.cfg.Logging.Quiet {
			r.logger.Info("Recording saved",
				"path", path,
				"duration", fmt.Sprintf("%.2fs", segment.Duration),
				"peak", fmt.Sprintf("%.4f", segment.Peak),
				"encode_time", elapsed)
		}

		r.publish(SpeechEvent{
			Path:     path,
			Duration: segment.Duration,
			Peak:     segment.Peak,
			SavedAt:  time.Now(),
		})
	}
}

// publish enqueues an event without blocking, dropping it when the queue is
// full
func (r *Recorder) publish(event SpeechEvent) {
	select {
	case r.events <- event:
	default:
		if r.metrics != nil {
			r.metrics.RecordEventDropped()
		}
		r.logger.Warn("Event queue full, dropping speech event", "path", event.Path)
	}
}

// ReadSpeechEvent polls the event queue without blocking. It returns false
// when no event is pending.
func (r *Recorder) ReadSpeechEvent() (SpeechEvent, bool) {
	select {
	case event := <-r.events:
		return event, true
	default:
		return SpeechEvent{}, false
	}
}

func (r *Recorder) snapshotDetector() {
	stats := r.detector.Stats()

	r.detectorMu.Lock()
	r.detectorStats = stats
	r.detectorMu.Unlock()
}

// FrameBuffer returns the video frame buffer, or nil when video is disabled
func (r *Recorder) FrameBuffer() *video.FrameBuffer {
	return r.frameBuffer
}

// LatestFrame returns the most recent camera frame. It returns false when
// video is disabled or nothing is buffered.
func (r *Recorder) LatestFrame() (video.Frame, bool) {
	if r.frameBuffer == nil {
		return video.Frame{}, false
	}
	return r.frameBuffer.Latest()
}

// FramesForDuration returns the frames captured within the given lookback,
// oldest first. It returns nil when video is disabled.
func (r *Recorder) FramesForDuration(age time.Duration) []video.Frame {
	if r.frameBuffer == nil {
		return nil
	}
	return r.frameBuffer.FramesSince(age)
}

// Stats returns a snapshot of the pipeline state
func (r *Recorder) Stats() Stats {
	r.detectorMu.Lock()
	detectorStats := r.detectorStats
	r.detectorMu.Unlock()

	r.mu.Lock()
	running := r.running
	r.mu.Unlock()

	stats := Stats{
		Running:        running,
		Detector:       detectorStats,
		DroppedSamples: r.source.Dropped(),
		QueuedEvents:   len(r.events),
	}

	if r.frameBuffer != nil {
		videoStats := r.frameBuffer.Stats()
		stats.Video = &videoStats
	}
	return stats
}
