package vad

import (
	"fmt"
	"math"
)

// initialBackground seeds the noise floor before any chunk has been observed.
const initialBackground = 0.01

// Config contains the detector tuning parameters. All volumes are RMS values
// of samples normalized to [-1, 1].
type Config struct {
	SampleRate          int     // Hz
	ChunkSize           int     // samples per chunk
	SpikeFactor         float64 // onset: volume must exceed background * SpikeFactor
	StopFactor          float64 // offset floor relative to background
	ReleaseRatio        float64 // offset floor relative to the utterance peak
	SilenceLimitSecs    float64 // trailing quiet needed to finalize
	SilenceAbsThreshold float64 // absolute offset floor
	MinRecordSeconds    float64 // recordings shorter than this keep accumulating
	BackgroundAlpha     float64 // EMA weight of the previous background estimate
	PreRollChunks       int     // chunks retained ahead of the onset
}

// Segment is a completed utterance: the full PCM buffer including pre-roll
// and trailing silence, plus the loudest chunk volume observed.
type Segment struct {
	Samples  []int16
	Peak     float64
	Duration float64 // seconds
}

// Stats is a snapshot of the detector state for monitoring
type Stats struct {
	Active          bool    `json:"active"`
	Background      float64 `json:"background_level"`
	RecordedSeconds float64 `json:"recorded_seconds"`
	ChunksProcessed uint64  `json:"chunks_processed"`
	Utterances      uint64  `json:"utterances_finalized"`
}

// Detector segments a chunked PCM stream into discrete utterances using an
// adaptive energy threshold with onset/offset hysteresis.
//
// The detector is not safe for concurrent use: it is designed to be owned by
// a single goroutine that feeds it one chunk at a time.
type Detector struct {
	cfg           Config
	chunkDuration float64 // seconds

	active         bool
	background     float64
	peak           float64
	silentDuration float64
	recording      []int16
	preRoll        *chunkRing

	chunksProcessed uint64
	utterances      uint64
}

// New creates a detector with the given configuration
func New(cfg Config) (*Detector, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}

	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}

	if cfg.SpikeFactor <= 1 {
		return nil, fmt.Errorf("spike factor must be greater than 1, got %f", cfg.SpikeFactor)
	}

	if cfg.BackgroundAlpha <= 0 || cfg.BackgroundAlpha >= 1 {
		return nil, fmt.Errorf("background alpha must be between 0 and 1 (exclusive), got %f", cfg.BackgroundAlpha)
	}

	if cfg.PreRollChunks < 1 {
		return nil, fmt.Errorf("pre-roll capacity must be at least 1, got %d", cfg.PreRollChunks)
	}

	return &Detector{
		cfg:           cfg,
		chunkDuration: float64(cfg.ChunkSize) / float64(cfg.SampleRate),
		background:    initialBackground,
		preRoll:       newChunkRing(cfg.PreRollChunks),
	}, nil
}

// ProcessChunk classifies one fixed-size chunk and advances the state
// machine. It returns a completed Segment when an utterance finalizes,
// nil otherwise.
func (d *Detector) ProcessChunk(chunk []int16) *Segment {
	volume := rms(chunk)
	d.chunksProcessed++

	if !d.active {
		d.processIdle(chunk, volume)
		return nil
	}

	return d.processActive(chunk, volume)
}

// processIdle tracks the noise floor and watches for an onset spike. The
// background estimate only moves while idle; it stays frozen for the whole
// active interval.
func (d *Detector) processIdle(chunk []int16, volume float64) {
	d.background = d.cfg.BackgroundAlpha*d.background + (1-d.cfg.BackgroundAlpha)*volume

	d.preRoll.push(chunk)

	if volume > d.background*d.cfg.SpikeFactor {
		d.active = true
		d.recording = d.recording[:0]
		d.silentDuration = 0
		d.peak = volume

		// Seed the recording with the buffered pre-roll so the utterance
		// onset is not clipped, then the triggering chunk itself.
		d.preRoll.appendTo(&d.recording)
		d.recording = append(d.recording, chunk...)
	}
}

func (d *Detector) processActive(chunk []int16, volume float64) *Segment {
	d.recording = append(d.recording, chunk...)

	if volume > d.peak {
		d.peak = volume
	}

	// The release bar rises with the utterance's own peak but never drops
	// below the absolute/ambient floor, so a loud word followed by a brief
	// dip does not cut the recording.
	stopThreshold := math.Max(d.cfg.SilenceAbsThreshold, d.background*d.cfg.StopFactor)
	releaseThreshold := math.Max(stopThreshold, d.peak*d.cfg.ReleaseRatio)

	if volume < releaseThreshold {
		d.silentDuration += d.chunkDuration
	} else {
		d.silentDuration = 0
	}

	recordedDuration := float64(len(d.recording)) / float64(d.cfg.SampleRate)

	if d.silentDuration >= d.cfg.SilenceLimitSecs && recordedDuration >= d.cfg.MinRecordSeconds {
		return d.finalize(recordedDuration)
	}

	return nil
}

// finalize hands the accumulated buffer off and resets to idle. The
// background estimate is left untouched; it resumes updating from the next
// idle chunk.
func (d *Detector) finalize(duration float64) *Segment {
	samples := make([]int16, len(d.recording))
	copy(samples, d.recording)

	segment := &Segment{
		Samples:  samples,
		Peak:     d.peak,
		Duration: duration,
	}
	d.utterances++

	d.reset()
	return segment
}

// reset returns the detector to idle, discarding any accumulated recording
func (d *Detector) reset() {
	d.active = false
	d.recording = d.recording[:0]
	d.silentDuration = 0
	d.peak = 0
}

// Abort discards an in-progress utterance without emitting a segment
func (d *Detector) Abort() {
	d.reset()
}

// Active reports whether an utterance is currently being recorded
func (d *Detector) Active() bool {
	return d.active
}

// Background returns the current noise floor estimate
func (d *Detector) Background() float64 {
	return d.background
}

// Stats returns a snapshot of the detector state. The caller is responsible
// for synchronizing access with ProcessChunk.
func (d *Detector) Stats() Stats {
	return Stats{
		Active:          d.active,
		Background:      d.background,
		RecordedSeconds: float64(len(d.recording)) / float64(d.cfg.SampleRate),
		ChunksProcessed: d.chunksProcessed,
		Utterances:      d.utterances,
	}
}

// rms computes the root-mean-square volume of a chunk with samples
// normalized to [-1, 1], accumulating in double precision.
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sumSquares float64
	for _, s := range samples {
		normalized := float64(s) / 32767.0
		sumSquares += normalized * normalized
	}

	return math.Sqrt(sumSquares / float64(len(samples)))
}
