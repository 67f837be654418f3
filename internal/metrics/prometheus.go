package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the speech recorder
type Metrics struct {
	// Audio pipeline metrics
	ChunksProcessed prometheus.Counter
	SamplesDropped  prometheus.Counter
	BackgroundLevel prometheus.Gauge

	// Utterance metrics
	UtterancesStarted   prometheus.Counter
	UtterancesSaved     prometheus.Counter
	UtterancesDiscarded prometheus.Counter
	UtteranceDuration   prometheus.Histogram
	EncodeFailures      prometheus.Counter
	EncodeDuration      prometheus.Histogram

	// Video metrics
	FramesCaptured  prometheus.Counter
	FrameErrors     prometheus.Counter
	FrameBufferSize prometheus.Gauge

	// Event queue metrics
	EventsDropped prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Audio pipeline metrics
		ChunksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_chunks_processed_total",
			Help: "Total number of audio chunks fed through voice detection",
		}),
		SamplesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_samples_dropped_total",
			Help: "Total number of captured samples dropped due to backpressure",
		}),
		BackgroundLevel: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "recorder_background_level",
			Help: "Current adaptive background noise estimate (normalized RMS)",
		}),

		// Utterance metrics
		UtterancesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_utterances_started_total",
			Help: "Total number of utterance recordings started",
		}),
		UtterancesSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_utterances_saved_total",
			Help: "Total number of utterance recordings saved to disk",
		}),
		UtterancesDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_utterances_discarded_total",
			Help: "Total number of in-progress utterances discarded",
		}),
		UtteranceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_utterance_duration_seconds",
			Help:    "Duration of finalized utterance recordings",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~2 minutes
		}),
		EncodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_encode_failures_total",
			Help: "Total number of recordings that failed to encode or save",
		}),
		EncodeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_encode_duration_seconds",
			Help:    "Time spent encoding and writing recordings",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),

		// Video metrics
		FramesCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_frames_captured_total",
			Help: "Total number of video frames captured",
		}),
		FrameErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_frame_errors_total",
			Help: "Total number of camera read or encode errors",
		}),
		FrameBufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "recorder_frame_buffer_size",
			Help: "Current number of frames held in the time-windowed buffer",
		}),

		// Event queue metrics
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_events_dropped_total",
			Help: "Total number of speech events dropped from the full event queue",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recorder_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recorder_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordChunkProcessed increments the chunk counter and updates the
// background gauge
func (m *Metrics) RecordChunkProcessed(background float64) {
	m.ChunksProcessed.Inc()
	m.BackgroundLevel.Set(background)
}

// RecordSamplesDropped counts samples discarded under backpressure
func (m *Metrics) RecordSamplesDropped(count int) {
	m.SamplesDropped.Add(float64(count))
}

// RecordUtteranceStarted increments the utterances started counter
func (m *Metrics) RecordUtteranceStarted() {
	m.UtterancesStarted.Inc()
}

// RecordUtteranceSaved records a recording written to disk
func (m *Metrics) RecordUtteranceSaved(durationSeconds, encodeSeconds float64) {
	m.UtterancesSaved.Inc()
	m.UtteranceDuration.Observe(durationSeconds)
	m.EncodeDuration.Observe(encodeSeconds)
}

// RecordUtteranceDiscarded increments the discarded utterances counter
func (m *Metrics) RecordUtteranceDiscarded() {
	m.UtterancesDiscarded.Inc()
}

// RecordEncodeFailure increments the encode failures counter
func (m *Metrics) RecordEncodeFailure() {
	m.EncodeFailures.Inc()
}

// RecordFrameCaptured records a captured frame and the resulting buffer size
func (m *Metrics) RecordFrameCaptured(bufferSize int) {
	m.FramesCaptured.Inc()
	m.FrameBufferSize.Set(float64(bufferSize))
}

// RecordFrameError increments the frame errors counter
func (m *Metrics) RecordFrameError() {
	m.FrameErrors.Inc()
}

// RecordEventDropped increments the dropped events counter
func (m *Metrics) RecordEventDropped() {
	m.EventsDropped.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
