package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acoustiq/speech-recorder/internal/config"
	"github.com/acoustiq/speech-recorder/internal/metrics"
	"github.com/acoustiq/speech-recorder/internal/recorder"
)

// HTTPServer provides HTTP API endpoints for monitoring and frame retrieval
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	recorder *recorder.Recorder
	metrics  *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, rec *recorder.Recorder, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		recorder:  rec,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Pipeline statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Speech event polling endpoint
	mux.HandleFunc("/events", h.withMetrics("/events", h.handleEvents))

	// Video frame endpoints
	mux.HandleFunc("/frames/latest", h.withMetrics("/frames/latest", h.handleLatestFrame))
	mux.HandleFunc("/frames", h.withMetrics("/frames", h.handleFrames))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		h.metrics.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), duration)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.recorder.Stats()

	status := "healthy"
	if !stats.Running {
		status = "stopped"
	}

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    "speech-recorder",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"pipeline": map[string]interface{}{
				"running":          stats.Running,
				"chunks_processed": stats.Detector.ChunksProcessed,
				"dropped_samples":  stats.DroppedSamples,
			},
			"video": map[string]interface{}{
				"enabled": h.config.Video.Enabled,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"pipeline":  h.recorder.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sanitizedConfig := map[string]interface{}{
		"audio": map[string]interface{}{
			"target_sample_rate":  h.config.Audio.TargetSampleRate,
			"capture_sample_rate": h.config.Audio.CaptureSampleRate,
			"chunk_size":          h.config.Audio.ChunkSize,
			"format":              h.config.Audio.Format,
			"output_directory":    h.config.Audio.OutputDirectory,
		},
		"vad": map[string]interface{}{
			"spike_factor":          h.config.VAD.SpikeFactor,
			"stop_factor":           h.config.VAD.StopFactor,
			"release_ratio":         h.config.VAD.ReleaseRatio,
			"silence_limit_secs":    h.config.VAD.SilenceLimitSecs,
			"silence_abs_threshold": h.config.VAD.SilenceAbsThreshold,
			"min_record_seconds":    h.config.VAD.MinRecordSeconds,
			"background_alpha":      h.config.VAD.BackgroundAlpha,
			"pre_roll_chunks":       h.config.VAD.PreRollChunks,
		},
		"video": map[string]interface{}{
			"enabled":              h.config.Video.Enabled,
			"fps":                  h.config.Video.FPS,
			"width":                h.config.Video.Width,
			"height":               h.config.Video.Height,
			"buffer_duration_secs": h.config.Video.BufferDurationSecs,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"quiet":  h.config.Logging.Quiet,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleEvents implements the /events endpoint. Each call drains the pending
// speech events, so a single poller sees every event exactly once.
func (h *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events := make([]recorder.SpeechEvent, 0)
	for {
		event, ok := h.recorder.ReadSpeechEvent()
		if !ok {
			break
		}
		events = append(events, event)
	}

	response := map[string]interface{}{
		"count":     len(events),
		"events":    events,
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleLatestFrame implements the /frames/latest endpoint, serving the most
// recent camera frame as JPEG
func (h *HTTPServer) handleLatestFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.recorder.FrameBuffer() == nil {
		http.Error(w, "Video capture disabled", http.StatusNotFound)
		return
	}

	frame, ok := h.recorder.LatestFrame()
	if !ok {
		http.Error(w, "No frames buffered", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Frame-Timestamp", frame.Timestamp.UTC().Format(time.RFC3339Nano))
	w.Write(frame.Data)
}

// handleFrames implements the /frames endpoint, listing frame timestamps
// inside the requested lookback window
func (h *HTTPServer) handleFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.recorder.FrameBuffer() == nil {
		http.Error(w, "Video capture disabled", http.StatusNotFound)
		return
	}

	seconds := h.config.Video.BufferDurationSecs
	if raw := r.URL.Query().Get("seconds"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid seconds parameter", http.StatusBadRequest)
			return
		}
		seconds = parsed
	}

	frames := h.recorder.FramesForDuration(time.Duration(seconds * float64(time.Second)))

	response := map[string]interface{}{
		"count":     len(frames),
		"frames":    frames,
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Speech Recorder",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":              "API documentation",
			"GET /health":        "Service health check",
			"GET /stats":         "Pipeline statistics",
			"GET /config":        "Service configuration",
			"GET /events":        "Drain pending speech events",
			"GET /frames/latest": "Most recent camera frame (JPEG)",
			"GET /frames":        "Frame timestamps within ?seconds=N lookback",
			"GET /metrics":       "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
