package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/acoustiq/speech-recorder/internal/config"
	"github.com/acoustiq/speech-recorder/internal/metrics"
	"github.com/acoustiq/speech-recorder/internal/recorder"
)

// Prometheus collectors register globally, so the test binary shares one set.
var (
	testMetricsOnce sync.Once
	testMetrics     *metrics.Metrics
)

func sharedMetrics() *metrics.Metrics {
	testMetricsOnce.Do(func() {
		testMetrics = metrics.NewMetrics()
	})
	return testMetrics
}

type idleSource struct {
	ch   chan []float32
	once sync.Once
}

func (s *idleSource) Start() error { return nil }

func (s *idleSource) Samples() <-chan []float32 { return s.ch }

func (s *idleSource) Dropped() uint64 { return 0 }
func (s *idleSource) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()

	cfg := config.Default()
	cfg.Audio.CaptureSampleRate = 16000
	cfg.Audio.Format = "wav"
	cfg.Audio.OutputDirectory = t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec, err := recorder.New(cfg, &idleSource{ch: make(chan []float32)}, nil, nil, logger, nil)
	if err != nil {
		t.Fatalf("failed to create recorder: %v", err)
	}

	return NewHTTPServer(cfg.HTTP, logger, cfg, rec, sharedMetrics())
}

func get(t *testing.T, h *HTTPServer, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t)

	rr := get(t, h, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	// Recorder was never started.
	if body["status"] != "stopped" {
		t.Errorf("expected status 'stopped', got %v", body["status"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestServer(t)

	rr := get(t, h, "/stats")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body struct {
		Pipeline recorder.Stats `json:"pipeline"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if body.Pipeline.Running {
		t.Error("expected stopped pipeline in stats")
	}
}

func TestConfigEndpointOmitsNothingSensitive(t *testing.T) {
	h := newTestServer(t)

	rr := get(t, h, "/config")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body map[string]map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if body["vad"]["spike_factor"] != 2.5 {
		t.Errorf("expected spike_factor 2.5, got %v", body["vad"]["spike_factor"])
	}
	if body["audio"]["format"] != "wav" {
		t.Errorf("expected wav format, got %v", body["audio"]["format"])
	}
}

func TestEventsEndpointEmpty(t *testing.T) {
	h := newTestServer(t)

	rr := get(t, h, "/events")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body struct {
		Count  int                    `json:"count"`
		Events []recorder.SpeechEvent `json:"events"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if body.Count != 0 || len(body.Events) != 0 {
		t.Errorf("expected no events, got %d", body.Count)
	}
}

func TestFrameEndpointsWithoutVideo(t *testing.T) {
	h := newTestServer(t)

	if rr := get(t, h, "/frames/latest"); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 with video disabled, got %d", rr.Code)
	}
	if rr := get(t, h, "/frames"); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 with video disabled, got %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/stats", nil)
	rr := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}
