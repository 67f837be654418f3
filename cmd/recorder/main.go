package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acoustiq/speech-recorder/internal/capture"
	"github.com/acoustiq/speech-recorder/internal/config"
	"github.com/acoustiq/speech-recorder/internal/metrics"
	"github.com/acoustiq/speech-recorder/internal/recorder"
	"github.com/acoustiq/speech-recorder/internal/server"
	"github.com/acoustiq/speech-recorder/internal/video"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "speech-recorder"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	quiet := flag.Bool("quiet", false, "Suppress per-utterance log output")
	flag.Parse()

	// Load configuration; a missing default config file falls back to
	// built-in defaults, an explicitly given path must exist.
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *quiet {
		cfg.Logging.Quiet = true
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.Int("target_sample_rate", cfg.Audio.TargetSampleRate),
		slog.Int("capture_sample_rate", cfg.Audio.CaptureSampleRate),
		slog.Int("chunk_size", cfg.Audio.ChunkSize),
		slog.String("format", cfg.Audio.Format),
		slog.String("output_directory", cfg.Audio.OutputDirectory),
		slog.Float64("spike_factor", cfg.VAD.SpikeFactor),
		slog.Float64("silence_limit_secs", cfg.VAD.SilenceLimitSecs),
		slog.Bool("video_enabled", cfg.Video.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Open the microphone. No capture device is fatal.
	microphone, err := capture.NewMicrophone(cfg.Audio.CaptureSampleRate, logger)
	if err != nil {
		logger.Error("Failed to open microphone", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize video capture (if enabled)
	var videoCapture *video.Capture
	var frameBuffer *video.FrameBuffer
	if cfg.Video.Enabled {
		camera, err := capture.NewCamera(cfg.Video.CameraIndex, cfg.Video.Width, cfg.Video.Height)
		if err != nil {
			logger.Error("Failed to open camera", slog.String("error", err.Error()))
			os.Exit(1)
		}
		width, height := camera.Resolution()

		frameBuffer = video.NewFrameBuffer(cfg.Video.GetBufferDuration(), cfg.Video.FPS)
		videoCapture, err = video.NewCapture(video.CaptureConfig{
			FPS:         cfg.Video.FPS,
			JPEGQuality: cfg.Video.JPEGQuality,
		}, camera, frameBuffer, logger, appMetrics)
		if err != nil {
			logger.Error("Failed to create video capture", slog.String("error", err.Error()))
			os.Exit(1)
		}

		logger.Info("Video capture initialized",
			slog.Int("camera_index", cfg.Video.CameraIndex),
			slog.Int("width", width),
			slog.Int("height", height),
			slog.Float64("fps", cfg.Video.FPS),
		)
	}

	// Assemble and start the recording pipeline
	rec, err := recorder.New(cfg, microphone, videoCapture, frameBuffer, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create recorder", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := rec.Start(); err != nil {
		logger.Error("Failed to start recorder", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize and start HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, rec, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, listening for speech...")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the pipeline (closes the microphone and drains in-flight work)
	rec.Stop()

	stats := rec.Stats()
	logger.Info("Final pipeline statistics",
		slog.Uint64("chunks_processed", stats.Detector.ChunksProcessed),
		slog.Uint64("utterances_finalized", stats.Detector.Utterances),
		slog.Uint64("dropped_samples", stats.DroppedSamples),
	)

	logger.Info("Service stopped")
}

// loadConfig loads the configuration file, treating an absent default file as
// a request for built-in defaults
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil && path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
