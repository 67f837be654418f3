// Package capture wraps the microphone and camera devices. The microphone
// delivers float32 PCM batches over a bounded channel; the camera exposes
// V4L2 frames as images for the video capture loop.
package capture
