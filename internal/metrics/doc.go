// Package metrics defines the Prometheus instrumentation for the recorder.
package metrics
