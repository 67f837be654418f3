// Package audio provides sample-rate decimation, PCM encoding and
// durable storage of finished recordings.
package audio
