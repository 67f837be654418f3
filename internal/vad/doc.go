// Package vad implements energy-threshold voice activity detection with
// adaptive background estimation and onset/offset hysteresis.
package vad
