// Package recorder wires capture, resampling, voice detection, encoding and
// the speech event queue into one pipeline.
package recorder
