package audio

import (
	"fmt"
	"math"
)

// Resampler converts a push-based float sample stream at the capture device's
// native rate into fixed-size 16-bit PCM chunks at the target rate, using
// nearest-index selection: decimation when the native rate is higher, sample
// duplication when it is lower. Samples that do not yet fill a whole chunk
// are carried over to the next call, so output is invariant to how the input
// is split across calls.
type Resampler struct {
	chunkSize int
	ratio     float64 // nativeRate / targetRate
	required  int     // buffered samples needed to emit one chunk
	consumed  int     // samples dropped from the front per emitted chunk

	buf []float32
}

// NewResampler creates a resampler from nativeRate to targetRate, emitting
// chunks of exactly chunkSize samples.
func NewResampler(nativeRate, targetRate, chunkSize int) (*Resampler, error) {
	if nativeRate <= 0 || targetRate <= 0 {
		return nil, fmt.Errorf("sample rates must be positive, got native=%d target=%d", nativeRate, targetRate)
	}

	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	ratio := float64(nativeRate) / float64(targetRate)
	consumed := int(float64(chunkSize) * ratio)

	// A chunk must advance the buffer, or Push would loop forever.
	if consumed < 1 {
		return nil, fmt.Errorf("rate ratio %d/%d too extreme for chunk size %d", nativeRate, targetRate, chunkSize)
	}

	return &Resampler{
		chunkSize: chunkSize,
		ratio:     ratio,
		required:  int(math.Ceil(ratio * float64(chunkSize))),
		consumed:  consumed,
		buf:       make([]float32, 0, int(math.Ceil(ratio*float64(chunkSize)))*2),
	}, nil
}

// Push appends native-rate samples and returns every complete chunk that can
// be produced. It never blocks and never fails; a short push simply extends
// the carry-over buffer.
func (r *Resampler) Push(samples []float32) [][]int16 {
	r.buf = append(r.buf, samples...)

	var chunks [][]int16
	for len(r.buf) >= r.required {
		chunk := make([]int16, r.chunkSize)
		for i := 0; i < r.chunkSize; i++ {
			src := int(float64(i) * r.ratio)
			chunk[i] = pcm16(r.buf[src])
		}
		chunks = append(chunks, chunk)

		drop := r.consumed
		if drop > len(r.buf) {
			drop = len(r.buf)
		}
		n := copy(r.buf, r.buf[drop:])
		r.buf = r.buf[:n]
	}

	return chunks
}

// Pending returns the number of carried-over native-rate samples.
func (r *Resampler) Pending() int {
	return len(r.buf)
}

// Reset discards any carried-over samples.
func (r *Resampler) Reset() {
	r.buf = r.buf[:0]
}

// pcm16 converts a [-1, 1] float sample to 16-bit PCM, clamping out-of-range input.
func pcm16(s float32) int16 {
	if s > 1.0 {
		s = 1.0
	} else if s < -1.0 {
		s = -1.0
	}
	return int16(s * 32767.0)
}
