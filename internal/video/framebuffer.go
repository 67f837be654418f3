package video

import (
	"math"
	"sync"
	"time"
)

// Frame is a single captured camera frame, already JPEG-encoded
type Frame struct {
	Data      []byte    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// FrameBufferStats represents frame buffer statistics for monitoring
type FrameBufferStats struct {
	FrameCount  int     `json:"frame_count"`
	MaxFrames   int     `json:"max_frames"`
	WindowSecs  float64 `json:"window_seconds"`
	SpanSecs    float64 `json:"span_seconds"`
	TotalPushed uint64  `json:"total_pushed"`
	TotalEvict  uint64  `json:"total_evicted"`
}

// FrameBuffer holds the most recent camera frames inside a sliding time
// window. Eviction is dual: a hard frame-count cap derived from window*fps,
// plus age-based expiry applied on every push. One goroutine pushes; any
// number of readers snapshot concurrently.
type FrameBuffer struct {
	mu        sync.RWMutex
	frames    []Frame
	window    time.Duration
	maxFrames int
	now       func() time.Time

	totalPushed  uint64
	totalEvicted uint64
}

// NewFrameBuffer creates a buffer covering the given time window at the given
// nominal capture rate. The count cap gets one extra slot so a frame landing
// exactly on the window edge is not evicted early.
func NewFrameBuffer(window time.Duration, fps float64) *FrameBuffer {
	maxFrames := int(math.Ceil(window.Seconds()*fps)) + 1
	return &FrameBuffer{
		frames:    make([]Frame, 0, maxFrames),
		window:    window,
		maxFrames: maxFrames,
		now:       time.Now,
	}
}

// Push appends a frame stamped with the current time, evicting frames that
// fall outside the window or over the count cap
func (b *FrameBuffer) Push(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = append(b.frames, Frame{Data: data, Timestamp: b.now()})
	b.totalPushed++
	b.evictLocked()
}

// evictLocked drops frames over the count cap, then frames older than the
// window. Oldest frames go first in both passes.
func (b *FrameBuffer) evictLocked() {
	drop := 0
	if len(b.frames) > b.maxFrames {
		drop = len(b.frames) - b.maxFrames
	}

	cutoff := b.now().Add(-b.window)
	for drop < len(b.frames) && b.frames[drop].Timestamp.Before(cutoff) {
		drop++
	}

	if drop > 0 {
		b.totalEvicted += uint64(drop)
		remaining := copy(b.frames, b.frames[drop:])
		for i := remaining; i < len(b.frames); i++ {
			b.frames[i] = Frame{} // release evicted frame data
		}
		b.frames = b.frames[:remaining]
	}
}

// Latest returns the most recent frame, or false when the buffer is empty
func (b *FrameBuffer) Latest() (Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.frames) == 0 {
		return Frame{}, false
	}
	return b.frames[len(b.frames)-1], true
}

// FramesSince returns copies of the frame records captured within the last
// age interval, oldest first
func (b *FrameBuffer) FramesSince(age time.Duration) []Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cutoff := b.now().Add(-age)
	start := len(b.frames)
	for i := len(b.frames) - 1; i >= 0; i-- {
		if b.frames[i].Timestamp.Before(cutoff) {
			break
		}
		start = i
	}

	out := make([]Frame, len(b.frames)-start)
	copy(out, b.frames[start:])
	return out
}

// Size returns the current number of buffered frames
func (b *FrameBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.frames)
}

// Clear discards all buffered frames
func (b *FrameBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalEvicted += uint64(len(b.frames))
	b.frames = b.frames[:0]
}

// Stats returns a snapshot of the buffer state
func (b *FrameBuffer) Stats() FrameBufferStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := FrameBufferStats{
		FrameCount:  len(b.frames),
		MaxFrames:   b.maxFrames,
		WindowSecs:  b.window.Seconds(),
		TotalPushed: b.totalPushed,
		TotalEvict:  b.totalEvicted,
	}
	// Span covers oldest to newest; a single frame has no span.
	if len(b.frames) >= 2 {
		newest := b.frames[len(b.frames)-1].Timestamp
		stats.SpanSecs = newest.Sub(b.frames[0].Timestamp).Seconds()
	}
	return stats
}
