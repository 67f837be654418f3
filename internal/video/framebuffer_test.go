package video

import (
	"testing"
	"time"
)

// fakeClock lets tests advance buffer time deterministically
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestFrameBufferCapacity(t *testing.T) {
	tests := []struct {
		name      string
		window    time.Duration
		fps       float64
		maxFrames int
	}{
		{"30s at 0.5fps", 30 * time.Second, 0.5, 16},
		{"10s at 1fps", 10 * time.Second, 1.0, 11},
		{"1s at 0.3fps", time.Second, 0.3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewFrameBuffer(tt.window, tt.fps)
			if b.maxFrames != tt.maxFrames {
				t.Errorf("expected max %d frames, got %d", tt.maxFrames, b.maxFrames)
			}
		})
	}
}

func TestFrameBufferCountEviction(t *testing.T) {
	clock := newFakeClock()
	b := NewFrameBuffer(10*time.Second, 1.0) // cap of 11
	b.now = clock.now

	for i := 0; i < 20; i++ {
		b.Push([]byte{byte(i)})
		clock.advance(100 * time.Millisecond) // well inside the window
	}

	if b.Size() != 11 {
		t.Errorf("expected 11 frames after count eviction, got %d", b.Size())
	}

	frame, ok := b.Latest()
	if !ok || frame.Data[0] != 19 {
		t.Errorf("expected latest frame 19, got %v", frame.Data)
	}

	stats := b.Stats()
	if stats.TotalPushed != 20 || stats.TotalEvict != 9 {
		t.Errorf("expected 20 pushed / 9 evicted, got %d / %d", stats.TotalPushed, stats.TotalEvict)
	}
}

func TestFrameBufferAgeEviction(t *testing.T) {
	clock := newFakeClock()
	b := NewFrameBuffer(5*time.Second, 10.0) // generous count cap
	b.now = clock.now

	b.Push([]byte{1})
	clock.advance(4 * time.Second)
	b.Push([]byte{2})
	clock.advance(2 * time.Second) // frame 1 is now 6s old
	b.Push([]byte{3})

	if b.Size() != 2 {
		t.Fatalf("expected stale frame to be evicted, got %d frames", b.Size())
	}

	frames := b.FramesSince(10 * time.Second)
	if frames[0].Data[0] != 2 || frames[1].Data[0] != 3 {
		t.Errorf("expected frames [2 3], got %v %v", frames[0].Data, frames[1].Data)
	}
}

func TestFramesSince(t *testing.T) {
	clock := newFakeClock()
	b := NewFrameBuffer(30*time.Second, 1.0)
	b.now = clock.now

	for i := 0; i < 5; i++ {
		b.Push([]byte{byte(i)})
		clock.advance(time.Second)
	}

	// Pushes happened at t=0..4s; clock now sits at t=5s. A 2.5s lookback
	// covers the frames pushed at 3s and 4s.
	frames := b.FramesSince(2500 * time.Millisecond)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].Data[0] != 3 || frames[1].Data[0] != 4 {
		t.Errorf("expected frames [3 4], got %v %v", frames[0].Data, frames[1].Data)
	}

	if got := b.FramesSince(0); len(got) != 0 {
		t.Errorf("expected no frames for zero lookback, got %d", len(got))
	}
}

func TestFrameBufferSpanAndConsistency(t *testing.T) {
	clock := newFakeClock()
	b := NewFrameBuffer(30*time.Second, 1.0)
	b.now = clock.now

	b.Push([]byte{1})
	if got := b.Stats().SpanSecs; got != 0 {
		t.Errorf("expected zero span for a single frame, got %f", got)
	}

	clock.advance(3 * time.Second)
	b.Push([]byte{2})
	clock.advance(2 * time.Second)
	b.Push([]byte{3})

	if got := b.Stats().SpanSecs; got != 5 {
		t.Errorf("expected 5s oldest-to-newest span, got %f", got)
	}

	// The latest frame is always the tail of a full-span lookback.
	frames := b.FramesSince(time.Minute)
	latest, ok := b.Latest()
	if !ok || len(frames) == 0 {
		t.Fatal("expected buffered frames")
	}
	if frames[len(frames)-1].Data[0] != latest.Data[0] {
		t.Errorf("Latest (%v) does not match tail of FramesSince (%v)",
			latest.Data, frames[len(frames)-1].Data)
	}
}

func TestFrameBufferEmpty(t *testing.T) {
	b := NewFrameBuffer(30*time.Second, 0.5)

	if _, ok := b.Latest(); ok {
		t.Error("expected no latest frame in an empty buffer")
	}

	if frames := b.FramesSince(time.Minute); len(frames) != 0 {
		t.Errorf("expected no frames, got %d", len(frames))
	}

	stats := b.Stats()
	if stats.FrameCount != 0 || stats.SpanSecs != 0 {
		t.Errorf("unexpected stats for empty buffer: %+v", stats)
	}
}

func TestFrameBufferClear(t *testing.T) {
	b := NewFrameBuffer(30*time.Second, 1.0)

	b.Push([]byte{1})
	b.Push([]byte{2})
	b.Clear()

	if b.Size() != 0 {
		t.Errorf("expected empty buffer after clear, got %d frames", b.Size())
	}

	if stats := b.Stats(); stats.TotalEvict != 2 {
		t.Errorf("expected clear to count as eviction, got %d", stats.TotalEvict)
	}
}
