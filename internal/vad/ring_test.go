package vad

import "testing"

func ringChunk(value int16) []int16 {
	chunk := make([]int16, 4)
	for i := range chunk {
		chunk[i] = value
	}
	return chunk
}

func TestChunkRingEviction(t *testing.T) {
	r := newChunkRing(3)

	if r.len() != 0 {
		t.Fatalf("expected empty ring, got length %d", r.len())
	}

	for i := int16(1); i <= 5; i++ {
		r.push(ringChunk(i))
	}

	if r.len() != 3 {
		t.Fatalf("expected length 3 after overflow, got %d", r.len())
	}

	var out []int16
	r.appendTo(&out)

	if len(out) != 12 {
		t.Fatalf("expected 12 samples, got %d", len(out))
	}

	// Chunks 1 and 2 were evicted; 3, 4, 5 remain in arrival order.
	for i, want := range []int16{3, 4, 5} {
		if got := out[i*4]; got != want {
			t.Errorf("chunk %d: expected value %d, got %d", i, want, got)
		}
	}
}

func TestChunkRingCopiesInput(t *testing.T) {
	r := newChunkRing(2)

	chunk := ringChunk(7)
	r.push(chunk)
	chunk[0] = 99 // caller reuses its buffer

	var out []int16
	r.appendTo(&out)

	if out[0] != 7 {
		t.Errorf("ring must store a copy, got mutated value %d", out[0])
	}
}
