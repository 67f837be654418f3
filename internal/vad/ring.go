package vad

// chunkRing is a fixed-capacity FIFO of audio chunks indexed by head and
// length, so high-frequency push/evict cycles never reallocate. When full,
// pushing evicts the oldest chunk.
type chunkRing struct {
	chunks [][]int16
	head   int
	length int
}

func newChunkRing(capacity int) *chunkRing {
	return &chunkRing{
		chunks: make([][]int16, capacity),
	}
}

// push stores a copy of the chunk, evicting the oldest entry when full.
// Copying decouples the ring from the caller's (possibly reused) buffer.
func (r *chunkRing) push(chunk []int16) {
	stored := make([]int16, len(chunk))
	copy(stored, chunk)

	tail := (r.head + r.length) % len(r.chunks)
	r.chunks[tail] = stored

	if r.length < len(r.chunks) {
		r.length++
	} else {
		r.head = (r.head + 1) % len(r.chunks)
	}
}

// appendTo appends the buffered chunks to dst in arrival order
func (r *chunkRing) appendTo(dst *[]int16) {
	for i := 0; i < r.length; i++ {
		*dst = append(*dst, r.chunks[(r.head+i)%len(r.chunks)]...)
	}
}

func (r *chunkRing) len() int {
	return r.length
}
