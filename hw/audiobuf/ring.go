// Package audiobuf provides the sample buffers shared by the sound chips and
// the host mixer.
package audiobuf

// Ring is a fixed capacity FIFO of signed 16-bit samples. When full, pushing
// a new sample drops the oldest one.
type Ring struct {
	buf     []int16
	r, n    int
	dropped uint64
}

func NewRing(size int) *Ring {
	return &Ring{buf: make([]int16, size)}
}

// Push appends a sample.
func (r *Ring) Push(s int16) {
	if r.n == len(r.buf) {
		r.r = (r.r + 1) % len(r.buf)
		r.n--
		r.dropped++
	}
	r.buf[(r.r+r.n)%len(r.buf)] = s
	r.n++
}

// Len returns the number of buffered samples.
func (r *Ring) Len() int { return r.n }

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Dropped returns the number of samples lost to overflow since the last
// Reset.
func (r *Ring) Dropped() uint64 { return r.dropped }

// Read moves up to len(dst) samples into dst and returns how many were read.
func (r *Ring) Read(dst []int16) int {
	n := min(len(dst), r.n)
	for i := range n {
		dst[i] = r.buf[(r.r+i)%len(r.buf)]
	}
	r.r = (r.r + n) % len(r.buf)
	r.n -= n
	return n
}

// Reset discards all buffered samples.
func (r *Ring) Reset() {
	r.r, r.n, r.dropped = 0, 0, 0
}
