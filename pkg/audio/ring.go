package audio

import "sync"

// RingBuffer keeps the most recent samples of a capture stream so a rolling
// window can be read back at any time. Writes and reads may come from
// different goroutines.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []float32
	w     int
	count int
}

// NewRingBuffer creates a ring buffer holding up to capacity samples.
// A non-positive capacity is treated as one second of audio at
// [DefaultSampleRate].
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultSampleRate
	}
	return &RingBuffer{buf: make([]float32, capacity)}
}

// Write appends samples, overwriting the oldest data once full.
func (r *RingBuffer) Write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Only the tail fits anyway when the input exceeds the capacity.
	if len(samples) > len(r.buf) {
		samples = samples[len(samples)-len(r.buf):]
	}
	for _, s := range samples {
		r.buf[r.w] = s
		r.w = (r.w + 1) % len(r.buf)
	}
	r.count += len(samples)
	if r.count > len(r.buf) {
		r.count = len(r.buf)
	}
}

// Window returns a copy of the last n samples in arrival order. When fewer
// than n samples have been written it returns everything available.
func (r *RingBuffer) Window(n int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	start := (r.w - n + len(r.buf)) % len(r.buf)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of samples currently buffered.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
