package telemetry

import (
	"sync"
	"time"

	"github.com/neogan74/vigil/internal/metrics"
)

// DefaultCapacity is the number of samples retained when no capacity is configured.
const DefaultCapacity = 10000

// Buffer is a fixed-capacity FIFO of request samples. Once full, each Record
// overwrites the oldest retained sample.
type Buffer struct {
	mu    sync.Mutex
	items []Sample
	head  int // index of the oldest sample
	size  int
}

// NewBuffer creates a ring buffer holding at most capacity samples.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{items: make([]Sample, capacity)}
}

// Record appends a sample, evicting the oldest one when the buffer is full.
// It never blocks on I/O and has no failure mode visible to the caller.
func (b *Buffer) Record(s Sample) {
	if s.LatencyMs < 0 {
		s.LatencyMs = 0
	}

	b.mu.Lock()
	evicted := false
	if b.size == len(b.items) {
		b.items[b.head] = s
		b.head = (b.head + 1) % len(b.items)
		evicted = true
	} else {
		b.items[(b.head+b.size)%len(b.items)] = s
		b.size++
	}
	size := b.size
	b.mu.Unlock()

	metrics.SamplesRecordedTotal.Inc()
	if evicted {
		metrics.SamplesEvictedTotal.Inc()
	}
	metrics.SampleBufferSize.Set(float64(size))
}

// Snapshot returns a copy of the retained samples with Timestamp >= since, in
// insertion order. A zero since returns everything.
func (b *Buffer) Snapshot(since time.Time) []Sample {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Sample, 0, b.size)
	for i := 0; i < b.size; i++ {
		s := b.items[(b.head+i)%len(b.items)]
		if s.Timestamp.Before(since) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Size returns the number of retained samples.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the configured ceiling.
func (b *Buffer) Cap() int {
	return len(b.items)
}
