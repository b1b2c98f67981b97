package console

import (
	"sync"
	"time"
)

// DefaultRingCapacity bounds the per-server console history kept in memory.
const DefaultRingCapacity = 1000

// OutputLine is one clean console line with its capture time. Lines live
// only in the ring; nothing here reaches durable storage.
type OutputLine struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Ring is a fixed-capacity FIFO of recent output lines. When full, the
// oldest entry is silently evicted. Safe for concurrent use: the supervisor
// writes while HTTP handlers read.
type Ring struct {
	mu    sync.Mutex
	buf   []OutputLine
	head  int // index of the oldest entry
	count int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &Ring{buf: make([]OutputLine, capacity)}
}

func (r *Ring) Push(line OutputLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = line
		r.count++
		return
	}
	r.buf[r.head] = line
	r.head = (r.head + 1) % len(r.buf)
}

// Last returns up to n most recent lines, oldest first. n is capped at the
// ring capacity.
func (r *Ring) Last(n int) []OutputLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 {
		return nil
	}
	if n > r.count {
		n = r.count
	}
	out := make([]OutputLine, n)
	start := r.head + r.count - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *Ring) Cap() int { return len(r.buf) }
