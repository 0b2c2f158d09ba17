// Package ringbuf provides a fixed-capacity single-producer/single-consumer
// queue of float32 samples. Neither end ever blocks or allocates after New,
// so both ends can be used from real-time audio callbacks.
package ringbuf

import "sync/atomic"

type ring struct {
	buf []float32
	// head is the next slot to read, tail the next slot to write. Both only
	// grow; tail-head is the number of queued samples.
	head    atomic.Uint64
	tail    atomic.Uint64
	dropped atomic.Uint64
}

// Producer is the write end. It must be used by one goroutine at a time.
type Producer struct {
	r *ring
}

// Consumer is the read end. It must be used by one goroutine at a time.
type Consumer struct {
	r *ring
}

// New allocates a buffer holding up to capacity samples and returns its two
// ends. A capacity below 1 is raised to 1.
func New(capacity int) (*Producer, *Consumer) {
	if capacity < 1 {
		capacity = 1
	}
	r := &ring{buf: make([]float32, capacity)}
	return &Producer{r: r}, &Consumer{r: r}
}

// Push appends v. It returns false and counts a drop when the buffer is full.
func (p *Producer) Push(v float32) bool {
	r := p.r
	tail := r.tail.Load()
	if tail-r.head.Load() >= uint64(len(r.buf)) {
		r.dropped.Add(1)
		return false
	}
	r.buf[tail%uint64(len(r.buf))] = v
	r.tail.Store(tail + 1)
	return true
}

// PushSlice appends as many samples of s as fit and returns how many were
// accepted. The rest are counted as dropped.
func (p *Producer) PushSlice(s []float32) int {
	r := p.r
	size := uint64(len(r.buf))
	tail := r.tail.Load()
	free := size - (tail - r.head.Load())

	n := uint64(len(s))
	if n > free {
		r.dropped.Add(n - free)
		n = free
	}
	for i := uint64(0); i < n; i++ {
		r.buf[(tail+i)%size] = s[i]
	}
	r.tail.Store(tail + n)
	return int(n)
}

// Dropped returns the number of samples rejected because the buffer was full.
func (p *Producer) Dropped() uint64 { return p.r.dropped.Load() }

// Len returns the number of queued samples as seen by the producer.
func (p *Producer) Len() int { return p.r.len() }

// Cap returns the buffer capacity.
func (p *Producer) Cap() int { return len(p.r.buf) }

// Pop removes the oldest sample. ok is false when the buffer is empty.
func (c *Consumer) Pop() (v float32, ok bool) {
	r := c.r
	head := r.head.Load()
	if head == r.tail.Load() {
		return 0, false
	}
	v = r.buf[head%uint64(len(r.buf))]
	r.head.Store(head + 1)
	return v, true
}

// Len returns the number of queued samples as seen by the consumer.
func (c *Consumer) Len() int { return c.r.len() }

// Cap returns the buffer capacity.
func (c *Consumer) Cap() int { return len(c.r.buf) }

func (r *ring) len() int {
	head := r.head.Load()
	return int(r.tail.Load() - head)
}
