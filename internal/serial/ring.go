// Package serial implements the per-link output and input servers of
// spec.md §4.G: byte-oriented I/O servers, each bound to a well-known
// mailbox, fed by a lock-free single-producer single-consumer ring that an
// ISR-equivalent goroutine writes into.
package serial

import "gvisor.dev/gvisor/pkg/atomicbitops"

// ringSize is the input ring's capacity. Not specified numerically by
// spec.md; sized generously above a typical terminal line length.
const ringSize = 256

// byteRing is the single-producer single-consumer ring spec.md §4.G
// describes ("a lock-free single-producer single-consumer ring fed by the
// link's receive ISR"). The producer (ReceiveByte, called from the ISR
// goroutine) and the consumer (the input server's own goroutine, via
// Proc.Receive/Block) never contend for a lock: head/tail are plain ints
// only ever written by their respective sides, and pending is the one
// piece of state both sides touch, which is why it is the one field this
// type keeps atomic.
type byteRing struct {
	buf        [ringSize]byte
	head, tail int // head: next write index (producer-owned); tail: next read index (consumer-owned)

	// pending is non-zero when the ring holds at least one unread byte.
	// push sets it on the empty->non-empty transition; the consumer clears
	// it after draining the ring to empty. Link.ReceiveByte requests a
	// wake of the input server after every byte, and the scheduler drops
	// that request unless the server is actually parked.
	pending atomicbitops.Uint32
}

// push appends b to the ring. Returns false if the ring is full (the byte
// is dropped — spec.md does not specify flow control for serial input).
func (r *byteRing) push(b byte) bool {
	next := (r.head + 1) % ringSize
	if next == r.tail {
		return false
	}
	wasEmpty := r.head == r.tail
	r.buf[r.head] = b
	r.head = next
	if wasEmpty {
		r.pending.Store(1)
	}
	return true
}

// pop removes and returns the oldest byte in the ring, or ok=false if
// empty.
func (r *byteRing) pop() (b byte, ok bool) {
	if r.tail == r.head {
		return 0, false
	}
	b = r.buf[r.tail]
	r.tail = (r.tail + 1) % ringSize
	if r.tail == r.head {
		r.pending.Store(0)
	}
	return b, true
}

// empty reports whether the ring currently holds no unread bytes.
func (r *byteRing) empty() bool {
	return r.pending.Load() == 0
}
