package bus

import (
	"sync"

	"github.com/roach88/kitchensync/internal/model"
)

// envelopeQueue is a thread-safe FIFO queue for envelopes.
//
// The queue is unbounded so Publish never blocks on a slow consumer.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in Subscription.Next (prevents goroutine hangs on context cancellation).
type envelopeQueue struct {
	mu        sync.Mutex
	envelopes []model.Envelope
	closed    bool
	signal    chan struct{} // Signals envelope availability (buffered, size 1)
}

// newEnvelopeQueue creates an empty envelope queue.
func newEnvelopeQueue() *envelopeQueue {
	return &envelopeQueue{
		envelopes: make([]model.Envelope, 0, 16),
		signal:    make(chan struct{}, 1),
	}
}

// Enqueue adds an envelope to the back of the queue and returns the new
// length. Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *envelopeQueue) Enqueue(env model.Envelope) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, false
	}

	q.envelopes = append(q.envelopes, env)

	// Non-blocking - buffer of 1 coalesces multiple signals. The envelope
	// itself is already in the slice, so a coalesced signal loses nothing.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return len(q.envelopes), true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Envelope{}, false) if queue is empty.
func (q *envelopeQueue) TryDequeue() (model.Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.envelopes) == 0 {
		return model.Envelope{}, false
	}

	env := q.envelopes[0]

	// Nil out the slot so the payload can be collected.
	q.envelopes[0] = model.Envelope{}

	if len(q.envelopes) == 1 {
		q.envelopes = q.envelopes[:0]
	} else {
		q.envelopes = q.envelopes[1:]
	}

	return env, true
}

// Wait returns a channel that signals when envelopes may be available.
// The channel is closed when the queue is closed.
func (q *envelopeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *envelopeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.envelopes)
}

// Closed reports whether Close has been called.
func (q *envelopeQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more envelopes will be enqueued and drops the
// backlog. Wakes any blocked waiters by closing the signal channel.
func (q *envelopeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	q.envelopes = nil
	close(q.signal)
}
