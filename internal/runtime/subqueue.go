package runtime

import (
	"sync"
)

// SubQueue delivers events to one subscriber without blocking the publisher.
// Events are buffered in memory; once maxQueued events are waiting the oldest
// are discarded, so a stalled subscriber cannot grow the queue forever.
type SubQueue[T any] struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []T
	maxQueued int
	dropped   uint64
	closed    bool

	outCh  chan T // consumer reads from this
	paused bool   // gate dispatch until the initial state is primed
}

// NewSubQueue starts paused. maxQueued <= 0 means unbounded.
func NewSubQueue[T any](outBuf, maxQueued int) *SubQueue[T] {
	sq := &SubQueue[T]{
		outCh:     make(chan T, outBuf),
		maxQueued: maxQueued,
		paused:    true,
	}
	sq.cond = sync.NewCond(&sq.mu)
	go sq.dispatch()
	return sq
}

// Channel exposed to subscriber.
func (sq *SubQueue[T]) Chan() <-chan T { return sq.outCh }

// Enqueue appends to the in-memory queue and wakes dispatcher.
func (sq *SubQueue[T]) Enqueue(ev T) {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	if sq.closed {
		return
	}
	if sq.maxQueued > 0 && len(sq.queue) >= sq.maxQueued {
		n := len(sq.queue) - sq.maxQueued + 1
		sq.queue = append(sq.queue[:0], sq.queue[n:]...)
		sq.dropped += uint64(n)
	}
	sq.queue = append(sq.queue, ev)
	sq.cond.Signal()
}

// Prime pushes ev straight onto the subscriber channel, bypassing the queue.
// It reports false when the queue is closed or the channel buffer is full, so
// it is only useful while paused.
func (sq *SubQueue[T]) Prime(ev T) bool {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	// dispatch closes outCh only after observing closed under mu.
	if sq.closed {
		return false
	}
	select {
	case sq.outCh <- ev:
		return true
	default:
		return false
	}
}

// SetPaused gates dispatching.
func (sq *SubQueue[T]) SetPaused(v bool) {
	sq.mu.Lock()
	sq.paused = v
	sq.cond.Broadcast()
	sq.mu.Unlock()
}

// Dropped is the number of events discarded because the queue was full.
func (sq *SubQueue[T]) Dropped() uint64 {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.dropped
}

// Close stops the dispatcher and closes the out channel.
func (sq *SubQueue[T]) Close() {
	sq.mu.Lock()
	sq.closed = true
	sq.cond.Broadcast()
	sq.mu.Unlock()
}

func (sq *SubQueue[T]) dispatch() {
	for {
		sq.mu.Lock()
		for !sq.closed && (sq.paused || len(sq.queue) == 0) {
			sq.cond.Wait()
		}
		if sq.closed {
			sq.mu.Unlock()
			close(sq.outCh)
			return
		}
		ev := sq.queue[0]
		var zero T
		sq.queue[0] = zero
		sq.queue = sq.queue[1:]
		sq.mu.Unlock()

		sq.outCh <- ev
	}
}
