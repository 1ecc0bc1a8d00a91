// Package achan implements the credit-based flow control a channel's
// sending end uses to honor the capacity the receiving end has granted,
// the same inflight-count-gated idiom as the teacher's qos.Handler (which
// refuses PublishQoS1/2 once inflightCount reaches MaxInflight) restated as
// a blocking acquire instead of an immediate error, since Aldrin senders
// are expected to wait for capacity rather than fail fast.
package achan

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Acquire once the Flow has been closed, e.g.
// because the channel end was closed out from under a blocked sender.
var ErrClosed = errors.New("achan: flow closed")

// Flow tracks how many items a sender may still send before it must wait
// for more capacity to be granted.
type Flow struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity uint32
	closed   bool
}

func NewFlow() *Flow {
	f := &Flow{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Add grants n additional units of capacity, waking any blocked Acquire.
func (f *Flow) Add(n uint32) {
	f.mu.Lock()
	f.capacity += n
	f.cond.Broadcast()
	f.mu.Unlock()
}

// Acquire blocks until at least one unit of capacity is available, then
// consumes it. It returns early with ctx.Err() if ctx is done, or
// ErrClosed if the Flow is closed while waiting.
func (f *Flow) Acquire(ctx context.Context) error {
	if done := ctx.Done(); done != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-done:
				f.mu.Lock()
				f.cond.Broadcast()
				f.mu.Unlock()
			case <-stop:
			}
		}()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for f.capacity == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.closed {
			return ErrClosed
		}
		f.cond.Wait()
	}
	f.capacity--
	return nil
}

// Close marks the Flow closed, waking every blocked Acquire with ErrClosed.
func (f *Flow) Close() {
	f.mu.Lock()
	f.closed = true
	f.cond.Broadcast()
	f.mu.Unlock()
}
