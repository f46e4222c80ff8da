// Package workerpool offloads blocking model invocations to a fixed set of
// workers behind a bounded queue, so one slow inference cannot starve the
// HTTP event loop.
package workerpool

import (
	"context"
	"errors"
	"sync"
)

// ErrSaturated is returned when the queue is full; callers surface it as a
// service-busy condition rather than waiting.
var ErrSaturated = errors.New("worker queue saturated")

// Pool runs submitted functions on a fixed number of worker goroutines.
type Pool struct {
	queue     chan func()
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New starts a pool with the given worker count and queue depth. Values
// below one are raised to one.
func New(workers, depth int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if depth < 1 {
		depth = 1
	}
	p := &Pool{queue: make(chan func(), depth)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for fn := range p.queue {
		fn()
	}
}

// Do submits fn and waits for it to finish. A full queue fails fast with
// ErrSaturated. Context cancellation abandons the wait; an already-queued fn
// still runs to completion on its worker.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case p.queue <- func() { result <- fn() }:
	default:
		return ErrSaturated
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for in-flight tasks to drain.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}
