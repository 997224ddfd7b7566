package password

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned for work submitted after Close.
var ErrPoolClosed = errors.New("password pool closed")

// Pool bounds how many Argon2 computations run at once. Each one allocates the
// full memory cost.
type Pool struct {
	sem *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool allows size concurrent computations. size <= 0 means GOMAXPROCS.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

type poolResult[T any] struct {
	val T
	err error
}

// run executes fn on a worker goroutine once a slot is free. If ctx ends first
// the call returns ctx.Err(); a computation already started still finishes in
// the background and then releases its slot.
func run[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return zero, ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return zero, err
	}

	done := make(chan poolResult[T], 1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		v, err := fn()
		done <- poolResult[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close rejects new work and waits for running computations. It is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
