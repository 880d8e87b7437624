// Package looper provides the single-consumer message queue every session call
// and callback is serialized onto.
//
// Work running on other goroutines (renderer builds, the engine worker) never
// calls back into a session directly. It posts a closure, and the goroutine
// that owns the Looper runs it in posting order.
package looper

import (
	"context"
	"sync"
)

// Poster accepts work for later execution on the owning goroutine.
type Poster interface {
	// Post enqueues fn and reports whether it was accepted.
	// It never blocks and may be called from any goroutine.
	Post(fn func()) bool
}

// Looper is an unbounded FIFO of closures drained by exactly one goroutine.
type Looper struct {
	mu      sync.Mutex
	queue   []func()
	quit    bool
	wake    chan struct{}
	running bool
}

// New returns an empty Looper.
func New() *Looper {
	return &Looper{wake: make(chan struct{}, 1)}
}

// Post implements Poster. Messages posted after Quit are dropped.
func (l *Looper) Post(fn func()) bool {
	l.mu.Lock()
	if l.quit {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	l.signal()
	return true
}

// Wake returns a channel that receives a value whenever messages are pending.
// Event loops that are not driven by Loop (a TUI update function, for example)
// wait on it and then call RunPending.
func (l *Looper) Wake() <-chan struct{} {
	return l.wake
}

// RunPending runs queued messages on the calling goroutine until the queue is
// empty, including messages posted while it runs. It returns how many ran.
func (l *Looper) RunPending() int {
	l.mu.Lock()
	if l.running {
		// Reentrant call from inside a message; the outer call drains.
		l.mu.Unlock()
		return 0
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	ran := 0
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return ran
		}

		for _, fn := range batch {
			fn()
			ran++
		}
	}
}

// Pending returns the number of queued messages.
func (l *Looper) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Loop drains messages until ctx is done or Quit is called.
// Messages queued before Quit still run.
func (l *Looper) Loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			l.RunPending()
			if l.quitting() {
				l.RunPending()
				return nil
			}
		}
	}
}

// Quit stops accepting messages and wakes Loop so it can return.
func (l *Looper) Quit() {
	l.mu.Lock()
	l.quit = true
	l.mu.Unlock()
	l.signal()
}

func (l *Looper) quitting() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quit
}

func (l *Looper) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
