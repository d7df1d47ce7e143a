// Package scheduler runs deferred DOM work.
//
// Ordering contract: tasks run one at a time, never concurrently with each
// other. Deferred tasks run in submission order. A delayed task joins the
// same queue when its delay elapses. A cancelled task never runs.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of deferred work.
type Task func()

// Scheduler defers tasks past the caller's current operation.
type Scheduler interface {
	// Defer queues fn to run after the caller returns.
	Defer(fn Task) *Handle
	// After queues fn to run once d has elapsed.
	After(d time.Duration, fn Task) *Handle
}

// Handle identifies a scheduled task.
type Handle struct {
	cancelled atomic.Bool
	done      atomic.Bool
	timer     *time.Timer
}

// Cancel stops the task. It reports whether the task was still pending.
// Cancel is safe on a nil handle.
func (h *Handle) Cancel() bool {
	if h == nil {
		return false
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	if h.done.Load() {
		return false
	}
	return h.cancelled.CompareAndSwap(false, true)
}

// Pending reports whether the task has neither run nor been cancelled.
func (h *Handle) Pending() bool {
	return h != nil && !h.done.Load() && !h.cancelled.Load()
}

// claim marks the handle as running; false means it was cancelled first.
func (h *Handle) claim() bool {
	if h.cancelled.Load() {
		return false
	}
	return h.done.CompareAndSwap(false, true)
}

type entry struct {
	h  *Handle
	fn Task
}

// Loop is a Scheduler backed by a single worker goroutine.
type Loop struct {
	mu     sync.Mutex
	queue  []entry
	wake   chan struct{}
	closed bool
	stop   chan struct{}
	done   chan struct{}
}

// NewLoop starts a Loop. Call Close to stop its goroutine.
func NewLoop() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

// Defer implements Scheduler.
func (l *Loop) Defer(fn Task) *Handle {
	h := &Handle{}
	l.enqueue(entry{h: h, fn: fn})
	return h
}

// After implements Scheduler.
func (l *Loop) After(d time.Duration, fn Task) *Handle {
	if d <= 0 {
		return l.Defer(fn)
	}
	h := &Handle{}
	h.timer = time.AfterFunc(d, func() {
		l.enqueue(entry{h: h, fn: fn})
	})
	return h
}

func (l *Loop) enqueue(e entry) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		e.h.cancelled.Store(true)
		return
	}
	l.queue = append(l.queue, e)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			select {
			case <-l.wake:
				continue
			case <-l.stop:
				return
			}
		}
		e := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		if e.h.claim() {
			e.fn()
		}
	}
}

// Close stops the worker. Tasks still queued are dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	for _, e := range l.queue {
		e.h.cancelled.Store(true)
	}
	l.queue = nil
	l.mu.Unlock()
	close(l.stop)
	<-l.done
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
