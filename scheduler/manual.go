package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven explicitly by the caller. Nothing runs until
// RunPending or Advance is called, which makes deferral observable in tests.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []manualTask
}

type manualTask struct {
	due time.Duration
	seq int
	h   *Handle
	fn  Task
}

// NewManual returns a Manual scheduler at time zero.
func NewManual() *Manual {
	return &Manual{}
}

// Defer implements Scheduler.
func (m *Manual) Defer(fn Task) *Handle {
	return m.After(0, fn)
}

// After implements Scheduler.
func (m *Manual) After(d time.Duration, fn Task) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	h := &Handle{}
	m.seq++
	m.tasks = append(m.tasks, manualTask{due: m.now + d, seq: m.seq, h: h, fn: fn})
	return h
}

// Len returns the number of tasks not yet run or cancelled.
func (m *Manual) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if t.h.Pending() {
			n++
		}
	}
	return n
}

// RunPending runs every task due at the current time, including tasks that
// running tasks schedule with no delay. It returns the number of tasks run.
func (m *Manual) RunPending() int {
	ran := 0
	for {
		t, ok := m.next()
		if !ok {
			return ran
		}
		if t.h.claim() {
			t.fn()
			ran++
		}
	}
}

// Advance moves the clock forward by d and runs whatever became due.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	m.now += d
	m.mu.Unlock()
	return m.RunPending()
}

func (m *Manual) next() (manualTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due != m.tasks[j].due {
			return m.tasks[i].due < m.tasks[j].due
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
	for i, t := range m.tasks {
		if t.due > m.now {
			break
		}
		m.tasks = append(m.tasks[:i:i], m.tasks[i+1:]...)
		return t, true
	}
	return manualTask{}, false
}
