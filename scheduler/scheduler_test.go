package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsDeferredInOrder(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		i := i
		l.Defer(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoopCancelledTaskNeverRuns(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	ran := make(chan struct{}, 1)
	h := l.After(50*time.Millisecond, func() { ran <- struct{}{} })
	require.True(t, h.Cancel())
	require.False(t, h.Cancel())

	done := make(chan struct{})
	l.Defer(func() { close(done) })
	<-done

	select {
	case <-ran:
		t.Fatal("cancelled task ran")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLoopAfterDelay(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	start := time.Now()
	done := make(chan time.Time, 1)
	l.After(20*time.Millisecond, func() { done <- time.Now() })

	select {
	case at := <-done:
		assert.GreaterOrEqual(t, at.Sub(start), 20*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("delayed task did not run")
	}
}

func TestLoopCloseDropsQueued(t *testing.T) {
	l := NewLoop()
	l.Close()
	h := l.Defer(func() { t.Error("ran after close") })
	assert.False(t, h.Pending())
	l.Close()
}

func TestManualOrdering(t *testing.T) {
	m := NewManual()
	var got []string
	m.After(10*time.Millisecond, func() { got = append(got, "late") })
	m.Defer(func() {
		got = append(got, "first")
		m.Defer(func() { got = append(got, "nested") })
	})
	h := m.Defer(func() { got = append(got, "cancelled") })
	m.Defer(func() { got = append(got, "second") })
	h.Cancel()

	assert.Equal(t, 3, m.RunPending())
	assert.Equal(t, []string{"first", "second", "nested"}, got)
	assert.Equal(t, 1, m.Len())

	assert.Equal(t, 1, m.Advance(10*time.Millisecond))
	assert.Equal(t, "late", got[len(got)-1])
}

func TestNilHandleCancel(t *testing.T) {
	var h *Handle
	assert.False(t, h.Cancel())
	assert.False(t, h.Pending())
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Second), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
