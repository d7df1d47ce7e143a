package fphome

import (
	"sync"
	"time"
)

// RateLimiter limits attempts per IP address within a sliding window. It
// guards admin login and the public contact form.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewRateLimiter creates a RateLimiter that allows max attempts per window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	l := &RateLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *RateLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		cutoff := time.Now().Add(-l.window)
		l.mu.Lock()
		for ip, hits := range l.attempts {
			if kept := prune(hits, cutoff); len(kept) == 0 {
				delete(l.attempts, ip)
			} else {
				l.attempts[ip] = kept
			}
		}
		l.mu.Unlock()
	}
}

// Close stops the cleanup goroutine.
func (l *RateLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Allow records an attempt for ip unless it has reached the limit. The
// check and the record happen under one lock.
func (l *RateLimiter) Allow(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.pruneLocked(ip, now)
	if len(kept) >= l.max {
		return false
	}
	l.attempts[ip] = append(kept, now)
	return true
}

// Check returns true if the IP has not exceeded the limit. It does not
// record an attempt; login calls Record only on failure.
func (l *RateLimiter) Check(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pruneLocked(ip, time.Now())) < l.max
}

func (l *RateLimiter) pruneLocked(ip string, now time.Time) []time.Time {
	kept := prune(l.attempts[ip], now.Add(-l.window))
	l.attempts[ip] = kept
	return kept
}

// Record registers an attempt for the given IP.
func (l *RateLimiter) Record(ip string) {
	l.mu.Lock()
	l.attempts[ip] = append(l.attempts[ip], time.Now())
	l.mu.Unlock()
}
