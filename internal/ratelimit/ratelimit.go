package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides whether a keyed caller may proceed.
type Limiter interface {
	Allow(key string) bool
}

// Window is an in-memory sliding-window limiter keyed by caller identity.
type Window struct {
	Requests int
	Interval time.Duration
	Now      func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewWindow(requests int, interval time.Duration) *Window {
	return &Window{Requests: requests, Interval: interval, hits: map[string][]time.Time{}}
}

func (w *Window) Allow(key string) bool {
	if w.Requests <= 0 {
		return true
	}
	now := time.Now()
	if w.Now != nil {
		now = w.Now()
	}
	cutoff := now.Add(-w.Interval)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hits == nil {
		w.hits = map[string][]time.Time{}
	}
	recent := w.hits[key][:0]
	for _, t := range w.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= w.Requests {
		w.hits[key] = recent
		return false
	}
	w.hits[key] = append(recent, now)
	return true
}
