package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window bounds how often a single case may be processed: a sliding window
// of timestamps per key, with a housekeeping purge to bound memory.
type Window interface {
	Allow(ctx context.Context, key string) (bool, error)
	Purge(ctx context.Context, olderThan time.Duration) error
}

// SlidingWindow is the in-memory, process-local window. State is lost on
// restart; a transient burst may be under-throttled after a crash, which is
// accepted behavior.
type SlidingWindow struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	limit   int
	span    time.Duration
	now     func() time.Time
}

// NewSlidingWindow creates a window allowing limit events per span per key.
func NewSlidingWindow(limit int, span time.Duration) *SlidingWindow {
	if limit <= 0 {
		limit = 5
	}
	if span <= 0 {
		span = time.Minute
	}
	return &SlidingWindow{
		entries: make(map[string][]time.Time),
		limit:   limit,
		span:    span,
		now:     time.Now,
	}
}

// Allow records an event for the key unless the trailing window is full.
func (w *SlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	now := w.now()
	cutoff := now.Add(-w.span)

	w.mu.Lock()
	defer w.mu.Unlock()

	recent := w.entries[key][:0]
	for _, ts := range w.entries[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	if len(recent) >= w.limit {
		w.entries[key] = recent
		return false, nil
	}
	w.entries[key] = append(recent, now)
	return true, nil
}

// Purge drops keys whose newest timestamp is older than the given age.
func (w *SlidingWindow) Purge(ctx context.Context, olderThan time.Duration) error {
	cutoff := w.now().Add(-olderThan)

	w.mu.Lock()
	defer w.mu.Unlock()

	for key, timestamps := range w.entries {
		if len(timestamps) == 0 || !timestamps[len(timestamps)-1].After(cutoff) {
			delete(w.entries, key)
		}
	}
	return nil
}

// SetNowFunc overrides the clock. Test hook.
func (w *SlidingWindow) SetNowFunc(now func() time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
}
