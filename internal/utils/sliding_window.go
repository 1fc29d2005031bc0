package utils

import (
	"sync"
	"time"
)

// SlidingWindow counts events that happened within the last window. It backs per-member
// cooldowns such as nickname requests.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

// Add records an event at now and returns the count including it.
func (w *SlidingWindow) Add(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	w.hits = append(w.hits, now)
	return len(w.hits)
}

func (w *SlidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	return len(w.hits)
}

// Next returns when the oldest event leaves the window, or now when the window is empty.
func (w *SlidingWindow) Next(now time.Time) time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	if len(w.hits) == 0 {
		return now
	}
	return w.hits[0].Add(w.window)
}

// prune drops hits at or before now-window. Hits are appended in order.
func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for idx < len(w.hits) && !w.hits[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		w.hits = append(w.hits[:0], w.hits[idx:]...)
	}
}
