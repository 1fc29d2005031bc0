package cooldown

import (
	"sync"
	"time"

	"lilyguard/internal/utils"
)

// Module limits how often a key may act within a sliding window.
type Module struct {
	mu      sync.Mutex
	windows map[string]*utils.SlidingWindow
	window  time.Duration
	limit   int
	now     func() time.Time
}

func New(limit int, window time.Duration) *Module {
	if window <= 0 {
		window = 10 * time.Minute
	}
	if limit <= 0 {
		limit = 3
	}
	return &Module{windows: make(map[string]*utils.SlidingWindow), window: window, limit: limit, now: time.Now}
}

// Allow records an attempt for guildID/userID and reports whether it stays within the limit.
// Rejected attempts are not counted.
func (m *Module) Allow(guildID, userID string) bool {
	window := m.getWindow(guildID + ":" + userID)
	now := m.now()
	if window.Count(now) >= m.limit {
		return false
	}
	window.Add(now)
	return true
}

func (m *Module) getWindow(key string) *utils.SlidingWindow {
	m.mu.Lock()
	defer m.mu.Unlock()
	window := m.windows[key]
	if window == nil {
		window = utils.NewSlidingWindow(m.window)
		m.windows[key] = window
	}
	return window
}

// RetryAt returns when guildID/userID may act again.
func (m *Module) RetryAt(guildID, userID string) time.Time {
	return m.getWindow(guildID + ":" + userID).Next(m.now())
}
