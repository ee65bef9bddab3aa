package satchel

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a client allocates fresh sessions faster
// than the configured rate.
var ErrRateLimited = errors.New("satchel: session allocation rate limit exceeded")

type rateWindow struct {
	start time.Time
	count int
}

// RateLimiter is a fixed-window counter keyed by client address.
type RateLimiter struct {
	windows map[string]rateWindow
	mutex   sync.Mutex
	now     func() time.Time
}

func NewRateLimiter(clock Clock) *RateLimiter {
	if clock == nil {
		clock = SystemClock
	}
	return &RateLimiter{
		windows: make(map[string]rateWindow),
		now:     clock.Now,
	}
}

// Check records an attempt for key and reports whether it is within limit
// for the current window. A rejected attempt is not counted.
func (rl *RateLimiter) Check(key string, limit int, period time.Duration) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= period {
		rl.windows[key] = rateWindow{start: now, count: 1}
		return true
	}
	if w.count >= limit {
		return false
	}
	w.count++
	rl.windows[key] = w
	return true
}

// Prune forgets windows that started more than maxAge ago.
func (rl *RateLimiter) Prune(maxAge time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		if now.Sub(w.start) > maxAge {
			delete(rl.windows, key)
		}
	}
}
