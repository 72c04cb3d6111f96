package chat

import (
	"sync"
	"time"
)

const rateWindow = time.Minute

// RateLimiter counts message attempts per user in a trailing one-minute
// window. State is partitioned per user so one user's checks never
// contend with another's.
type RateLimiter struct {
	mu      sync.RWMutex
	windows map[int]*rateWindowState
	now     func() time.Time
}

type rateWindowState struct {
	mu       sync.Mutex
	attempts []time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[int]*rateWindowState),
		now:     time.Now,
	}
}

// Allow reports whether the user is under limitPerMinute. A rejected
// attempt is not recorded, so hammering while limited does not extend
// the window. The limit is assumed positive; the settings provider
// clamps non-positive values before they reach here.
func (rl *RateLimiter) Allow(userId, limitPerMinute int) bool {
	w := rl.window(userId)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rateWindow)

	kept := w.attempts[:0]
	for _, t := range w.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.attempts = kept

	if len(w.attempts) >= limitPerMinute {
		return false
	}

	w.attempts = append(w.attempts, now)
	return true
}

func (rl *RateLimiter) window(userId int) *rateWindowState {
	rl.mu.RLock()
	w, ok := rl.windows[userId]
	rl.mu.RUnlock()
	if ok {
		return w
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if w, ok := rl.windows[userId]; ok {
		return w
	}

	w = &rateWindowState{}
	rl.windows[userId] = w
	return w
}
