package telegram

import (
	"sync"
	"time"
)

// cooldown enforces a per-user minimum interval between invocations.
type cooldown struct {
	mu       sync.Mutex
	per      time.Duration
	lastUsed map[int64]time.Time
	now      func() time.Time
}

func newCooldown(per time.Duration) *cooldown {
	return &cooldown{
		per:      per,
		lastUsed: make(map[int64]time.Time),
		now:      time.Now,
	}
}

// allow reports whether the user may invoke now and, if so, starts their
// cooldown window.
func (c *cooldown) allow(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.lastUsed[userID]; ok && now.Sub(last) < c.per {
		return false
	}
	c.lastUsed[userID] = now
	return true
}
