// Package throttle suppresses repeated requests of the same kind inside a
// minimum interval.
package throttle

import (
	"sync"
	"time"
)

// Guard tracks the last allowed request per kind.
type Guard struct {
	mu   sync.Mutex
	now  func() time.Time
	last map[string]time.Time
}

// NewGuard creates a Guard reading time from now. A nil now uses time.Now.
func NewGuard(now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{
		now:  now,
		last: make(map[string]time.Time),
	}
}

// Attempt reports whether a request of kind may proceed. An allowed request
// records the current time; a suppressed one leaves the record untouched.
func (g *Guard) Attempt(kind string, minInterval time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.last[kind]; ok && now.Sub(last) < minInterval {
		return false
	}
	g.last[kind] = now
	return true
}

// Reset forgets the last request of kind.
func (g *Guard) Reset(kind string) {
	g.mu.Lock()
	delete(g.last, kind)
	g.mu.Unlock()
}
