package websocket

import "time"

const (
	defaultBackoffBase    = 2 * time.Second
	defaultBackoffCeiling = 30 * time.Second
	defaultMaxAttempts    = 10
)

// DefaultBackoff provides the hub client reconnect defaults.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:        defaultBackoffBase,
		Ceiling:     defaultBackoffCeiling,
		MaxAttempts: defaultMaxAttempts,
	}
}

// IsZero reports whether no field of b was set.
func (b Backoff) IsZero() bool {
	return b.Base == 0 && b.Ceiling == 0 && b.MaxAttempts == 0
}

// Next returns the delay before the given attempt (1-based).
func (b Backoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	base := b.Base
	if base <= 0 {
		base = defaultBackoffBase
	}

	wait := base * time.Duration(attempt)
	if b.Ceiling > 0 && wait > b.Ceiling {
		wait = b.Ceiling
	}
	return wait
}

// Exhausted reports whether attempt goes past the configured ceiling.
func (b Backoff) Exhausted(attempt int) bool {
	return b.MaxAttempts > 0 && attempt > b.MaxAttempts
}
