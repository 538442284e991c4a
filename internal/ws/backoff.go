package ws

import "time"

const (
	DefaultBaseDelay  = 2 * time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultMaxRetries = 5
	DefaultHeartbeat  = 30 * time.Second
)

// Backoff computes reconnect delays that double per attempt up to Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before retry number attempt (0-indexed):
// min(Base * 2^attempt, Max).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := b.Base
	for i := 0; i < attempt; i++ {
		if d >= b.Max {
			return b.Max
		}
		d *= 2
	}
	if d > b.Max {
		return b.Max
	}
	return d
}
