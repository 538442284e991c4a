package chat

import (
	"sync"
	"time"
)

const DefaultTypingDebounce = 2 * time.Second

// composer turns composer input into typing start/stop notifications:
// start on every non-empty input, stop after debounce of silence or at
// once when the input is cleared.
type composer struct {
	mu       sync.Mutex
	debounce time.Duration
	notify   func(typing bool)
	timer    *time.Timer
	gen      int
	closed   bool
}

func newComposer(debounce time.Duration, notify func(typing bool)) *composer {
	if debounce <= 0 {
		debounce = DefaultTypingDebounce
	}
	return &composer{debounce: debounce, notify: notify}
}

func (c *composer) input(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.cancel()
	if text == "" {
		c.notify(false)
		return
	}

	c.notify(true)
	gen := c.gen
	c.timer = time.AfterFunc(c.debounce, func() { c.expire(gen) })
}

func (c *composer) expire(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A newer keystroke or a clear already superseded this timer.
	if c.closed || gen != c.gen {
		return
	}
	c.timer = nil
	c.notify(false)
}

// cancel invalidates the pending timer. Callers hold mu.
func (c *composer) cancel() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *composer) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
	c.closed = true
}
