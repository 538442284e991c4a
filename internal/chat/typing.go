package chat

import (
	"fmt"
	"time"
)

// TypingSet tracks who is typing in the active conversation, in the order
// they started. An entry expires ttl after its last refresh; ttl 0 keeps it
// until a stop event arrives.
//
// TypingSet is not safe for concurrent use; Conversation guards it.
type TypingSet struct {
	ttl     time.Duration
	now     func() time.Time
	order   []string
	touched map[string]time.Time
}

func NewTypingSet(ttl time.Duration) *TypingSet {
	return &TypingSet{
		ttl:     ttl,
		now:     time.Now,
		touched: make(map[string]time.Time),
	}
}

// Set records a typing start (refreshing an existing entry in place) or stop.
func (t *TypingSet) Set(sender string, typing bool) {
	if !typing {
		t.remove(sender)
		return
	}
	if _, ok := t.touched[sender]; !ok {
		t.order = append(t.order, sender)
	}
	t.touched[sender] = t.now()
}

func (t *TypingSet) remove(sender string) {
	if _, ok := t.touched[sender]; !ok {
		return
	}
	delete(t.touched, sender)
	for i, s := range t.order {
		if s == sender {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

// Members returns the senders still typing, expiring stale entries first.
func (t *TypingSet) Members() []string {
	if t.ttl > 0 {
		cutoff := t.now().Add(-t.ttl)
		for _, s := range append([]string(nil), t.order...) {
			if t.touched[s].Before(cutoff) {
				t.remove(s)
			}
		}
	}
	return append([]string(nil), t.order...)
}

func (t *TypingSet) Clear() {
	t.order = nil
	t.touched = make(map[string]time.Time)
}

// TypingText renders the indicator line for members, leaving out self.
func TypingText(members []string, self string) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		if m != self {
			names = append(names, m)
		}
	}

	switch len(names) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s is typing...", names[0])
	case 2:
		return fmt.Sprintf("%s and %s are typing...", names[0], names[1])
	default:
		return fmt.Sprintf("%s, %s and others are typing...", names[0], names[1])
	}
}
