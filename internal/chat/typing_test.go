package chat

import (
	"testing"
	"time"
)

func TestTypingSet(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	set := NewTypingSet(10 * time.Second)
	set.now = func() time.Time { return now }

	set.Set("a", true)
	set.Set("b", true)
	set.Set("a", true)
	if got := set.Members(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Members() = %v, want [a b]", got)
	}

	set.Set("a", false)
	set.Set("c", false)
	if got := set.Members(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("Members() after stop = %v, want [b]", got)
	}

	now = now.Add(6 * time.Second)
	set.Set("c", true)
	now = now.Add(6 * time.Second)
	if got := set.Members(); len(got) != 1 || got[0] != "c" {
		t.Fatalf("Members() after expiry = %v, want [c]", got)
	}

	set.Clear()
	if got := set.Members(); len(got) != 0 {
		t.Errorf("Members() after Clear = %v", got)
	}
}

func TestTypingSet_NoExpiry(t *testing.T) {
	now := time.Now()
	set := NewTypingSet(0)
	set.now = func() time.Time { return now }

	set.Set("a", true)
	now = now.Add(time.Hour)
	if got := set.Members(); len(got) != 1 {
		t.Errorf("entry expired with ttl 0: %v", got)
	}
}

func TestTypingText(t *testing.T) {
	tests := []struct {
		name    string
		members []string
		want    string
	}{
		{"Nobody", nil, ""},
		{"Only self", []string{"me"}, ""},
		{"One", []string{"alice"}, "alice is typing..."},
		{"Two", []string{"alice", "me", "bob"}, "alice and bob are typing..."},
		{"Many", []string{"alice", "bob", "carol", "dave"}, "alice, bob and others are typing..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TypingText(tt.members, "me"); got != tt.want {
				t.Errorf("TypingText() = %q, want %q", got, tt.want)
			}
		})
	}
}
