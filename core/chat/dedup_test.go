package chat

import (
	"fmt"
	"testing"
)

func TestDedupCacheSeen(t *testing.T) {
	c := NewDedupCache(10)

	if c.Seen("inv-1") {
		t.Error("Seen() = true on first insertion")
	}
	if !c.Seen("inv-1") {
		t.Error("Seen() = false on re-insertion")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestDedupCacheIncrementalEviction(t *testing.T) {
	c := NewDedupCache(3)

	for i := 0; i < 4; i++ {
		c.Seen(fmt.Sprintf("k%d", i))
	}

	// only the oldest key fell out; the rest survived the overflow
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	if !c.Seen("k3") || !c.Seen("k2") || !c.Seen("k1") {
		t.Error("recent keys were evicted")
	}
	if c.Seen("k0") {
		t.Error("oldest key k0 was not evicted")
	}
}

func TestDedupCacheLRUTouch(t *testing.T) {
	c := NewDedupCache(2)

	c.Seen("a")
	c.Seen("b")
	c.Seen("a") // touch: a becomes most recent
	c.Seen("c") // evicts b

	if c.Seen("b") {
		t.Error("b should have been evicted")
	}
	// note: the check above re-admitted b, evicting a
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestDedupCacheReset(t *testing.T) {
	c := NewDedupCache(10)

	c.Seen("inv-1")
	c.Reset()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Reset, want 0", c.Len())
	}
	if c.Seen("inv-1") {
		t.Error("key survived Reset()")
	}
}

func TestDedupCacheDefaultCapacity(t *testing.T) {
	c := NewDedupCache(0)

	for i := 0; i <= DefaultDedupCapacity; i++ {
		c.Seen(fmt.Sprintf("k%d", i))
	}
	if c.Len() != DefaultDedupCapacity {
		t.Errorf("Len() = %d, want %d", c.Len(), DefaultDedupCapacity)
	}
}

func TestMessageEventDedupKey(t *testing.T) {
	tests := []struct {
		name string
		ev   MessageEvent
		want string
	}{
		{
			name: "invocation id wins",
			ev:   MessageEvent{Sender: SenderAgent, Content: "hi", Timestamp: "2024-01-01T00:00:00Z", InvocationID: "inv-1"},
			want: "inv-1",
		},
		{
			name: "composite fallback",
			ev:   MessageEvent{Sender: SenderAgent, Content: "hi", Timestamp: "2024-01-01T00:00:00Z"},
			want: "agent|hi|2024-01-01T00:00:00Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.DedupKey(); got != tt.want {
				t.Errorf("DedupKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
