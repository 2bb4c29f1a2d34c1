package schedcache

import (
	"sync"
	"testing"
	"time"
)

func TestRoundTripAndExpiry(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return now }))

	c.Set("schedule:2501:false", "payload", time.Hour)
	v, ok := c.Get("schedule:2501:false")
	if !ok || v != "payload" {
		t.Fatalf("immediate get: %v, %v", v, ok)
	}

	// Just before expiry it is still there.
	now = now.Add(time.Hour - time.Second)
	if _, ok := c.Get("schedule:2501:false"); !ok {
		t.Fatalf("expected hit just before TTL")
	}

	// At/after expiry the entry is lazily evicted.
	now = now.Add(2 * time.Second)
	if _, ok := c.Get("schedule:2501:false"); ok {
		t.Fatalf("expected miss after TTL")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted, len=%d", c.Len())
	}
}

func TestMissOnUnknownKey(t *testing.T) {
	c := New()
	if _, ok := c.Get("nope"); ok {
		t.Fatalf("expected miss")
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Hour)
	c.Set("b", 2, time.Hour)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("clear left %d entries", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected miss after clear")
	}
}

func TestOverwriteExtendsTTL(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return now }))

	c.Set("k", "old", time.Minute)
	c.Set("k", "new", time.Hour)

	now = now.Add(30 * time.Minute)
	v, ok := c.Get("k")
	if !ok || v != "new" {
		t.Fatalf("expected overwritten value to survive, got %v, %v", v, ok)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("shared", n, time.Hour)
				c.Get("shared")
				if j%25 == 0 {
					c.Clear()
				}
			}
		}(i)
	}
	wg.Wait()
}
