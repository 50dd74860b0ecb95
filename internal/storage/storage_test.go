package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSessionCacheRoundTrip(t *testing.T) {
	t.Parallel()

	cache := NewSessionCache[string](time.Minute)
	t.Cleanup(cache.Close)

	if cache.Has("s1", "Minimee", "config") {
		t.Fatalf("expected empty cache")
	}
	if _, ok := cache.Get("s1", "Minimee", "config"); ok {
		t.Fatalf("expected miss")
	}

	cache.Set("s1", "Minimee", "config", "value")

	if !cache.Has("s1", "Minimee", "config") {
		t.Fatalf("expected entry")
	}
	got, ok := cache.Get("s1", "Minimee", "config")
	if !ok || got != "value" {
		t.Fatalf("expected value, got %q (%v)", got, ok)
	}
}

func TestSessionCacheScopesBySessionAndNamespace(t *testing.T) {
	t.Parallel()

	cache := NewSessionCache[int](time.Minute)
	t.Cleanup(cache.Close)

	cache.Set("s1", "Minimee", "config", 1)
	cache.Set("s2", "Minimee", "config", 2)
	cache.Set("s1", "Other", "config", 3)

	if got, _ := cache.Get("s2", "Minimee", "config"); got != 2 {
		t.Fatalf("expected session isolation, got %d", got)
	}
	if got, _ := cache.Get("s1", "Other", "config"); got != 3 {
		t.Fatalf("expected namespace isolation, got %d", got)
	}
	if cache.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", cache.Len())
	}

	cache.EndSession("s1")
	if cache.Has("s1", "Minimee", "config") || cache.Has("s1", "Other", "config") {
		t.Fatalf("expected session s1 to be cleared")
	}
	if !cache.Has("s2", "Minimee", "config") {
		t.Fatalf("other sessions must survive")
	}
}

func TestSessionCacheExpires(t *testing.T) {
	t.Parallel()

	cache := NewSessionCache[string](20 * time.Millisecond)
	t.Cleanup(cache.Close)

	cache.Set("s1", "Minimee", "config", "value")
	time.Sleep(60 * time.Millisecond)

	if cache.Has("s1", "Minimee", "config") {
		t.Fatalf("expected entry to expire")
	}
}

func TestSessionCacheDefaultTTL(t *testing.T) {
	t.Parallel()

	cache := NewSessionCache[string](0)
	t.Cleanup(cache.Close)

	cache.Set("s1", "Minimee", "config", "value")
	if !cache.Has("s1", "Minimee", "config") {
		t.Fatalf("zero ttl should fall back to the default")
	}
}

func TestSessionCacheConcurrentAccess(t *testing.T) {
	cache := NewSessionCache[int](time.Minute)
	t.Cleanup(cache.Close)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(2)

		go func(n int) {
			defer wg.Done()
			cache.Set(fmt.Sprintf("s%d", n), "Minimee", "config", n)
		}(i)

		go func(n int) {
			defer wg.Done()
			cache.Get(fmt.Sprintf("s%d", n), "Minimee", "config")
		}(i)
	}
	wg.Wait()

	if cache.Len() != 32 {
		t.Fatalf("expected 32 entries, got %d", cache.Len())
	}
}
