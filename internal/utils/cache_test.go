package utils

import (
	"fmt"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	cache := NewTTLCache(10, time.Minute)

	cache.Set("key", "value")

	got, ok := cache.Get("key")
	if !ok || got.(string) != "value" {
		t.Errorf("expected cache hit with 'value', got %v (hit=%v)", got, ok)
	}

	if _, ok := cache.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := NewTTLCache(10, 10*time.Millisecond)

	cache.Set("key", "value")
	time.Sleep(20 * time.Millisecond)

	if _, ok := cache.Get("key"); ok {
		t.Error("expected entry to expire")
	}
}

func TestCacheEviction(t *testing.T) {
	cache := NewTTLCache(3, time.Minute)

	for i := 0; i < 5; i++ {
		cache.Set(fmt.Sprintf("key%d", i), i)
	}

	if cache.Size() != 3 {
		t.Errorf("expected size 3 after eviction, got %d", cache.Size())
	}

	// Oldest entries must be gone
	if _, ok := cache.Get("key0"); ok {
		t.Error("key0 should have been evicted")
	}
	if _, ok := cache.Get("key4"); !ok {
		t.Error("key4 should still be present")
	}
}

func TestCacheUpdateMovesToFront(t *testing.T) {
	cache := NewTTLCache(2, time.Minute)

	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Set("a", 3) // refresh a
	cache.Set("c", 4) // evicts b, not a

	if _, ok := cache.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if got, ok := cache.Get("a"); !ok || got.(int) != 3 {
		t.Errorf("a should hold updated value 3, got %v", got)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := NewTTLCache(100, time.Minute)
	done := make(chan bool, 40)

	for i := 0; i < 20; i++ {
		go func(n int) {
			cache.Set(fmt.Sprintf("key%d", n), n)
			done <- true
		}(i)
		go func(n int) {
			cache.Get(fmt.Sprintf("key%d", n))
			done <- true
		}(i)
	}

	for i := 0; i < 40; i++ {
		<-done
	}
}
