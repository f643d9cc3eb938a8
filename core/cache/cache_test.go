package cache

import (
	"sync"
	"testing"
	"time"
)

func TestLRUCache_BasicOperations(t *testing.T) {
	cache := NewLRUCache[int64, string](Config{MaxSize: 3})

	cache.Put(1, "one")
	cache.Put(2, "two")
	cache.Put(3, "three")

	for id, want := range map[int64]string{1: "one", 2: "two", 3: "three"} {
		if v, ok := cache.Get(id); !ok || v != want {
			t.Errorf("Get(%d) = %q, %v; want %q, true", id, v, ok, want)
		}
	}

	if _, ok := cache.Get(4); ok {
		t.Error("Get(4) should return false")
	}

	if n := cache.Len(); n != 3 {
		t.Errorf("Len() = %d; want 3", n)
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := NewLRUCache[int64, int](Config{MaxSize: 2})

	cache.Put(1, 1)
	cache.Put(2, 2)
	cache.Put(3, 3) // evicts 1

	if _, ok := cache.Get(1); ok {
		t.Error("Get(1) should return false after eviction")
	}

	cache.Get(2)    // 2 becomes most recent
	cache.Put(4, 4) // evicts 3

	if _, ok := cache.Get(3); ok {
		t.Error("Get(3) should return false after eviction")
	}
	if v, ok := cache.Get(2); !ok || v != 2 {
		t.Errorf("Get(2) = %d, %v; want 2, true", v, ok)
	}
	if v, ok := cache.Get(4); !ok || v != 4 {
		t.Errorf("Get(4) = %d, %v; want 4, true", v, ok)
	}
}

func TestLRUCache_OnlyMostRecentRemain(t *testing.T) {
	const capacity = 5
	cache := NewLRUCache[int64, int64](Config{MaxSize: capacity})

	for id := int64(1); id <= 20; id++ {
		cache.Put(id, id)
	}

	if n := cache.Len(); n != capacity {
		t.Fatalf("Len() = %d; want %d", n, capacity)
	}

	want := []int64{20, 19, 18, 17, 16}
	got := cache.Keys()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v; want %v", got, want)
		}
	}
}

func TestLRUCache_Update(t *testing.T) {
	cache := NewLRUCache[int64, string](Config{MaxSize: 2})

	cache.Put(7, "a")
	cache.Put(7, "b")

	if v, ok := cache.Get(7); !ok || v != "b" {
		t.Errorf("Get(7) = %q, %v; want b, true", v, ok)
	}
	if n := cache.Len(); n != 1 {
		t.Errorf("Len() = %d; want 1", n)
	}
}

func TestLRUCache_RemoveAndClear(t *testing.T) {
	cache := NewLRUCache[int64, int](Config{MaxSize: 3})
	cache.Put(1, 1)
	cache.Put(2, 2)
	cache.Put(3, 3)

	if !cache.Remove(2) {
		t.Error("Remove(2) should report true")
	}
	if cache.Remove(42) {
		t.Error("Remove(42) should report false")
	}
	if _, ok := cache.Get(2); ok {
		t.Error("Get(2) should return false after Remove")
	}
	if n := cache.Len(); n != 2 {
		t.Errorf("Len() = %d; want 2", n)
	}

	cache.Clear()
	if n := cache.Len(); n != 0 {
		t.Errorf("Len() = %d; want 0 after Clear", n)
	}
}

func TestLRUCache_Peek(t *testing.T) {
	cache := NewLRUCache[int64, int](Config{MaxSize: 2})
	cache.Put(1, 1)
	cache.Put(2, 2)

	// Peek does not refresh recency, so 1 is still evicted next.
	if v, ok := cache.Peek(1); !ok || v != 1 {
		t.Errorf("Peek(1) = %d, %v; want 1, true", v, ok)
	}
	cache.Put(3, 3)
	if _, ok := cache.Peek(1); ok {
		t.Error("Peek(1) should miss after eviction")
	}
}

func TestLRUCache_Resize(t *testing.T) {
	cache := NewLRUCache[int64, int](Config{MaxSize: 10})
	for id := int64(1); id <= 10; id++ {
		cache.Put(id, int(id))
	}
	cache.Get(1) // 1 is now most recent

	evicted := cache.Resize(3)
	if evicted != 7 {
		t.Errorf("Resize(3) evicted %d; want 7", evicted)
	}
	if n := cache.Len(); n != 3 {
		t.Fatalf("Len() = %d; want 3", n)
	}
	for _, id := range []int64{1, 10, 9} {
		if _, ok := cache.Peek(id); !ok {
			t.Errorf("expected %d to survive resize", id)
		}
	}

	if evicted := cache.Resize(20); evicted != 0 {
		t.Errorf("growing evicted %d entries", evicted)
	}
	if got := cache.Stats().MaxSize; got != 20 {
		t.Errorf("MaxSize = %d; want 20", got)
	}
}

func TestLRUCache_RemoveOldest(t *testing.T) {
	cache := NewLRUCache[int64, int](Config{})
	if _, _, ok := cache.RemoveOldest(); ok {
		t.Error("RemoveOldest on empty cache should report false")
	}

	cache.Put(1, 10)
	cache.Put(2, 20)
	k, v, ok := cache.RemoveOldest()
	if !ok || k != 1 || v != 10 {
		t.Errorf("RemoveOldest() = %d, %d, %v; want 1, 10, true", k, v, ok)
	}
}

func TestLRUCache_TTL(t *testing.T) {
	cache := NewLRUCache[int64, int](Config{MaxSize: 3, TTL: 50 * time.Millisecond})

	cache.Put(1, 1)
	if v, ok := cache.Get(1); !ok || v != 1 {
		t.Errorf("Get(1) = %d, %v; want 1, true", v, ok)
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get(1); ok {
		t.Error("Get(1) should return false after TTL expiration")
	}
}

func TestLRUCache_Stats(t *testing.T) {
	cache := NewLRUCache[int64, int](Config{MaxSize: 2})

	cache.Put(1, 1)
	cache.Put(2, 2)
	cache.Get(1)
	cache.Get(2)
	cache.Get(3)
	cache.Get(4)
	cache.Put(3, 3) // evicts 1

	stats := cache.Stats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d; want 2", stats.Hits)
	}
	if stats.Misses != 2 {
		t.Errorf("Misses = %d; want 2", stats.Misses)
	}
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d; want 1", stats.Evictions)
	}
	if stats.Size != 2 || stats.MaxSize != 2 {
		t.Errorf("Size/MaxSize = %d/%d; want 2/2", stats.Size, stats.MaxSize)
	}
}

func TestLRUCache_OnEvict(t *testing.T) {
	var evicted []int64
	cache := NewLRUCache[int64, int](Config{
		MaxSize: 2,
		OnEvict: func(key, value interface{}) {
			evicted = append(evicted, key.(int64))
		},
	})

	cache.Put(1, 1)
	cache.Put(2, 2)
	cache.Put(3, 3)

	if len(evicted) != 1 || evicted[0] != 1 {
		t.Errorf("evicted = %v; want [1]", evicted)
	}
}

func TestLRUCache_NegativeMaxSize(t *testing.T) {
	cache := NewLRUCache[int64, int](Config{MaxSize: -1})
	for id := int64(0); id < 100; id++ {
		cache.Put(id, int(id))
	}
	if n := cache.Len(); n != 100 {
		t.Errorf("Len() = %d; want 100", n)
	}
}

func TestLRUCache_Concurrency(t *testing.T) {
	cache := NewLRUCache[int64, int64](Config{MaxSize: 100})

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(2)
		go func(base int64) {
			defer wg.Done()
			for j := int64(0); j < 100; j++ {
				cache.Put(base*100+j, j)
			}
		}(int64(g))
		go func(base int64) {
			defer wg.Done()
			for j := int64(0); j < 100; j++ {
				cache.Get(base*100 + j)
			}
		}(int64(g))
	}
	wg.Wait()

	if n := cache.Len(); n > 100 {
		t.Errorf("Len() = %d; want <= 100", n)
	}
}

func TestBoundedCache_ByteLimit(t *testing.T) {
	cache := NewBoundedCache[int64, []byte](Config{}, 10, func(b []byte) int64 { return int64(len(b)) })

	cache.Put(1, make([]byte, 4))
	cache.Put(2, make([]byte, 4))
	if got := cache.Bytes(); got != 8 {
		t.Fatalf("Bytes() = %d; want 8", got)
	}

	// Needs 4 more bytes: the oldest entry goes.
	cache.Put(3, make([]byte, 4))
	if _, ok := cache.Get(1); ok {
		t.Error("entry 1 should have been evicted to respect the byte limit")
	}
	if got := cache.Bytes(); got != 8 {
		t.Errorf("Bytes() = %d; want 8", got)
	}

	// Larger than the whole limit: never cached.
	cache.Put(4, make([]byte, 11))
	if _, ok := cache.Get(4); ok {
		t.Error("oversized value should not be cached")
	}
}

func TestBoundedCache_ReplaceRemoveClear(t *testing.T) {
	cache := NewBoundedCache[int64, []byte](Config{MaxSize: 10}, 100, func(b []byte) int64 { return int64(len(b)) })

	cache.Put(1, make([]byte, 10))
	cache.Put(1, make([]byte, 20))
	if got := cache.Bytes(); got != 20 {
		t.Errorf("Bytes() after replace = %d; want 20", got)
	}

	cache.Put(2, make([]byte, 5))
	cache.Remove(1)
	if got := cache.Bytes(); got != 5 {
		t.Errorf("Bytes() after remove = %d; want 5", got)
	}
	if n := cache.Len(); n != 1 {
		t.Errorf("Len() = %d; want 1", n)
	}

	stats := cache.Stats()
	if stats.TotalBytes != 5 {
		t.Errorf("Stats().TotalBytes = %d; want 5", stats.TotalBytes)
	}

	cache.Clear()
	if cache.Len() != 0 || cache.Bytes() != 0 {
		t.Errorf("after Clear: Len=%d Bytes=%d; want 0, 0", cache.Len(), cache.Bytes())
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.MaxSize != 1000 {
		t.Errorf("MaxSize = %d; want 1000", config.MaxSize)
	}
	if config.TTL != 0 {
		t.Errorf("TTL = %v; want 0", config.TTL)
	}
}
