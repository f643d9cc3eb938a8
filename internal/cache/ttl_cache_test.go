package cache

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newWithClock[K comparable, V any](ttl time.Duration) (*TTLCache[K, V], *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	c := New[K, V](ttl)
	c.now = clock.Now
	return c, clock
}

func TestNew(t *testing.T) {
	ttl := 5 * time.Minute
	cache := New[string, int](ttl)

	if cache == nil {
		t.Fatal("New returned nil")
	}
	if cache.ttl != ttl {
		t.Errorf("TTL mismatch: got %v, want %v", cache.ttl, ttl)
	}
	if cache.Len() != 0 {
		t.Error("new cache should be empty")
	}
}

func TestSetAndGet(t *testing.T) {
	cache := New[string, int](time.Minute)

	cache.Set("roads", 42)

	value, ok := cache.Get("roads")
	if !ok {
		t.Fatal("Get returned ok=false for existing key")
	}
	if value != 42 {
		t.Errorf("Get returned wrong value: got %d, want 42", value)
	}

	if _, ok := cache.Get("rivers"); ok {
		t.Error("Get returned ok=true for non-existent key")
	}
}

func TestPerEntryExpiry(t *testing.T) {
	cache, clock := newWithClock[string, int](time.Minute)

	cache.Set("a", 1)
	clock.Advance(40 * time.Second)
	cache.Set("b", 2)
	clock.Advance(30 * time.Second)

	if _, ok := cache.Get("a"); ok {
		t.Error("entry a should have expired")
	}
	if v, ok := cache.Get("b"); !ok || v != 2 {
		t.Errorf("entry b = %d, %v; want 2, true", v, ok)
	}

	all := cache.GetAll()
	if len(all) != 1 || all["b"] != 2 {
		t.Errorf("GetAll() = %v, want map[b:2]", all)
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	cache, clock := newWithClock[string, int](0)
	cache.Set("a", 1)
	clock.Advance(24 * time.Hour)
	if _, ok := cache.Get("a"); !ok {
		t.Error("entry should not expire with zero TTL")
	}
}

func TestGetOrLoad(t *testing.T) {
	cache := New[string, int](time.Minute)
	calls := 0
	load := func() (int, error) {
		calls++
		return 7, nil
	}

	for i := 0; i < 3; i++ {
		v, err := cache.GetOrLoad("roads", load)
		if err != nil || v != 7 {
			t.Fatalf("GetOrLoad() = %d, %v; want 7, nil", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}

	wantErr := errors.New("no such table")
	if _, err := cache.GetOrLoad("missing", func() (int, error) { return 0, wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("GetOrLoad error = %v, want %v", err, wantErr)
	}
	if _, ok := cache.Get("missing"); ok {
		t.Error("failed load should not be cached")
	}
}

func TestDeleteAndInvalidate(t *testing.T) {
	cache := New[string, int](time.Minute)
	cache.Set("a", 1)
	cache.Set("b", 2)

	cache.Delete("a")
	if _, ok := cache.Get("a"); ok {
		t.Error("a should be gone after Delete")
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}

	cache.Invalidate()
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after Invalidate, want 0", cache.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	cache := New[int, int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Set(id*100+j, j)
				cache.Get(id * 100)
				cache.GetAll()
			}
		}(i)
	}
	wg.Wait()

	if cache.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", cache.Len())
	}
}
