package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "primary:matches", loader)
			if err != nil {
				errCh <- err
				return
			}
			if v != "value" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_RefreshesAfterTTL(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 5, 2, 20, 0, 0, 0, time.UTC)}
	store := NewStore[int](10*time.Minute, WithClock[int](clock.Now))
	var calls atomic.Int32
	loader := func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}

	ctx := context.Background()
	first, _ := store.GetOrLoad(ctx, "k", loader)
	clock.Advance(10*time.Minute - time.Millisecond)
	second, _ := store.GetOrLoad(ctx, "k", loader)
	if first != 1 || second != 1 {
		t.Fatalf("expected cached value within TTL, got %d then %d", first, second)
	}

	clock.Advance(time.Millisecond)
	third, _ := store.GetOrLoad(ctx, "k", loader)
	if third != 2 {
		t.Fatalf("expected reload at TTL boundary, got %d", third)
	}
}

func TestStore_LoaderErrorIsNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	boom := errors.New("upstream down")
	if _, err := store.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
		return "", boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Fatalf("failed load must not populate the cache")
	}
}

func TestStore_PeekSurvivesExpiry(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 5, 2, 20, 0, 0, 0, time.UTC)}
	store := NewStore[string](time.Second, WithClock[string](clock.Now))
	store.Set(context.Background(), "catalog", "v1")
	clock.Advance(time.Hour)

	value, storedAt, ok := store.Peek("catalog")
	if !ok || value != "v1" {
		t.Fatalf("Peek = %q, %v", value, ok)
	}
	if !storedAt.Equal(time.Date(2026, 5, 2, 20, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected storedAt %s", storedAt)
	}
	if _, ok := store.Get(context.Background(), "catalog"); ok {
		t.Fatalf("Get must not return expired entry")
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore[int](0)
	store.Set(ctx, "viewers:alpha:1", 10)
	store.Set(ctx, "viewers:alpha:2", 20)
	store.Set(ctx, "viewers:bravo:1", 30)

	if n := store.DeletePrefix(ctx, "viewers:alpha:"); n != 2 {
		t.Fatalf("DeletePrefix removed %d, want 2", n)
	}
	store.Delete(ctx, "viewers:bravo:1")
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}

	store.SetWithTTL(ctx, "a", 1, time.Minute)
	store.Set(ctx, "b", 2)
	if n := store.Clear(); n != 2 {
		t.Fatalf("Clear removed %d, want 2", n)
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")
