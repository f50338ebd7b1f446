package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCheckDailyLimit(t *testing.T) {
	ctx := context.Background()
	noon := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(NewMemoryStore()).WithClock(fixedClock(noon))

	const limit = 60
	for i := 1; i <= limit; i++ {
		res, err := l.Check(ctx, "acct-1", limit)
		if err != nil {
			t.Fatalf("Check #%d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d of %d should be allowed", i, limit)
		}
		if res.Remaining != limit-i {
			t.Fatalf("request %d: Remaining = %d, want %d", i, res.Remaining, limit-i)
		}
	}

	// The 61st request in the window is denied.
	res, err := l.Check(ctx, "acct-1", limit)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Error("request over the limit must be denied")
	}
	if res.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", res.Remaining)
	}

	wantReset := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if !res.ResetAt.Equal(wantReset) {
		t.Errorf("ResetAt = %v, want %v", res.ResetAt, wantReset)
	}
}

func TestCheckResetAtIsStableAcrossHits(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	store := NewMemoryStore()

	first, err := New(store).WithClock(fixedClock(base)).Check(ctx, "acct-2", 10)
	if err != nil {
		t.Fatal(err)
	}
	later, err := New(store).WithClock(fixedClock(base.Add(9 * time.Hour))).Check(ctx, "acct-2", 10)
	if err != nil {
		t.Fatal(err)
	}
	if !first.ResetAt.Equal(later.ResetAt) {
		t.Errorf("ResetAt moved between hits: %v vs %v", first.ResetAt, later.ResetAt)
	}
}

func TestCheckNewWindowStartsFresh(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	day1 := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)

	l := New(store).WithClock(fixedClock(day1))
	for i := 0; i < 3; i++ {
		if _, err := l.Check(ctx, "acct-3", 3); err != nil {
			t.Fatal(err)
		}
	}

	res, err := New(store).WithClock(fixedClock(day2)).Check(ctx, "acct-3", 3)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.Remaining != 2 {
		t.Errorf("new window should reset the count, got %+v", res)
	}
}

func TestCheckIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	noon := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(NewMemoryStore()).WithClock(fixedClock(noon))

	if _, err := l.Check(ctx, "acct-a", 1); err != nil {
		t.Fatal(err)
	}
	res, err := l.Check(ctx, "acct-b", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Error("one caller's traffic must not count against another")
	}
}

func TestMemoryStoreConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if _, err := store.Incr(ctx, "shared", time.Hour); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	final, err := store.Incr(ctx, "shared", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(goroutines*perGoroutine + 1); final != want {
		t.Errorf("count = %d, want %d (lost updates)", final, want)
	}
}

func TestRedisStoreParity(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	noon := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(NewRedisStore(client)).WithClock(fixedClock(noon))

	const limit = 3
	for i := 1; i <= limit; i++ {
		res, err := l.Check(ctx, "acct-r", limit)
		if err != nil {
			t.Fatalf("Check #%d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	res, err := l.Check(ctx, "acct-r", limit)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.Remaining != 0 {
		t.Errorf("over-limit check: got %+v", res)
	}

	// The key must carry a TTL so counters never outlive their window
	// plus the grace margin.
	if mr.TTL("ratelimit:acct-r:2025-06-01") <= 0 {
		t.Error("expected a TTL on the redis counter key")
	}
}
