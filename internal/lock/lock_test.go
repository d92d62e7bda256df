package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAcquireContention(t *testing.T) {
	store := NewMemoryStore()
	a := New(store, "load_stock_prices", nil)
	b := New(store, "load_stock_prices", nil)

	ctx := context.Background()

	okA, err := a.Acquire(ctx, false, 0)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !okA {
		t.Fatal("first acquirer must succeed")
	}

	// The loser's non-blocking acquisition returns false immediately.
	start := time.Now()
	okB, err := b.Acquire(ctx, false, 0)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if okB {
		t.Error("second acquirer must fail while lock is held")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("non-blocking acquire must not wait")
	}
}

func TestConcurrentAcquireExactlyOneWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const handles = 8
	results := make([]bool, handles)
	var wg sync.WaitGroup
	for i := 0; i < handles; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l := New(store, "shared", nil)
			ok, err := l.Acquire(ctx, false, 0)
			if err != nil {
				t.Errorf("Acquire: %v", err)
			}
			results[i] = ok
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, ok := range results {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}

func TestBlockingAcquireTimesOut(t *testing.T) {
	store := NewMemoryStore()
	holder := New(store, "held", nil)
	if ok, _ := holder.Acquire(context.Background(), false, 0); !ok {
		t.Fatal("setup: holder could not acquire")
	}

	waiter := New(store, "held", &Options{RetryInterval: 10 * time.Millisecond})
	start := time.Now()
	ok, err := waiter.Acquire(context.Background(), true, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("blocking acquire must not error on timeout: %v", err)
	}
	if ok {
		t.Error("waiter must not acquire a held lock")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("returned after %s, before the timeout", elapsed)
	}
}

func TestBlockingAcquireSucceedsAfterRelease(t *testing.T) {
	store := NewMemoryStore()
	holder := New(store, "handoff", nil)
	if ok, _ := holder.Acquire(context.Background(), false, 0); !ok {
		t.Fatal("setup: holder could not acquire")
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = holder.Release(context.Background())
	}()

	waiter := New(store, "handoff", &Options{RetryInterval: 5 * time.Millisecond})
	ok, err := waiter.Acquire(context.Background(), true, time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Error("waiter should acquire after holder releases")
	}
}

func TestReleaseOnlyByOwner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	stale := New(store, "expiring", nil)
	if ok, _ := stale.Acquire(ctx, false, 0); !ok {
		t.Fatal("setup: could not acquire")
	}

	// Lease expires and another runner takes over.
	store.Expire(stale.Name())
	current := New(store, "expiring", nil)
	if ok, _ := current.Acquire(ctx, false, 0); !ok {
		t.Fatal("setup: re-acquisition after expiry failed")
	}

	// The stale handle's token no longer matches: release is a no-op.
	released, err := stale.Release(ctx)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if released {
		t.Error("stale handle must not release a re-acquired lock")
	}

	// The new holder's lock is intact.
	intruder := New(store, "expiring", nil)
	if ok, _ := intruder.Acquire(ctx, false, 0); ok {
		t.Error("lock should still be held by the new owner")
	}

	if released, _ := current.Release(ctx); !released {
		t.Error("current owner's release should succeed")
	}
}

func TestWithLockReleasesOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	opErr := errors.New("load failed")
	l := New(store, "guarded", nil)
	err := l.WithLock(ctx, func(ctx context.Context) error {
		return opErr
	})
	if !errors.Is(err, opErr) {
		t.Errorf("WithLock must propagate the inner error: %v", err)
	}

	// Lock must be free again.
	next := New(store, "guarded", nil)
	if ok, _ := next.Acquire(ctx, false, 0); !ok {
		t.Error("lock held after WithLock returned")
	}
}

func TestWithLockTimeoutError(t *testing.T) {
	store := NewMemoryStore()
	holder := New(store, "busy", nil)
	if ok, _ := holder.Acquire(context.Background(), false, 0); !ok {
		t.Fatal("setup: holder could not acquire")
	}

	waiter := New(store, "busy", &Options{Lease: 40 * time.Millisecond, RetryInterval: 10 * time.Millisecond})
	err := waiter.WithLock(context.Background(), func(ctx context.Context) error {
		t.Error("fn must not run when acquisition fails")
		return nil
	})

	var timeoutErr *AcquisitionTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("want *AcquisitionTimeoutError, got %v", err)
	}
	if timeoutErr.Name != KeyPrefix+"busy" {
		t.Errorf("error names %q, want namespaced key", timeoutErr.Name)
	}
	if timeoutErr.Elapsed <= 0 {
		t.Error("elapsed wait not recorded")
	}
}

func TestLockKeyNamespacing(t *testing.T) {
	l := New(NewMemoryStore(), "load_daily_prices", nil)
	if l.Name() != "etl:lock:load_daily_prices" {
		t.Errorf("Name = %q", l.Name())
	}
}

func TestOwnerTokensAreUnique(t *testing.T) {
	store := NewMemoryStore()
	a := New(store, "x", nil)
	b := New(store, "x", nil)
	if a.token == b.token {
		t.Error("handles must have distinct owner tokens")
	}
}
