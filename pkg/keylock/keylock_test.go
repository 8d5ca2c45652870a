package keylock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	l := New()

	release, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 live key, got %d", l.Len())
	}

	release()
	if l.Len() != 0 {
		t.Fatalf("expected lock table to be empty after release, got %d", l.Len())
	}

	// Double release must be a no-op.
	release()
	if l.Len() != 0 {
		t.Fatalf("double release corrupted the table, len=%d", l.Len())
	}
}

func TestSameKeySerializes(t *testing.T) {
	l := New()
	const workers = 32
	const iterations = 50

	var counter int // protected by the keyed lock, not by sync
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				release, err := l.Acquire(context.Background(), "shared")
				if err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				counter++
				release()
			}
		}()
	}
	wg.Wait()

	if counter != workers*iterations {
		t.Fatalf("lost updates: got %d, want %d", counter, workers*iterations)
	}
	if l.Len() != 0 {
		t.Fatalf("leaked %d lock entries", l.Len())
	}
}

func TestDistinctKeysIndependent(t *testing.T) {
	l := New()

	releaseA, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer releaseA()

	// Holding "a" must not block "b".
	done := make(chan struct{})
	go func() {
		releaseB, err := l.Acquire(context.Background(), "b")
		if err == nil {
			releaseB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acquire on distinct key blocked")
	}
}

func TestAcquireContextCancelled(t *testing.T) {
	l := New()

	release, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := l.Acquire(ctx, "a"); err == nil {
		t.Fatal("expected context error while lock is held")
	}

	release()
	if l.Len() != 0 {
		t.Fatalf("cancelled waiter leaked lock state, len=%d", l.Len())
	}
}

func TestTryAcquire(t *testing.T) {
	l := New()

	release, ok := l.TryAcquire("a")
	if !ok {
		t.Fatal("first TryAcquire should succeed")
	}
	if _, ok := l.TryAcquire("a"); ok {
		t.Fatal("second TryAcquire should fail while held")
	}

	release()
	release2, ok := l.TryAcquire("a")
	if !ok {
		t.Fatal("TryAcquire should succeed after release")
	}
	release2()
	if l.Len() != 0 {
		t.Fatalf("leaked %d lock entries", l.Len())
	}
}

func TestStressManyKeys(t *testing.T) {
	l := New()
	keys := []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7"}
	counters := make([]int, len(keys))

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				k := (w + i) % len(keys)
				release, err := l.Acquire(context.Background(), keys[k])
				if err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				counters[k]++
				release()
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, c := range counters {
		total += c
	}
	if total != 16*100 {
		t.Fatalf("lost updates across keys: got %d", total)
	}
	if l.Len() != 0 {
		t.Fatalf("leaked %d lock entries", l.Len())
	}
}
