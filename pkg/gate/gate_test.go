package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestLocalRejectsSecondHolder(t *testing.T) {
	g := NewLocal(1)
	ctx := context.Background()

	release, err := g.TryAcquire(ctx, "guild-1")
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	if _, err := g.TryAcquire(ctx, "guild-1"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for second acquire, got %v", err)
	}

	release()

	release2, err := g.TryAcquire(ctx, "guild-1")
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	release2()
}

func TestLocalKeysAreIndependent(t *testing.T) {
	g := NewLocal(1)
	ctx := context.Background()

	r1, err := g.TryAcquire(ctx, "guild-1")
	if err != nil {
		t.Fatalf("acquire guild-1 failed: %v", err)
	}
	defer r1()

	r2, err := g.TryAcquire(ctx, "guild-2")
	if err != nil {
		t.Fatalf("acquire guild-2 failed: %v", err)
	}
	defer r2()
}

func TestLocalReleaseIsIdempotent(t *testing.T) {
	g := NewLocal(2)
	ctx := context.Background()

	r1, _ := g.TryAcquire(ctx, "k")
	r2, _ := g.TryAcquire(ctx, "k")
	if _, err := g.TryAcquire(ctx, "k"); !errors.Is(err, ErrBusy) {
		t.Fatalf("Expected ErrBusy at capacity 2, got %v", err)
	}

	r1()
	r1()

	// A double release must free exactly one unit.
	r3, err := g.TryAcquire(ctx, "k")
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	if _, err := g.TryAcquire(ctx, "k"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy after double release, got %v", err)
	}
	r2()
	r3()
}

func TestLocalConcurrentAcquire(t *testing.T) {
	g := NewLocal(1)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	start := make(chan struct{})
	releases := make(chan func(), 16)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if release, err := g.TryAcquire(ctx, "guild"); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
				releases <- release
			}
		}()
	}
	close(start)
	wg.Wait()
	close(releases)

	if granted != 1 {
		t.Errorf("Expected exactly 1 holder, got %d", granted)
	}
	for release := range releases {
		release()
	}
}
