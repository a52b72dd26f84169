package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWorkerPoolLanes(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 2, MaxSlowWorkers: 1})
	ctx := context.Background()

	if err := pool.AcquireSlow(ctx); err != nil {
		t.Fatalf("AcquireSlow: %v", err)
	}
	if pool.TryAcquireSlow() {
		t.Fatal("second slow slot acquired with MaxSlowWorkers=1")
	}
	// A full slow lane leaves the fast lane untouched.
	if !pool.TryAcquireFast() || !pool.TryAcquireFast() {
		t.Fatal("fast lane blocked by slow lane")
	}
	if pool.TryAcquireFast() {
		t.Fatal("third fast slot acquired with MaxFastWorkers=2")
	}

	stats := pool.Stats()
	if stats.ActiveFast != 2 || stats.ActiveSlow != 1 {
		t.Errorf("active = %d fast, %d slow; want 2, 1", stats.ActiveFast, stats.ActiveSlow)
	}

	pool.ReleaseFast()
	pool.ReleaseFast()
	pool.ReleaseSlow()
	stats = pool.Stats()
	if stats.ActiveFast != 0 || stats.ActiveSlow != 0 {
		t.Errorf("active after release = %d fast, %d slow", stats.ActiveFast, stats.ActiveSlow)
	}
	if stats.TotalFast != 2 || stats.TotalSlow != 1 {
		t.Errorf("totals = %d fast, %d slow; want 2, 1", stats.TotalFast, stats.TotalSlow)
	}
}

func TestWorkerPoolContextCancellation(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 1, MaxSlowWorkers: 1})
	if err := pool.AcquireFast(context.Background()); err != nil {
		t.Fatalf("AcquireFast: %v", err)
	}
	defer pool.ReleaseFast()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pool.AcquireFast(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("AcquireFast on a full lane = %v, want context.Canceled", err)
	}
	if q := pool.Stats().QueuedFast; q != 0 {
		t.Errorf("queued = %d after giving up, want 0", q)
	}
}

func TestWorkerPoolTimeout(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 1, MaxSlowWorkers: 1})
	if err := pool.AcquireSlow(context.Background()); err != nil {
		t.Fatalf("AcquireSlow: %v", err)
	}
	defer pool.ReleaseSlow()

	if err := pool.AcquireSlowWithTimeout(context.Background(), 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("AcquireSlowWithTimeout = %v, want context.DeadlineExceeded", err)
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 10, MaxSlowWorkers: 2})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running int
		peak    int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pool.AcquireSlow(context.Background()); err != nil {
				t.Errorf("AcquireSlow: %v", err)
				return
			}
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
			pool.ReleaseSlow()
		}()
	}
	wg.Wait()

	if peak > 2 {
		t.Errorf("%d slow operations ran at once, limit is 2", peak)
	}
	if total := pool.Stats().TotalSlow; total != 8 {
		t.Errorf("TotalSlow = %d, want 8", total)
	}
}

func TestWorkerPoolDefaults(t *testing.T) {
	stats := NewWorkerPool(PoolConfig{}).Stats()
	def := DefaultPoolConfig()
	if stats.MaxFast != def.MaxFastWorkers || stats.MaxSlow != def.MaxSlowWorkers {
		t.Errorf("max = %d/%d, want %d/%d", stats.MaxFast, stats.MaxSlow, def.MaxFastWorkers, def.MaxSlowWorkers)
	}
}
