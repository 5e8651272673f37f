package utils

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeySetNoDuplicates(t *testing.T) {
	s := NewKeySet()

	added := s.Add("la parrilla")
	if !added {
		t.Error("first Add should return true")
	}

	added = s.Add("la parrilla")
	if added {
		t.Error("second Add of same key should return false")
	}

	if !s.Contains("la parrilla") {
		t.Error("Contains should report an added key")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestKeySetConcurrency(t *testing.T) {
	s := NewKeySet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		if err := pool.Submit(context.Background(), func() {
			if s.Add("google:ChIJ-same") {
				atomic.AddInt64(&added, 1)
			}
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	interval := 50 * time.Millisecond
	pool := NewWorkerPool(3, interval)

	var mu sync.Mutex
	var starts []time.Time

	for i := 0; i < 4; i++ {
		_ = pool.Submit(context.Background(), func() {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	if len(starts) != 4 {
		t.Fatalf("jobs run: got %d, want 4", len(starts))
	}
	first, last := starts[0], starts[0]
	for _, s := range starts {
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	if span := last.Sub(first); span < 3*interval-5*time.Millisecond {
		t.Errorf("4 starts spread over %v, want at least %v", span, 3*interval)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2, 0)

	var running, peak int64
	for i := 0; i < 8; i++ {
		_ = pool.Submit(context.Background(), func() {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		})
	}
	pool.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency %d exceeds pool size 2", peak)
	}
}

func TestWorkerPoolSubmitCancelled(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	block := make(chan struct{})
	_ = pool.Submit(context.Background(), func() { <-block })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pool.Submit(ctx, func() { t.Error("cancelled job must not run") }); !errors.Is(err, context.Canceled) {
		t.Errorf("Submit on cancelled ctx: got %v, want context.Canceled", err)
	}
	close(block)
	pool.Wait()
}

func TestThrottleSerializes(t *testing.T) {
	th := NewThrottle(0)
	var inFlight, overlap int64

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = th.Do(context.Background(), func() error {
				if atomic.AddInt64(&inFlight, 1) > 1 {
					atomic.StoreInt64(&overlap, 1)
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt64(&inFlight, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if overlap != 0 {
		t.Error("throttle allowed overlapping calls")
	}
}

func TestRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}
	sentinel := errors.New("bad request")

	err := r.Do(context.Background(), "op", func() error {
		calls++
		return Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("err: got %v, want %v", err, sentinel)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewLogger("info")}

	err := r.Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("503")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}
