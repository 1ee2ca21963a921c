package ratelimit

import (
	"context"
	"sync"
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
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestAllowAdmitsUpToLimitThenRefuses(t *testing.T) {
	clock := newClock()
	limiter := New(10, time.Hour, WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		d := limiter.Allow("fan@example.com")
		if !d.Allowed {
			t.Fatalf("request %d should be admitted", i+1)
		}
		if d.Remaining != 9-i {
			t.Fatalf("request %d expected remaining %d got %d", i+1, 9-i, d.Remaining)
		}
		clock.Advance(time.Minute)
	}

	d := limiter.Allow("fan@example.com")
	if d.Allowed {
		t.Fatal("11th request within the hour must be refused")
	}
	// First admission was at 12:00, now is 12:10.
	if d.RetryAfter != 50*time.Minute {
		t.Fatalf("expected retry after 50m, got %v", d.RetryAfter)
	}
}

func TestRefusalsDoNotConsumeQuota(t *testing.T) {
	clock := newClock()
	limiter := New(2, time.Hour, WithClock(clock.Now))

	limiter.Allow("a")
	limiter.Allow("a")
	for i := 0; i < 5; i++ {
		if limiter.Allow("a").Allowed {
			t.Fatal("expected refusal")
		}
	}

	clock.Advance(time.Hour + time.Second)
	if !limiter.Allow("a").Allowed {
		t.Fatal("window should have rolled over")
	}
}

func TestWindowSlidesPerAdmission(t *testing.T) {
	clock := newClock()
	limiter := New(2, time.Hour, WithClock(clock.Now))

	limiter.Allow("a")
	clock.Advance(30 * time.Minute)
	limiter.Allow("a")
	clock.Advance(31 * time.Minute)

	if !limiter.Allow("a").Allowed {
		t.Fatal("first admission left the window, a slot should be free")
	}
	if limiter.Allow("a").Allowed {
		t.Fatal("second slot is still held by the 12:30 admission")
	}
}

func TestKeysAreNormalizedAndIndependent(t *testing.T) {
	limiter := New(1, time.Hour, WithClock(newClock().Now))

	if !limiter.Allow("Fan@Example.com ").Allowed {
		t.Fatal("first request should pass")
	}
	if limiter.Allow("fan@example.com").Allowed {
		t.Fatal("case and whitespace variants share a bucket")
	}
	if !limiter.Allow("other@example.com").Allowed {
		t.Fatal("other keys are unaffected")
	}
}

func TestSweepDropsIdleKeys(t *testing.T) {
	clock := newClock()
	limiter := New(5, time.Hour, WithClock(clock.Now))

	limiter.Allow("a")
	clock.Advance(45 * time.Minute)
	limiter.Allow("b")
	clock.Advance(20 * time.Minute)

	if removed := limiter.Sweep(); removed != 1 {
		t.Fatalf("expected one idle key removed, got %d", removed)
	}
	if limiter.Len() != 1 {
		t.Fatalf("expected one key left, got %d", limiter.Len())
	}
}

func TestDefaultsApplied(t *testing.T) {
	limiter := New(0, 0)
	if limiter.limit != DefaultLimit || limiter.window != DefaultWindow {
		t.Fatalf("unexpected defaults %d %v", limiter.limit, limiter.window)
	}
}

func TestAllowIsSafeForConcurrentUse(t *testing.T) {
	limiter := New(50, time.Hour)
	var wg sync.WaitGroup
	admitted := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admitted <- limiter.Allow("shared").Allowed
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for ok := range admitted {
		if ok {
			count++
		}
	}
	if count != 50 {
		t.Fatalf("expected exactly 50 admissions, got %d", count)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	limiter := New(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
