package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"imagesvc/internal/domain"
)

// fakeClock advances by the requested duration whenever After is called.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func TestAwaitReturnsFirstDoneValue(t *testing.T) {
	clock := newFakeClock()
	polls := 0
	got, err := Await(context.Background(), Options{Clock: clock}, func(ctx context.Context) (string, bool, error) {
		polls++
		return "artifact", polls == 3, nil
	})
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if got != "artifact" || polls != 3 {
		t.Fatalf("got %q after %d polls", got, polls)
	}
}

func TestAwaitTimesOutOnlyAfterDeadline(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	polls := 0
	_, err := Await(context.Background(), Options{Interval: 4 * time.Second, Timeout: 8 * time.Second, Clock: clock}, func(ctx context.Context) (int, bool, error) {
		polls++
		return 0, false, nil
	})
	if !errors.Is(err, ErrTimeout) || !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	// Polls at 4s and 8s (elapsed == timeout is still allowed), fails at 12s.
	if polls != 2 {
		t.Fatalf("polls = %d, want 2", polls)
	}
	if elapsed := clock.Now().Sub(start); elapsed <= 8*time.Second {
		t.Fatalf("timed out after %s, before the deadline", elapsed)
	}
}

func TestAwaitRetriesTransientErrors(t *testing.T) {
	clock := newFakeClock()
	polls := 0
	got, err := Await(context.Background(), Options{Clock: clock}, func(ctx context.Context) (int, bool, error) {
		polls++
		if polls < 3 {
			return 0, false, Retry(errors.New("502 bad gateway"))
		}
		return 42, true, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("got %d, %v", got, err)
	}
}

func TestAwaitStopsOnTerminalError(t *testing.T) {
	boom := errors.New("node failed")
	polls := 0
	_, err := Await(context.Background(), Options{Clock: newFakeClock()}, func(ctx context.Context) (int, bool, error) {
		polls++
		return 0, false, boom
	})
	if !errors.Is(err, boom) || polls != 1 {
		t.Fatalf("err = %v after %d polls", err, polls)
	}
}

func TestAwaitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Await(ctx, Options{Interval: time.Hour}, func(ctx context.Context) (int, bool, error) {
		t.Fatal("poll must not run after cancellation")
		return 0, false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestAwaitDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.Interval != 4*time.Second || o.Timeout != 300*time.Second || o.Clock == nil || o.Logger == nil {
		t.Fatalf("defaults = %#v", o)
	}
}
