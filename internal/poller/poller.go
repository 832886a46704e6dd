// Package poller waits for long-running external jobs.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra"
)

const (
	DefaultInterval = 4 * time.Second
	DefaultTimeout  = 300 * time.Second
)

var (
	// ErrTimeout is returned once the elapsed time exceeds Options.Timeout.
	ErrTimeout = fmt.Errorf("poller: %w", domain.ErrTimeout)
	// ErrRetry marks a poll error as transient; Await keeps polling.
	ErrRetry = errors.New("poller: retry")
)

// Retry wraps err so Await treats it as transient.
func Retry(err error) error {
	return fmt.Errorf("%w: %w", ErrRetry, err)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	Clock    Clock
	// Name labels log lines, e.g. the job id.
	Name   string
	Logger *infra.Logger
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	o.Logger = infra.LoggerOrDiscard(o.Logger)
	return o
}

// PollFunc checks the job once. done reports a terminal success; a non-nil
// error ends the wait unless it wraps ErrRetry.
type PollFunc[T any] func(ctx context.Context) (value T, done bool, err error)

// Await sleeps one interval before every poll and returns the value of the
// first poll that reports done. It fails with ErrTimeout when the elapsed
// time before a poll exceeds the timeout, never earlier.
func Await[T any](ctx context.Context, opts Options, poll PollFunc[T]) (T, error) {
	var zero T
	opts = opts.withDefaults()
	start := opts.Clock.Now()
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-opts.Clock.After(opts.Interval):
		}

		elapsed := opts.Clock.Now().Sub(start)
		if elapsed > opts.Timeout {
			opts.Logger.Warn().Str("job", opts.Name).Dur("elapsed", elapsed).Int("attempts", attempt-1).Msg("poller: timed out")
			return zero, ErrTimeout
		}

		value, done, err := poll(ctx)
		if err != nil {
			if errors.Is(err, ErrRetry) {
				opts.Logger.Debug().Err(err).Str("job", opts.Name).Int("attempt", attempt).Msg("poller: transient error")
				continue
			}
			return zero, err
		}
		if done {
			opts.Logger.Debug().Str("job", opts.Name).Int("attempt", attempt).Dur("elapsed", elapsed).Msg("poller: completed")
			return value, nil
		}
	}
}
