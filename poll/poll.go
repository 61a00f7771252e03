package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrDeadlineExceeded = errors.New("poll: deadline exceeded")

// Func probes an external job once. It reports done when the job has
// reached a terminal condition. A non-nil error aborts polling immediately.
type Func func(ctx context.Context) (done bool, err error)

type Config struct {
	// Interval is the pause between consecutive probes.
	Interval time.Duration
	// MaxWait bounds the total wall-clock time spent polling. Zero means
	// no ceiling: the loop runs until the probe is terminal or the context
	// is cancelled.
	MaxWait time.Duration

	// Sleep and Clock are injectable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Clock func() time.Time
}

const defaultInterval = 10 * time.Second

// Until probes fn until it reports done, sleeping cfg.Interval between
// probes. The first probe happens immediately, so a job that is already
// terminal costs zero sleeps.
func Until(ctx context.Context, cfg Config, fn Func) error {
	if fn == nil {
		return fmt.Errorf("poll func is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepWithContext
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	var deadline time.Time
	if cfg.MaxWait > 0 {
		deadline = cfg.Clock().Add(cfg.MaxWait)
	}

	for {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if !deadline.IsZero() && !cfg.Clock().Add(cfg.Interval).Before(deadline) {
			return ErrDeadlineExceeded
		}
		if err := cfg.Sleep(ctx, cfg.Interval); err != nil {
			return err
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
