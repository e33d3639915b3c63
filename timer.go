package ringio

import (
	"context"
	"time"

	"github.com/coreglyph/ringio/internal/driver"
)

// Delay completes after d has elapsed, driven by a kernel timeout operation
// rather than the Go runtime's timers, so it parks in the same ring as
// every other operation.
func Delay(ctx context.Context, d time.Duration) error {
	drv := driver.FromContext(ctx)
	h, err := driver.Timeout(drv, d)
	if err != nil {
		return liftError("timeout", err)
	}
	if _, err := h.Wait(ctx); err != nil {
		return liftError("timeout", err)
	}
	return nil
}

// WithTimeout races fn against a deadline. If fn finishes first its result
// is returned and the timer is cancelled; if the deadline elapses first, fn's
// context is cancelled (which cancels its in-flight operations) and
// ErrTimedOut is returned.
func WithTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	fnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	res := make(chan error, 1)
	go func() { res <- fn(fnCtx) }()

	timer := make(chan error, 1)
	timerCtx, cancelTimer := context.WithCancel(ctx)
	defer cancelTimer()
	go func() { timer <- Delay(timerCtx, d) }()

	select {
	case err := <-res:
		return err
	case <-timer:
		cancel()
		<-res // wait for fn to observe cancellation; its handles clean up
		return ErrTimedOut
	}
}

// Interval fires repeatedly every period. Each tick is one kernel timeout
// operation; the next is not armed until Tick is called again, so a slow
// consumer stretches the interval rather than queueing ticks.
type Interval struct {
	period time.Duration
}

// NewInterval returns an interval of the given period.
func NewInterval(period time.Duration) *Interval {
	return &Interval{period: period}
}

// Tick blocks until the next period boundary.
func (iv *Interval) Tick(ctx context.Context) error {
	return Delay(ctx, iv.period)
}

// Every schedules fn onto the runtime's cooperative queue once per period
// until ctx is done or fn returns false. It runs as a supervised task.
func (rt *Runtime) Every(ctx context.Context, period time.Duration, fn func() bool) {
	rt.Go(ctx, func(ctx context.Context) error {
		iv := NewInterval(period)
		for {
			if err := iv.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			done := make(chan bool, 1)
			rt.Schedule(func() { done <- fn() })
			if !<-done {
				return nil
			}
		}
	})
}
