package insights

import (
	"context"
	"time"

	"github.com/juju/clock"
)

// Throttle runs tasks one at a time and keeps at least delay between the
// end of one task and the start of the next. It is safe for concurrent use;
// callers queue on it in arrival order.
type Throttle struct {
	clock clock.Clock
	delay time.Duration

	slot chan struct{}
	last time.Time
}

func NewThrottle(clk clock.Clock, delay time.Duration) *Throttle {
	if clk == nil {
		clk = clock.WallClock
	}
	t := &Throttle{
		clock: clk,
		delay: delay,
		slot:  make(chan struct{}, 1),
	}
	t.slot <- struct{}{}
	return t
}

// Do waits for its turn and runs fn. It returns ctx.Err() without running
// fn if ctx ends while waiting.
func (t *Throttle) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-t.slot:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { t.slot <- struct{}{} }()

	if t.delay > 0 && !t.last.IsZero() {
		if wait := t.delay - t.clock.Now().Sub(t.last); wait > 0 {
			select {
			case <-t.clock.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	err := fn(ctx)
	t.last = t.clock.Now()
	return err
}
