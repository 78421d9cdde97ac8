package actuator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ayusman/posegate/internal/gesture"
	"github.com/ayusman/posegate/internal/timeutil"
)

// DefaultMinInterval is the pause enforced between two actuations.
const DefaultMinInterval = 3 * time.Second

// ErrCoolingDown is returned when an actuation arrives within the minimum
// interval of the previous one.
var ErrCoolingDown = errors.New("actuator cooling down")

// Cooldown suppresses actuations closer together than MinInterval. The
// interval is measured from the start of the last allowed actuation.
type Cooldown struct {
	next  Actuator
	min   time.Duration
	clock timeutil.Clock

	mu   sync.Mutex
	last time.Time
	seen bool
}

// NewCooldown wraps next. A zero interval uses DefaultMinInterval; a nil
// clock uses the wall clock.
func NewCooldown(next Actuator, minInterval time.Duration, clock timeutil.Clock) *Cooldown {
	if minInterval == 0 {
		minInterval = DefaultMinInterval
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Cooldown{next: next, min: minInterval, clock: clock}
}

// MinInterval returns the configured interval.
func (c *Cooldown) MinInterval() time.Duration {
	return c.min
}

// Actuate forwards ev unless the previous actuation was too recent.
func (c *Cooldown) Actuate(ctx context.Context, ev gesture.Event) error {
	c.mu.Lock()
	now := c.clock.Now()
	if c.seen && now.Sub(c.last) < c.min {
		c.mu.Unlock()
		return ErrCoolingDown
	}
	c.last, c.seen = now, true
	c.mu.Unlock()

	return c.next.Actuate(ctx, ev)
}

// Remaining returns how long until the next actuation is allowed.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seen {
		return 0
	}
	if d := c.min - c.clock.Since(c.last); d > 0 {
		return d
	}
	return 0
}
