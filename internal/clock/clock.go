// Package clock holds the client's scalar logical clock.
//
// The clock is a unix-millisecond value seeded from wall time. It moves only
// through Advance (one second before every outbound request), Adjust (operator
// skew) and Reconcile (overwrite from an inbound event's server timestamp).
// It is not a Lamport clock and does not guarantee monotonicity.
package clock

import (
	"log/slog"
	"sync"
	"time"

	"github.com/blackmichael/socialfeed-client/internal/domain"
)

// Step is the fixed increment applied by Advance.
const Step = time.Second

// DisplayLayout formats the clock for the operator.
const DisplayLayout = "15:04:05"

// Clock is safe for concurrent use by the control loop and the listener.
type Clock struct {
	mu     sync.Mutex
	millis int64
	logger *slog.Logger
}

// New returns a clock initialized to start.
func New(start time.Time, logger *slog.Logger) *Clock {
	c := &Clock{
		millis: start.UnixMilli(),
		logger: logger,
	}
	logger.Info("logical clock initialized", "clock", c.millis, "display", format(c.millis))
	return c
}

// Now returns the current clock value in unix millis.
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.millis
}

// Display returns the clock formatted as HH:MM:SS local time.
func (c *Clock) Display() string {
	return format(c.Now())
}

// Advance adds one Step and returns the new value. Every outbound request
// calls it exactly once and sends the returned value as client_timestamp.
func (c *Clock) Advance() int64 {
	c.mu.Lock()
	c.millis += Step.Milliseconds()
	now := c.millis
	c.mu.Unlock()

	c.logger.Debug("clock incremented", "clock", now, "display", format(now))
	return now
}

// Adjust moves the clock by deltaSeconds, which may be negative or of any
// magnitude. It returns the value before and after the change.
func (c *Clock) Adjust(deltaSeconds int) (before, after int64) {
	c.mu.Lock()
	before = c.millis
	c.millis += int64(deltaSeconds) * Step.Milliseconds()
	after = c.millis
	c.mu.Unlock()

	c.logger.Info("manual clock adjustment",
		"delta_seconds", deltaSeconds,
		"old", format(before),
		"new", format(after),
	)
	return before, after
}

// Reconcile resynchronizes the clock from an inbound event. When the event's
// origin timestamp is ahead of the clock and the event carries a server
// timestamp, the clock is overwritten with the server timestamp. It reports
// whether an overwrite happened.
//
// The server timestamp is applied as-is, even when it is behind the current
// clock, so a resync can move the clock backwards. This matches the protocol
// as deployed and is intentional; do not clamp it.
func (c *Clock) Reconcile(ev domain.Event, source string) bool {
	server, ok := ev.AuthoritativeTimestamp()
	if !ok {
		return false
	}

	c.mu.Lock()
	before := c.millis
	if ev.OriginTimestamp() <= before {
		c.mu.Unlock()
		return false
	}
	c.millis = server
	c.mu.Unlock()

	c.logger.Info("clock synchronized with server",
		"trigger", source,
		"origin", ev.OriginTimestamp(),
		"server", server,
		"old", format(before),
		"new", format(server),
	)
	return true
}

func format(millis int64) string {
	return time.UnixMilli(millis).Format(DisplayLayout)
}
