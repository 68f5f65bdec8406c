package timex

import "time"

// Countdown counts task activations down to zero. It is owned by one task
// and is not safe for concurrent use.
type Countdown struct {
	left int
}

// Start arms the countdown with d expressed in activations of period.
func (c *Countdown) Start(d, period time.Duration) {
	c.left = Ticks(d, period)
}

// Next decrements the countdown, flooring at zero.
func (c *Countdown) Next() {
	if c.left > 0 {
		c.left--
	}
}

func (c *Countdown) Expired() bool { return c.left == 0 }
func (c *Countdown) Left() int     { return c.left }
