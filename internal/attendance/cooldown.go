package attendance

import (
	"sync"
	"time"
)

// Cooldown debounces an input channel: after an accepted decode, further
// decodes are refused until the interval has passed or Reset is called.
type Cooldown struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	armed    bool
}

// NewCooldown creates a gate with the given minimum spacing.
func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{interval: interval}
}

// Allow reports whether a decode at now may proceed and, if so, starts a new
// window.
func (c *Cooldown) Allow(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armed && now.Sub(c.last) < c.interval {
		return false
	}
	c.last = now
	c.armed = true
	return true
}

// Remaining returns how long until the gate opens again.
func (c *Cooldown) Remaining(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed {
		return 0
	}
	if d := c.interval - now.Sub(c.last); d > 0 {
		return d
	}
	return 0
}

// Reset opens the gate immediately.
func (c *Cooldown) Reset() {
	c.mu.Lock()
	c.armed = false
	c.mu.Unlock()
}

// Interval returns the configured spacing.
func (c *Cooldown) Interval() time.Duration {
	return c.interval
}

// Cooldowns keeps an independent Cooldown per input channel, keyed by
// station id, so one gate's window never holds back another.
type Cooldowns struct {
	mu       sync.Mutex
	interval time.Duration
	gates    map[string]*Cooldown
}

// NewCooldowns creates an empty set of per-station gates.
func NewCooldowns(interval time.Duration) *Cooldowns {
	return &Cooldowns{interval: interval, gates: map[string]*Cooldown{}}
}

// For returns the gate of key, creating it on first use.
func (c *Cooldowns) For(key string) *Cooldown {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.gates[key]
	if !ok {
		g = NewCooldown(c.interval)
		c.gates[key] = g
	}
	return g
}

// Reset opens the gate of key only.
func (c *Cooldowns) Reset(key string) {
	c.mu.Lock()
	g := c.gates[key]
	c.mu.Unlock()
	if g != nil {
		g.Reset()
	}
}
