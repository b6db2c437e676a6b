package syncop

import "sync"

// Clock is a device's Lamport logical clock: a local operation bumps it by
// one; observing a remote timestamp advances it past whatever the remote
// device had seen.
type Clock struct {
	mu    sync.Mutex
	value int64
}

// NewClock seeds a Clock at the given starting value, typically the
// persisted cursor's last_timestamp.
func NewClock(start int64) *Clock {
	return &Clock{value: start}
}

// Tick bumps the clock for a new local operation and returns the stamp to
// attach to it.
func (c *Clock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value++

	return c.value
}

// Observe advances the clock past a received remote timestamp: clock =
// max(clock, remote) + 1.
func (c *Clock) Observe(remote int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remote > c.value {
		c.value = remote
	}

	c.value++

	return c.value
}

// Value returns the clock's current value without advancing it.
func (c *Clock) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.value
}
