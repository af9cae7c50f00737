package call

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Counter tracks call duration at one-second granularity. Start resets
// it to zero; Stop is idempotent and safe without a prior Start.
type Counter struct {
	mu      sync.Mutex
	seconds atomic.Int64
	done    chan struct{}
	running bool
}

// Start begins counting from zero, replacing any previous run.
func (c *Counter) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.seconds.Store(0)
	c.done = make(chan struct{})
	c.running = true

	go func(done chan struct{}) {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.seconds.Add(1)
			}
		}
	}(c.done)
}

// Stop halts the counter, keeping the elapsed value readable.
func (c *Counter) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Counter) stopLocked() {
	if c.running {
		close(c.done)
		c.running = false
	}
}

// Seconds returns the elapsed whole seconds.
func (c *Counter) Seconds() int {
	return int(c.seconds.Load())
}

// Format renders the elapsed time as mm:ss.
func (c *Counter) Format() string {
	return FormatDuration(c.Seconds())
}

// FormatDuration renders whole seconds as a zero-padded mm:ss label.
func FormatDuration(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
