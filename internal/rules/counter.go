package rules

import (
	"sync"
	"time"

	"cmdrunner/internal/stats"
)

// Counter accumulates hit and miss observations for one pattern.
type Counter struct {
	mu   sync.Mutex
	data stats.PatternStats
}

// Observe records one evaluation.
func (c *Counter) Observe(hit bool, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.data.Hits.Count++
		c.data.Hits.Duration += d
	} else {
		c.data.Misses.Count++
		c.data.Misses.Duration += d
	}
}

// Snapshot returns a copy of the counters.
func (c *Counter) Snapshot() stats.PatternStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}
