package feed

import (
	"sync"

	"github.com/anonto42/minisocial/internal/monitoring"
	"golang.org/x/sync/singleflight"
)

// coalescer runs at most one fetch per key at a time. A trigger that arrives
// while a fetch is in flight waits for a fetch that started after it, so N
// overlapping triggers cost at most two fetches.
type coalescer struct {
	group singleflight.Group

	mu       sync.Mutex
	triggers map[string]uint64
	// covered and lastErr describe the most recent completed fetch per key.
	covered map[string]uint64
	lastErr map[string]error
}

func newCoalescer() *coalescer {
	return &coalescer{
		triggers: make(map[string]uint64),
		covered:  make(map[string]uint64),
		lastErr:  make(map[string]error),
	}
}

// stream labels the metrics; key identifies what is fetched.
func (c *coalescer) do(stream, key string, fetch func() error) error {
	c.mu.Lock()
	c.triggers[key]++
	mine := c.triggers[key]
	c.mu.Unlock()
	monitoring.SyncRefetches.WithLabelValues(stream, "triggered").Inc()

	for {
		c.mu.Lock()
		if c.covered[key] >= mine {
			err := c.lastErr[key]
			c.mu.Unlock()
			return err
		}
		c.mu.Unlock()

		v, err, _ := c.group.Do(key, func() (interface{}, error) {
			// everything triggered so far is covered by this run
			c.mu.Lock()
			covered := c.triggers[key]
			c.mu.Unlock()
			monitoring.SyncRefetches.WithLabelValues(stream, "executed").Inc()

			err := fetch()
			c.mu.Lock()
			if covered > c.covered[key] {
				c.covered[key] = covered
				c.lastErr[key] = err
			}
			c.mu.Unlock()
			return covered, err
		})
		if v.(uint64) >= mine {
			return err
		}
	}
}
