package decision

import (
	"sync"

	"github.com/htcs-sim/controller/internal/vehicle"
)

// Cache remembers the last command decided for each vehicle, so the engine
// only republishes a command when it actually changes between consecutive
// ticks: store the previous value, compare, replace only on change.
type Cache struct {
	mu   sync.Mutex
	last map[string]vehicle.Command
}

// NewCache returns a ready-to-use, empty Cache.
func NewCache() *Cache {
	return &Cache{last: make(map[string]vehicle.Command)}
}

// Changed reports whether cmd differs from the last command recorded for
// id, and records cmd as the new last value. The first observation for an
// id always reports changed.
func (c *Cache) Changed(id string, cmd vehicle.Command) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.last[id]
	c.last[id] = cmd
	return !ok || prev != cmd
}

// Forget drops any cached command for id, called when a vehicle leaves the
// registry so a later rejoin under the same id starts fresh.
func (c *Cache) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, id)
}
