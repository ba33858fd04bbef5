package blend

import (
	"sync"
	"time"
)

// Snapshot is a result computed for a named price source
type Snapshot struct {
	RunID      string    `json:"run_id" msgpack:"run_id"`
	Source     string    `json:"source" msgpack:"source"`
	Steps      int       `json:"steps" msgpack:"steps"`
	Periods    int       `json:"periods" msgpack:"periods"`
	Result     Result    `json:"result" msgpack:"result"`
	ComputedAt time.Time `json:"computed_at" msgpack:"computed_at"`
}

// ResultCache keeps the latest snapshot in memory. It is never written to disk.
type ResultCache struct {
	mu     sync.RWMutex
	latest *Snapshot
}

// NewResultCache creates an empty cache
func NewResultCache() *ResultCache {
	return &ResultCache{}
}

// Store replaces the latest snapshot
func (c *ResultCache) Store(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = &s
}

// Latest returns a copy of the latest snapshot and whether one exists
func (c *ResultCache) Latest() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return Snapshot{}, false
	}
	return *c.latest, true
}
