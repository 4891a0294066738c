package cache

import (
	"sync"

	"github.com/rs/zerolog"
)

// SweepInterval is the number of top-level optimization calls between
// synchronous sweeps of all registered stores.
const SweepInterval = 10

// Sweeper is any cache that can drop its expired entries.
type Sweeper interface {
	Sweep() int
}

// Janitor evicts expired entries across a set of stores. Eviction is not
// proactive: Tick is called once per top-level optimization call and every
// SweepInterval-th call triggers a synchronous sweep. This bounds memory
// growth without a background goroutine.
type Janitor struct {
	logger zerolog.Logger

	mu     sync.Mutex
	stores []Sweeper
	calls  int
}

// NewJanitor creates a Janitor over the given stores.
func NewJanitor(logger zerolog.Logger, stores ...Sweeper) *Janitor {
	return &Janitor{logger: logger, stores: stores}
}

// Register adds a store to the sweep set.
func (j *Janitor) Register(s Sweeper) {
	j.mu.Lock()
	j.stores = append(j.stores, s)
	j.mu.Unlock()
}

// Tick records one top-level call and sweeps all stores when the counter
// reaches SweepInterval. Returns the number of entries evicted (0 on
// non-sweep ticks).
func (j *Janitor) Tick() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.calls++
	if j.calls%SweepInterval != 0 {
		return 0
	}

	removed := 0
	for _, s := range j.stores {
		removed += s.Sweep()
	}

	if removed > 0 {
		j.logger.Debug().
			Int("evicted", removed).
			Int("stores", len(j.stores)).
			Msg("swept expired cache entries")
	}
	return removed
}
