package virtual

import (
	"sync"
	"time"

	"github.com/mitchellh/hashstructure"
)

// entry pairs a built Engine with the template digest it was built from, so
// EngineCache can detect "template changed under this warehouseId" without
// a caller explicitly invalidating (spec §4.2 "Caching": "cache by
// (warehouseId, template digest) with TTL or explicit invalidation").
type entry struct {
	digest uint64
	engine *Engine
	expiry time.Time
}

func (e *entry) expired(now time.Time) bool {
	return e.expiry.Before(now)
}

// EngineCache is the read-mostly warehouseId -> Engine mapping spec §5
// names as shared state, single-writer on invalidation, safe for
// concurrent readers — the same shape as OperatorCache
// (pkg/resolver/cache/cache.go), generalized from catalog snapshots to
// virtual engines.
type EngineCache struct {
	m       sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
}

// NewEngineCache builds a cache with the given TTL. A zero TTL disables
// time-based expiry; entries are still invalidated by template digest
// changes and by explicit Expire calls.
func NewEngineCache(ttl time.Duration) *EngineCache {
	return &EngineCache{entries: make(map[string]*entry), ttl: ttl}
}

// Get returns a cached engine for warehouseId if present, not expired, and
// built from a template matching digest.
func (c *EngineCache) Get(warehouseID string, digest uint64) (*Engine, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	e, ok := c.entries[warehouseID]
	if !ok || e.digest != digest {
		return nil, false
	}
	if c.ttl > 0 && e.expired(time.Now()) {
		return nil, false
	}
	return e.engine, true
}

// Put installs an engine under warehouseId, keyed by the template digest
// that produced it.
func (c *EngineCache) Put(warehouseID string, digest uint64, engine *Engine) {
	c.m.Lock()
	defer c.m.Unlock()
	exp := time.Time{}
	if c.ttl > 0 {
		exp = time.Now().Add(c.ttl)
	} else {
		exp = time.Now().Add(100 * 365 * 24 * time.Hour)
	}
	c.entries[warehouseID] = &entry{digest: digest, engine: engine, expiry: exp}
}

// Expire explicitly invalidates a warehouse's cached engine (e.g. after a
// caller reports the template changed).
func (c *EngineCache) Expire(warehouseID string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.entries, warehouseID)
}

// BuildCached builds (or reuses) the Engine for a template, caching by
// (WarehouseID, template digest) as spec §4.2 requires. Eviction or a miss
// is always safe — it only costs a rebuild.
func (c *EngineCache) BuildCached(t Template) (*Engine, error) {
	digest, err := hashstructure.Hash(t, nil)
	if err != nil {
		return nil, err
	}
	if e, ok := c.Get(t.WarehouseID, digest); ok {
		return e, nil
	}
	e, err := Build(t)
	if err != nil {
		return nil, err
	}
	c.Put(t.WarehouseID, digest, e)
	return e, nil
}
