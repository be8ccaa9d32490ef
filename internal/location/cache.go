package location

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is the bounded, thread-safe canonical-form cache named in spec §5
// ("Canonical-form LRU cache: bounded (≤10k entries); thread-safe
// read/write") and SPEC_FULL §3 CacheStats diagnostic. Eviction is always safe:
// correctness never depends on a hit, only on ToCanonical being
// deterministic.
type Cache struct {
	entries *lru.Cache[string, entry]
	hits    int64
	misses  int64
}

type entry struct {
	canonical CanonicalLocation
	err       *UnparseableError
}

// NewCache builds a cache bounded to size entries (spec §6
// "canonicalCacheSize", default 10000).
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = 10000
	}
	l, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: l}, nil
}

// ToCanonical is the cached equivalent of the package-level ToCanonical.
func (c *Cache) ToCanonical(raw string) (CanonicalLocation, *UnparseableError) {
	if v, ok := c.entries.Get(raw); ok {
		atomic.AddInt64(&c.hits, 1)
		return v.canonical, v.err
	}
	atomic.AddInt64(&c.misses, 1)
	canonical, uerr := ToCanonical(raw)
	c.entries.Add(raw, entry{canonical: canonical, err: uerr})
	return canonical, uerr
}

// CacheStats reports cumulative hit/miss counts for observability (spec §3
// supplement, grounded on original_source/backend/src/location_service.py's
// lookup cache accounting). It does not affect normalization semantics.
func (c *Cache) CacheStats() (hits, misses int) {
	return int(atomic.LoadInt64(&c.hits)), int(atomic.LoadInt64(&c.misses))
}
