package layer

import lru "github.com/hashicorp/golang-lru/v2"

// rowcacheSize bounds the per-transaction buid -> props cache.
const rowcacheSize = 10000

// rowCache is the bounded per-xact cache backing GetBuidProps. A miss is
// filled by scanning bybuid for every key sharing the buid's 32-byte
// prefix (fillFn). Writes within the owning xact update a cached entry in
// place so subsequent reads in the same transaction see them without a
// re-fill; PropDel evicts.
type rowCache struct {
	cache  *lru.Cache[Buid, map[string][]byte]
	fillFn func(buid Buid) (map[string][]byte, error)
}

func newRowCache(fillFn func(Buid) (map[string][]byte, error)) *rowCache {
	c, err := lru.New[Buid, map[string][]byte](rowcacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// rowcacheSize never is.
		panic(err)
	}
	return &rowCache{cache: c, fillFn: fillFn}
}

// get returns buid's prop map, filling the cache on miss. The returned
// map is shared with the cache entry; callers must not mutate it directly
// (use set/evict below, which keep the cache and bookkeeping in step).
func (c *rowCache) get(buid Buid) (map[string][]byte, error) {
	if props, ok := c.cache.Get(buid); ok {
		return props, nil
	}
	props, err := c.fillFn(buid)
	if err != nil {
		return nil, err
	}
	c.cache.Add(buid, props)
	return props, nil
}

// set updates prop -> valu in buid's cache entry if buid is cached,
// leaving an uncached buid alone (its next get will fill from storage,
// which already reflects this write).
func (c *rowCache) set(buid Buid, prop string, valu []byte) {
	if props, ok := c.cache.Get(buid); ok {
		props[prop] = valu
	}
}

// evict drops buid's cache entry outright, used by PropDel.
func (c *rowCache) evict(buid Buid) {
	c.cache.Remove(buid)
}
