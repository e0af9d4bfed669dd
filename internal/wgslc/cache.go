package wgslc

import (
	"crypto/sha256"
	"sync"

	"github.com/gogpu/naga/ir"
)

// DefaultCacheSize is the soft limit of caches made by NewCache(0).
const DefaultCacheSize = 128

// Cache remembers CompileStage results by stage and source text, so a
// reload that only touched one stage does not recompile the other.
// Failures are cached too; the compiler is deterministic.
//
// Cache is safe for concurrent use. Cached modules are shared and must
// not be modified.
type Cache struct {
	mu        sync.Mutex
	entries   map[cacheKey]*cacheEntry
	softLimit int
	tick      int64 // monotonic access counter
	hits      uint64
	misses    uint64
}

type cacheKey struct {
	stage ir.ShaderStage
	sum   [sha256.Size]byte
}

type cacheEntry struct {
	module *Module
	entry  string
	err    error
	atime  int64
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Len      int
	Capacity int
	Hits     uint64
	Misses   uint64
}

// NewCache creates a cache holding about softLimit results.
// A softLimit of 0 selects DefaultCacheSize.
func NewCache(softLimit int) *Cache {
	if softLimit <= 0 {
		softLimit = DefaultCacheSize
	}
	return &Cache{
		entries:   make(map[cacheKey]*cacheEntry),
		softLimit: softLimit,
	}
}

// CompileStage returns the cached result for stage and source, compiling
// on a miss. A nil cache compiles every time.
func (c *Cache) CompileStage(stage ir.ShaderStage, source string) (*Module, string, error) {
	if c == nil {
		return CompileStage(stage, source)
	}
	key := cacheKey{stage: stage, sum: sha256.Sum256([]byte(source))}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if e, ok := c.entries[key]; ok {
		e.atime = c.tick
		c.hits++
		return e.module, e.entry, e.err
	}
	c.misses++

	module, entry, err := CompileStage(stage, source)
	c.entries[key] = &cacheEntry{module: module, entry: entry, err: err, atime: c.tick}
	if len(c.entries) > c.softLimit {
		c.evictOldest()
	}
	return module, entry, err
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.tick = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Len:      len(c.entries),
		Capacity: c.softLimit,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}

// evictOldest drops the least recently used quarter of the entries.
// Caller must hold c.mu.
func (c *Cache) evictOldest() {
	target := max(c.softLimit*3/4, 1)
	toEvict := len(c.entries) - target
	if toEvict <= 0 {
		return
	}

	type aged struct {
		key   cacheKey
		atime int64
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{k, e.atime})
	}
	// Selection sort; batches are small.
	for i := 0; i < toEvict; i++ {
		oldest := i
		for j := i + 1; j < len(all); j++ {
			if all[j].atime < all[oldest].atime {
				oldest = j
			}
		}
		all[i], all[oldest] = all[oldest], all[i]
		delete(c.entries, all[i].key)
	}
}
