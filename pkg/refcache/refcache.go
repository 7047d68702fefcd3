// Package refcache implements the database-side reference row cache
// described in spec §4.2/§4.6: a one-time pass over small lookup
// tables (Node, Agent, Queue, Stream, Process, Thread) populated
// during ReadMetadataAsync, consulted lazily whenever an ExtData
// record's value turns out to be a foreign key into one of those
// tables rather than an inline value.
//
// It is adapted from the teacher's pkg/persistence.BatchPersistence,
// which kept a sync.RWMutex-guarded map of pending items keyed by ID,
// populated once per batch and drained by later readers. The
// disk-backed recovery loop, TTL sweep, and cleanup goroutine that
// package needed (because a batch might outlive the process) have no
// counterpart here — the cache's lifetime is exactly the owning
// Database's — so only the populate-once/read-many map and its lock
// are kept.
package refcache

import "sync"

// Key identifies one cached cell: a row in a named lookup table, one
// column, scoped to the DbInstance it was read from (two databases
// bound to the same Trace must not collide on row id).
type Key struct {
	Table     string
	RowID     int64
	Column    string
	DbFileIdx uint32
}

// Cache is a Database's reference-table row cache.
type Cache struct {
	mu   sync.RWMutex
	rows map[Key]string
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{rows: make(map[Key]string)}
}

// Put stores one resolved cell. Called during the metadata-load
// reference-table pass; safe to call concurrently with Get (readers
// never block the metadata pass for long, since the pass itself holds
// the write lock only for the duration of a single insert).
func (c *Cache) Put(key Key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[key] = value
}

// PutBatch stores many cells under one lock acquisition, used by the
// metadata loader's per-table bulk load instead of one Put per row.
func (c *Cache) PutBatch(values map[Key]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range values {
		c.rows[k] = v
	}
}

// Get resolves a cell, reporting ok=false if it was never populated
// (including: before the metadata pass has run). The loader does not
// gate ReadEventPropertyAsync on metadata_loaded, so a lookup made
// before ReadMetadataAsync completes simply misses.
func (c *Cache) Get(key Key) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.rows[key]
	return v, ok
}

// Len reports the number of cached cells, used by
// Database.GetMemoryFootprint's size estimate.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}
