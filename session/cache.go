// ABOUTME: Session cache for resolved remote identifiers and the last discovered schema
// ABOUTME: Writes carry the generation they started under; stale generations are dropped
package session

import (
	"sync"

	"github.com/iTRMAutomation/mlc-village-recon-tool/graph"
	"github.com/iTRMAutomation/mlc-village-recon-tool/schema"
)

// Resources are the resolved identifiers for the configured site, list, and drive.
type Resources struct {
	Site    graph.Site
	ListID  string
	DriveID string
}

// Cache is owned by one session. Invalidate bumps the generation; any write tagged with an
// earlier generation is discarded. Within a generation the last write wins.
type Cache struct {
	mu         sync.RWMutex
	generation uint64
	resources  *Resources
	schema     *schema.Schema
}

// New returns an empty cache at generation zero.
func New() *Cache {
	return &Cache{}
}

// Generation returns the current generation. Callers capture it before starting work
// whose result they intend to store.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Resources returns the cached identifiers, if any.
func (c *Cache) Resources() (Resources, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.resources == nil {
		return Resources{}, false
	}
	return *c.resources, true
}

// Schema returns the cached schema, if any.
func (c *Cache) Schema() (*schema.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schema, c.schema != nil
}

// StoreResources records r if gen is still current and reports whether it was kept.
func (c *Cache) StoreResources(gen uint64, r Resources) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.resources = &r
	return true
}

// StoreSchema records s if gen is still current and reports whether it was kept.
func (c *Cache) StoreSchema(gen uint64, s *schema.Schema) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || s == nil {
		return false
	}
	c.schema = s
	return true
}

// Invalidate clears the cache and starts a new generation, which it returns.
func (c *Cache) Invalidate() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.resources = nil
	c.schema = nil
	return c.generation
}
