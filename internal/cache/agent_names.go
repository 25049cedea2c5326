package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// AgentNameCache caches the provider's agent_id to display-name mapping so
// the sync and listing paths do not refetch the agent list per record. The
// whole map expires together; agent renames show up after one TTL.
type AgentNameCache struct {
	mu        sync.RWMutex
	names     map[string]string
	expiresAt time.Time
	ttl       time.Duration
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewAgentNameCache creates a cache with the given TTL. A non-positive TTL
// disables expiry.
func NewAgentNameCache(ttl time.Duration) *AgentNameCache {
	return &AgentNameCache{
		names: make(map[string]string),
		ttl:   ttl,
	}
}

// Get returns the cached display name for an agent id.
func (c *AgentNameCache) Get(agentID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.expired() {
		c.misses.Add(1)
		return "", false
	}
	name, ok := c.names[agentID]
	if !ok {
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return name, true
}

// Replace swaps the entire mapping and resets the TTL. Used after every
// provider agent-list fetch.
func (c *AgentNameCache) Replace(names map[string]string) {
	copied := make(map[string]string, len(names))
	for id, name := range names {
		copied[id] = name
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = copied
	if c.ttl > 0 {
		c.expiresAt = time.Now().Add(c.ttl)
	}
}

// Fresh reports whether the cache holds a non-expired mapping.
func (c *AgentNameCache) Fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names) > 0 && !c.expired()
}

// Stats returns hit and miss counts.
func (c *AgentNameCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *AgentNameCache) expired() bool {
	return c.ttl > 0 && time.Now().After(c.expiresAt)
}
