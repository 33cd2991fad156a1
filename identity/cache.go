// ABOUTME: In-memory TTL cache of resolved user identities
// ABOUTME: Explicit component with injected clock and explicit invalidation
package identity

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Identity is the cached view of a user record used by request
// authentication. Any mutation of the underlying user row must call
// Invalidate, or stale fields will be served until the TTL lapses.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

type entry struct {
	identity  Identity
	expiresAt time.Time
}

// Cache is a process-wide TTL cache keyed by user ID. Safe for concurrent
// use.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[uuid.UUID]entry
	nowF    func() time.Time
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[uuid.UUID]entry),
		nowF:    time.Now,
	}
}

// Put stores an identity until its TTL lapses or it is invalidated.
func (c *Cache) Put(id Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id.UserID] = entry{identity: id, expiresAt: c.nowF().Add(c.ttl)}
}

// Get returns the cached identity if present and not expired.
func (c *Cache) Get(userID uuid.UUID) (Identity, bool) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return Identity{}, false
	}
	if !e.expiresAt.After(c.nowF()) {
		c.mu.Lock()
		delete(c.entries, userID)
		c.mu.Unlock()
		return Identity{}, false
	}
	return e.identity, true
}

// Invalidate drops the cached identity for a user. Called on every write to
// the underlying user record.
func (c *Cache) Invalidate(userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}
