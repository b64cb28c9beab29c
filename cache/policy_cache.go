// cache/policy_cache.go
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ameet-kotian/citadel/model"
)

// Key identifies one policy lookup.
type Key struct {
	TenantID string
	Subject  string
	Resource string
	Action   string
}

func (k Key) String() string {
	return fmt.Sprintf("policies:%s:%s:%s:%s", k.TenantID, k.Subject, k.Resource, k.Action)
}

// PolicyCache caches applicable-policy lookups. Staleness is bounded by the
// TTL and by InvalidateTenant, which the policy service calls synchronously
// on every mutation. Implementations must be safe for concurrent use.
type PolicyCache interface {
	Get(ctx context.Context, key Key) ([]*model.Policy, bool, error)
	Set(ctx context.Context, key Key, policies []*model.Policy) error
	InvalidateTenant(ctx context.Context, tenantID string) error
}

type memoryEntry struct {
	policies  []*model.Policy
	expiresAt time.Time
}

// MemoryCache is a TTL map with a per-tenant key index so tenant invalidation
// does not scan the whole cache.
type MemoryCache struct {
	mu         sync.RWMutex
	ttl        time.Duration
	entries    map[Key]memoryEntry
	tenantKeys map[string]map[Key]struct{}
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryCache{
		ttl:        ttl,
		entries:    make(map[Key]memoryEntry),
		tenantKeys: make(map[string]map[Key]struct{}),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key Key) ([]*model.Policy, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.policies, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key Key, policies []*model.Policy) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{policies: policies, expiresAt: time.Now().Add(c.ttl)}
	keys, ok := c.tenantKeys[key.TenantID]
	if !ok {
		keys = make(map[Key]struct{})
		c.tenantKeys[key.TenantID] = keys
	}
	keys[key] = struct{}{}
	return nil
}

func (c *MemoryCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.tenantKeys[tenantID] {
		delete(c.entries, key)
	}
	delete(c.tenantKeys, tenantID)
	return nil
}
