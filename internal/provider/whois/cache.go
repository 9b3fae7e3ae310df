package whois

import (
	"slices"
	"sync"
	"time"

	"github.com/MimoJanra/DomainReport/internal/models"
)

type cacheEntry struct {
	record    models.WhoisRecord
	createdAt time.Time
	expiresAt time.Time
}

// Cache keeps successful WHOIS lookups for a fixed TTL. Registration data
// changes rarely and the upstream API is metered.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached record so callers may attach history.
func (c *Cache) Get(domain string) (*models.WhoisRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[domain]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	rec := entry.record
	rec.Status = slices.Clone(entry.record.Status)
	rec.NameServers = slices.Clone(entry.record.NameServers)
	return &rec, true
}

func (c *Cache) Set(domain string, rec *models.WhoisRecord) {
	if rec == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[domain]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := c.now()
	stored := *rec
	stored.History = nil
	stored.Status = slices.Clone(rec.Status)
	stored.NameServers = slices.Clone(rec.NameServers)
	c.entries[domain] = &cacheEntry{
		record:    stored,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
}

func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.createdAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.createdAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
