package recurrence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/samber/mo"
)

// cacheEntry is one cached expansion.
type cacheEntry struct {
	occurrences []time.Time
	expiresAt   time.Time
	accessedAt  time.Time
}

// ExpansionCache holds expansion results for a limited time.
type ExpansionCache struct {
	entries         map[string]*cacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// CacheConfig holds configuration for the expansion cache.
type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	MaxEntries      int           `yaml:"maxEntries"`
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
}

var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewExpansionCache starts a cache and its cleanup goroutine. Call Close to
// stop it.
func NewExpansionCache(config CacheConfig) *ExpansionCache {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}
	cache := &ExpansionCache{
		entries:         make(map[string]*cacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	go cache.cleanupLoop()
	return cache
}

// expansionKey identifies an expansion by the rule's interchange form, the
// anchor and the window.
func expansionKey(r Rule, anchor time.Time, w Window) (string, error) {
	encoded, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	hasher := sha256.New()
	hasher.Write(encoded)
	hasher.Write([]byte(anchor.UTC().Format(time.RFC3339Nano)))
	hasher.Write([]byte(w.From.UTC().Format(time.RFC3339Nano)))
	hasher.Write([]byte(w.To.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Get returns a copy of the cached occurrences under key, if present and
// not expired.
func (c *ExpansionCache) Get(key string) mo.Option[[]time.Time] {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()
	if !exists {
		return mo.None[[]time.Time]()
	}

	now := time.Now()
	c.mutex.Lock()
	defer c.mutex.Unlock()
	// Set may have replaced the entry since the read lock was released.
	if entry, exists = c.entries[key]; !exists {
		return mo.None[[]time.Time]()
	}
	if now.After(entry.expiresAt) {
		delete(c.entries, key)
		return mo.None[[]time.Time]()
	}
	entry.accessedAt = now
	return mo.Some(slices.Clone(entry.occurrences))
}

// Set stores occurrences under key.
func (c *ExpansionCache) Set(key string, occurrences []time.Time) {
	now := time.Now()
	entry := &cacheEntry{
		occurrences: slices.Clone(occurrences),
		expiresAt:   now.Add(c.ttl),
		accessedAt:  now,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = entry
	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries, then the least recently used ones while
// over the limit. Callers hold the write lock.
func (c *ExpansionCache) cleanup() {
	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}
	list := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		list = append(list, keyAccess{key: key, accessedAt: entry.accessedAt})
	}
	slices.SortFunc(list, func(a, b keyAccess) int { return a.accessedAt.Compare(b.accessedAt) })
	for _, ka := range list[:len(c.entries)-c.maxEntries] {
		delete(c.entries, ka.key)
	}
}

func (c *ExpansionCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache.
func (c *ExpansionCache) Close() {
	c.closeOnce.Do(func() { close(c.stopCleanup) })
	c.mutex.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mutex.Unlock()
}

// CacheStats describes the cache contents.
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}

func (c *ExpansionCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	expired := 0
	now := time.Now()
	for _, entry := range c.entries {
		if now.After(entry.expiresAt) {
			expired++
		}
	}
	return CacheStats{
		TotalEntries:   len(c.entries),
		ExpiredEntries: expired,
		ActiveEntries:  len(c.entries) - expired,
	}
}
