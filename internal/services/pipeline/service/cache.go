package service

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"linkshell/internal/core/textnorm"
)

// Fingerprint keys a translation by engine, language pair and the hash of the
// folded text, so whitespace and punctuation variants share an entry
func Fingerprint(engine, source, target, text string) string {
	sum := sha256.Sum256([]byte(textnorm.Fold(text)))
	return engine + ":" + source + ":" + target + ":" + hex.EncodeToString(sum[:16])
}

type cacheEntry struct {
	text string
	at   time.Time
}

// Cache is a bounded FIFO of translations with lazy TTL expiry.
// Oldest inserted entries are evicted first; a re-put moves the entry to the
// tail. Reads use Peek so they never refresh an entry's position
type Cache struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, cacheEntry] // nil when disabled
	ttl time.Duration
	now func() time.Time
}

// NewCache builds a cache. A disabled cache always misses and never stores
func NewCache(enabled bool, size int, ttl time.Duration) *Cache {
	c := &Cache{ttl: ttl, now: time.Now}
	if enabled && size > 0 {
		// only a non-positive size errors
		c.lru, _ = simplelru.NewLRU[string, cacheEntry](size, nil)
	}
	return c
}

// Get returns the cached translation for fp. Expired entries are removed and miss
func (c *Cache) Get(fp string) (string, bool) {
	if c.lru == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Peek(fp)
	if !ok {
		return "", false
	}
	if c.ttl > 0 && c.now().Sub(e.at) >= c.ttl {
		c.lru.Remove(fp)
		return "", false
	}
	return e.text, true
}

// Put stores text under fp, evicting the oldest entry past capacity
func (c *Cache) Put(fp, text string) {
	if c.lru == nil {
		return
	}
	c.mu.Lock()
	c.lru.Add(fp, cacheEntry{text: text, at: c.now()})
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included until read
func (c *Cache) Len() int {
	if c.lru == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// TTL is the configured expiry
func (c *Cache) TTL() time.Duration { return c.ttl }

// Clear drops every entry
func (c *Cache) Clear() {
	if c.lru == nil {
		return
	}
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
}
