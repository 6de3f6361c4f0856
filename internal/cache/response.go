package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"crisisengine.dev/ensemble/internal/models"
)

// ResponseCache is the in-process, bounded LRU+TTL cache for fused
// CrisisAssessments (C12). It has nothing to do with RedisCache (redis.go):
// RedisCache backs ambient HTTP-edge concerns (rate limiting,
// idempotency) shared across replicas; ResponseCache is a per-process
// memoization of the engine's own expensive model-inference pipeline and
// is intentionally not shared, since spec §4.12 requires no persisted
// state.
type ResponseCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List
}

type cacheEntry struct {
	key       string
	value     models.CrisisAssessment
	expiresAt time.Time
}

func NewResponseCache(maxSize int, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached assessment for key, evicting it first if its TTL
// has expired.
func (c *ResponseCache) Get(key string) (models.CrisisAssessment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return models.CrisisAssessment{}, false
	}
	entry := elem.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		return models.CrisisAssessment{}, false
	}
	c.order.MoveToFront(elem)
	return entry.value, true
}

// Put stores value under key, evicting the least-recently-used entry if
// the cache is at capacity.
func (c *ResponseCache) Put(key string, value models.CrisisAssessment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*cacheEntry).value = value
		elem.Value.(*cacheEntry).expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}

	entry := &cacheEntry{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}
	elem := c.order.PushFront(entry)
	c.items[key] = elem

	if c.maxSize > 0 && c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *ResponseCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	c.order.Remove(elem)
	delete(c.items, entry.key)
}

// Len reports the current number of cached entries.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Key builds the cache key from the normalized text, the selected
// algorithm and verbosity, and a fingerprint of the supplied history
// (spec §4.12 "keyed by normalized text + algorithm + verbosity +
// history fingerprint"). normalizedText must already have gone through
// textnorm.Normalize — this package has no normalization logic of its
// own.
func Key(normalizedText string, algorithm models.Algorithm, verbosity models.Verbosity, historyFingerprint string) string {
	h := sha256.New()
	h.Write([]byte(normalizedText))
	h.Write([]byte{0})
	h.Write([]byte(algorithm))
	h.Write([]byte{0})
	h.Write([]byte(verbosity))
	h.Write([]byte{0})
	h.Write([]byte(historyFingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// HistoryFingerprint hashes a history slice deterministically so that
// two requests with identical history produce the same cache key and any
// change to history (a new message, a changed score) invalidates it.
func HistoryFingerprint(history []models.MessageHistoryItem) string {
	if len(history) == 0 {
		return ""
	}
	h := sha256.New()
	for _, item := range history {
		h.Write([]byte(item.Text))
		h.Write([]byte{0})
		h.Write([]byte(item.Timestamp.UTC().Format(time.RFC3339Nano)))
		h.Write([]byte{0})
		if item.CrisisScore != nil {
			h.Write([]byte(strconv.FormatFloat(*item.CrisisScore, 'f', -1, 64)))
		}
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
