package market

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CacheKey identifies one cached market-wide rendering. Views with a
// destination station are never cached, so the station code is not part of
// the key; the key space is bounded by the enum values and the handful of
// templates and row limits in use.
type CacheKey struct {
	Direction Direction
	TaxMode   TaxMode
	Template  string
	RowsLimit int
}

// cacheEntry holds one rendered report with its expiry.
type cacheEntry struct {
	html    string
	expires time.Time
}

// ReportCache is a thread-safe TTL cache for rendered market reports.
// A singleflight.Group coalesces concurrent builds of the same key, so a
// burst of identical requests renders the report once.
type ReportCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[CacheKey]cacheEntry
	group   singleflight.Group
}

// NewReportCache creates an empty cache whose entries live for ttl.
func NewReportCache(ttl time.Duration) *ReportCache {
	return &ReportCache{
		ttl:     ttl,
		entries: make(map[CacheKey]cacheEntry),
	}
}

// Get returns the cached rendering for key if present and not expired.
func (c *ReportCache) Get(key CacheKey) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		return "", false
	}
	return e.html, true
}

// Put stores a rendering under key with a fresh TTL.
func (c *ReportCache) Put(key CacheKey, html string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{html: html, expires: time.Now().Add(c.ttl)}
}

// GetOrBuild returns the cached rendering for key, building and storing it
// when absent or expired. Concurrent callers with the same key share one
// build. The second return value reports whether the cache was hit.
func (c *ReportCache) GetOrBuild(key CacheKey, build func() (string, error)) (string, bool, error) {
	if html, ok := c.Get(key); ok {
		return html, true, nil
	}

	sfKey := fmt.Sprintf("%s|%s|%s|%d", key.Direction, key.TaxMode, key.Template, key.RowsLimit)
	v, err, _ := c.group.Do(sfKey, func() (interface{}, error) {
		// A racing caller may have finished the build while we queued.
		if html, ok := c.Get(key); ok {
			return html, nil
		}
		html, err := build()
		if err != nil {
			return "", err
		}
		c.Put(key, html)
		return html, nil
	})
	if err != nil {
		return "", false, err
	}
	return v.(string), false, nil
}

// Invalidate drops all entries and returns how many were removed. Called
// whenever bid or station data changes.
func (c *ReportCache) Invalidate() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := len(c.entries)
	c.entries = make(map[CacheKey]cacheEntry)
	return removed
}

// Len returns the number of entries currently stored, expired ones included.
func (c *ReportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
