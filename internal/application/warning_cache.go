package application

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// warningCache stores recently computed schedule warnings to avoid repeated
// advisory scans for identical list queries while events remain unchanged.
type warningCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]warningCacheEntry
}

type warningCacheEntry struct {
	warnings  []ScheduleWarning
	expiresAt time.Time
}

func newWarningCache(ttl time.Duration, maxEntries int, now func() time.Time) *warningCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &warningCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]warningCacheEntry),
	}
}

func (c *warningCache) Get(key string) ([]ScheduleWarning, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneWarnings(entry.warnings), true
}

func (c *warningCache) Store(key string, warnings []ScheduleWarning) {
	if c == nil {
		return
	}
	cloned := cloneWarnings(warnings)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = warningCacheEntry{warnings: cloned, expiresAt: expiry}
}

func (c *warningCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]warningCacheEntry)
	c.mu.Unlock()
}

func (c *warningCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *warningCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneWarnings(warnings []ScheduleWarning) []ScheduleWarning {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]ScheduleWarning, len(warnings))
	copy(out, warnings)
	return out
}

// buildWarningCacheKey identifies a list result by the viewing principal and
// the id/version pairs of the visible events, so any persisted change produces
// a fresh key even before the explicit invalidation runs.
func buildWarningCacheKey(principal Principal, events []Event) string {
	builder := strings.Builder{}
	builder.WriteString(principal.UserID)
	for _, event := range events {
		builder.WriteString("|")
		builder.WriteString(event.ID)
		builder.WriteString("@")
		builder.WriteString(strconv.FormatInt(event.Version, 10))
	}
	return builder.String()
}
