package mandi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

// PriceCache stores fetched price tables keyed by (market_id, date).
//
// Freshness: a same-day entry expires at the next IST midnight, because the
// first successful fetch for "today" is trusted for the remainder of that
// day. Historical-date entries never expire. Expired entries are purged
// lazily on access.
//
// A singleflight group serializes concurrent misses per key: one caller
// fetches, everyone else waits and reuses the winner's records.
type PriceCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
	clock   func() time.Time // injectable for expiry tests
}

type cacheEntry struct {
	records   []models.PriceRecord
	createdAt time.Time
	expiresAt time.Time // zero = never
}

// NewPriceCache creates an empty price cache.
func NewPriceCache() *PriceCache {
	return &PriceCache{
		entries: make(map[string]cacheEntry),
		clock:   utils.NowIST,
	}
}

func cacheKey(marketID string, date time.Time) string {
	return fmt.Sprintf("%s|%s", marketID, utils.FormatMandiDate(date))
}

// Get returns the cached records for (marketID, date), purging the entry
// first if its TTL has elapsed.
func (c *PriceCache) Get(marketID string, date time.Time) ([]models.PriceRecord, bool) {
	key := cacheKey(marketID, date)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && c.clock().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a fresh Put may have raced in.
		if cur, ok := c.entries[key]; ok && cur.createdAt.Equal(e.createdAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.records, true
}

// Put stores records for (marketID, date), overwriting any existing entry.
func (c *PriceCache) Put(marketID string, date time.Time, records []models.PriceRecord) {
	now := c.clock()
	e := cacheEntry{records: records, createdAt: now}
	if utils.SameDay(date, now) {
		e.expiresAt = utils.NextMidnight(now)
	}

	c.mu.Lock()
	c.entries[cacheKey(marketID, date)] = e
	c.mu.Unlock()
}

// GetOrFetch returns cached records or runs fetch exactly once per key
// under concurrent misses. The winner's result is stored before any waiter
// is released, so every caller observes the same records. Fetch errors are
// not cached.
func (c *PriceCache) GetOrFetch(ctx context.Context, marketID string, date time.Time,
	fetch func(ctx context.Context) ([]models.PriceRecord, error)) ([]models.PriceRecord, error) {

	if records, ok := c.Get(marketID, date); ok {
		return records, nil
	}

	v, err, _ := c.group.Do(cacheKey(marketID, date), func() (any, error) {
		// A writer may have completed between our miss and the flight start.
		if records, ok := c.Get(marketID, date); ok {
			return records, nil
		}
		records, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(marketID, date, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.PriceRecord), nil
}

// Len returns the number of live entries. Intended for tests and health
// reporting; expired entries still pending lazy purge are counted.
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
