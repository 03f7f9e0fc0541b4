package mandi

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

func priceOf(v float64) *float64 { return &v }

func testRecord(marketID, commodityID string, date time.Time) models.PriceRecord {
	return models.PriceRecord{
		MarketID:    marketID,
		CommodityID: commodityID,
		Date:        date,
		MinPrice:    priceOf(2100),
		MaxPrice:    priceOf(2350),
		ModalPrice:  priceOf(2200),
		Unit:        "quintal",
		FetchedAt:   date,
	}
}

func TestCachePutGet(t *testing.T) {
	c := NewPriceCache()
	date := utils.TruncateToDay(utils.NowIST().AddDate(0, 0, -3))

	c.Put("UP-MUZ-01", date, []models.PriceRecord{testRecord("UP-MUZ-01", "wheat", date)})

	got, ok := c.Get("UP-MUZ-01", date)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0].CommodityID != "wheat" {
		t.Fatalf("unexpected records: %+v", got)
	}

	if _, ok := c.Get("UP-MUZ-02", date); ok {
		t.Error("expected miss for different market")
	}
	if _, ok := c.Get("UP-MUZ-01", date.AddDate(0, 0, 1)); ok {
		t.Error("expected miss for different date")
	}
}

func TestCacheSameDayExpiresAtMidnight(t *testing.T) {
	c := NewPriceCache()
	now := utils.NowIST()
	today := utils.TruncateToDay(now)

	c.Put("UP-MUZ-01", today, []models.PriceRecord{testRecord("UP-MUZ-01", "wheat", today)})
	if _, ok := c.Get("UP-MUZ-01", today); !ok {
		t.Fatal("expected hit before midnight")
	}

	// Move the clock past IST midnight.
	c.clock = func() time.Time { return utils.NextMidnight(now).Add(time.Minute) }
	if _, ok := c.Get("UP-MUZ-01", today); ok {
		t.Error("expected same-day entry to expire at midnight")
	}
	if c.Len() != 0 {
		t.Error("expected expired entry to be purged lazily on access")
	}
}

func TestCacheHistoricalNeverExpires(t *testing.T) {
	c := NewPriceCache()
	past := utils.TruncateToDay(utils.NowIST().AddDate(0, 0, -30))

	c.Put("UP-MUZ-01", past, []models.PriceRecord{testRecord("UP-MUZ-01", "wheat", past)})

	// Even a year later the historical entry stays.
	c.clock = func() time.Time { return utils.NowIST().AddDate(1, 0, 0) }
	if _, ok := c.Get("UP-MUZ-01", past); !ok {
		t.Error("historical entry should never expire")
	}
}

func TestCachePutOverwrites(t *testing.T) {
	c := NewPriceCache()
	date := utils.TruncateToDay(utils.NowIST().AddDate(0, 0, -1))

	c.Put("UP-MUZ-01", date, []models.PriceRecord{testRecord("UP-MUZ-01", "wheat", date)})
	c.Put("UP-MUZ-01", date, []models.PriceRecord{testRecord("UP-MUZ-01", "rice", date)})

	got, ok := c.Get("UP-MUZ-01", date)
	if !ok || len(got) != 1 || got[0].CommodityID != "rice" {
		t.Fatalf("expected overwritten entry, got %+v", got)
	}
}

// Two concurrent requests for the same uncached key must result in exactly
// one fetch; both callers receive the winner's records.
func TestCacheSingleFlight(t *testing.T) {
	c := NewPriceCache()
	date := utils.TruncateToDay(utils.NowIST().AddDate(0, 0, -1))

	var fetches atomic.Int32
	fetch := func(ctx context.Context) ([]models.PriceRecord, error) {
		fetches.Add(1)
		time.Sleep(20 * time.Millisecond) // widen the race window
		return []models.PriceRecord{testRecord("UP-MUZ-01", "wheat", date)}, nil
	}

	const callers = 8
	results := make([][]models.PriceRecord, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs, err := c.GetOrFetch(context.Background(), "UP-MUZ-01", date, fetch)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			results[i] = recs
		}(i)
	}
	wg.Wait()

	if n := fetches.Load(); n != 1 {
		t.Fatalf("fetch invoked %d times, want exactly 1", n)
	}
	for i, recs := range results {
		if len(recs) != 1 || recs[0].CommodityID != "wheat" {
			t.Errorf("caller %d got %+v", i, recs)
		}
	}
}

func TestCacheFetchErrorNotCached(t *testing.T) {
	c := NewPriceCache()
	date := utils.TruncateToDay(utils.NowIST().AddDate(0, 0, -1))

	calls := 0
	failing := func(ctx context.Context) ([]models.PriceRecord, error) {
		calls++
		return nil, &SourceError{Kind: SourceTransient, Op: "test", Err: context.DeadlineExceeded}
	}

	if _, err := c.GetOrFetch(context.Background(), "UP-MUZ-01", date, failing); err == nil {
		t.Fatal("expected fetch error")
	}
	if _, err := c.GetOrFetch(context.Background(), "UP-MUZ-01", date, failing); err == nil {
		t.Fatal("expected second fetch error")
	}
	if calls != 2 {
		t.Errorf("failed fetches should not be cached; fetch ran %d times, want 2", calls)
	}
}

func TestCacheDistinctKeysDoNotSerialize(t *testing.T) {
	c := NewPriceCache()
	date := utils.TruncateToDay(utils.NowIST().AddDate(0, 0, -1))

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.GetOrFetch(context.Background(), "UP-MUZ-01", date, func(ctx context.Context) ([]models.PriceRecord, error) {
			close(started)
			<-release
			return []models.PriceRecord{}, nil
		})
	}()

	<-started
	// While UP-MUZ-01 is in flight, a different key must proceed.
	done := make(chan struct{})
	go func() {
		_, _ = c.GetOrFetch(context.Background(), "UP-MUZ-02", date, func(ctx context.Context) ([]models.PriceRecord, error) {
			return []models.PriceRecord{}, nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch for a distinct key blocked behind an unrelated in-flight fetch")
	}
	close(release)
	wg.Wait()
}
