package mandi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kisansetu/kisanmitra/internal/refdata"
	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

// Options bound the fallback search. Policy, not mechanism: tune per
// deployment through configuration.
type Options struct {
	// LookbackDays is how many prior dates to try when the requested date
	// has no data.
	LookbackDays int
	// MaxAlternateMarkets caps how many same-district markets are tried
	// after the primary market is exhausted.
	MaxAlternateMarkets int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{LookbackDays: 7, MaxAlternateMarkets: 3}
}

// Service is the market intelligence entry point handed to the tool layer.
// It owns the cache and coordinates resolver, adapter and formatter.
type Service struct {
	catalog  *refdata.Catalog
	resolver *Resolver
	cache    *PriceCache
	adapter  SourceAdapter
	opts     Options
	profile  *models.FarmerProfile // nil when no profile is loaded
	log      *logrus.Logger
}

// NewService wires a Service. profile may be nil; log may be nil, in which
// case a discard-level logger is substituted.
func NewService(catalog *refdata.Catalog, adapter SourceAdapter, opts Options,
	profile *models.FarmerProfile, log *logrus.Logger) *Service {

	if opts.LookbackDays <= 0 {
		opts.LookbackDays = DefaultOptions().LookbackDays
	}
	if opts.MaxAlternateMarkets < 0 {
		opts.MaxAlternateMarkets = DefaultOptions().MaxAlternateMarkets
	}
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	var home *models.FarmerLocation
	if profile != nil {
		home = &profile.Location
	}
	return &Service{
		catalog:  catalog,
		resolver: NewResolver(catalog, home),
		cache:    NewPriceCache(),
		adapter:  adapter,
		opts:     opts,
		profile:  profile,
		log:      log,
	}
}

// Resolver exposes the name resolver for callers that only need resolution.
func (s *Service) Resolver() *Resolver { return s.resolver }

// Cache exposes the price cache, mainly for health reporting.
func (s *Service) Cache() *PriceCache { return s.cache }

// Resolve answers a MarketQuery with the layered fallback of the mandi
// subsystem: exact cache, exact source, prior dates within the lookback
// window, then neighbouring markets. "No data" is a normal result with an
// explanatory reason; the only hard failures are unresolvable market or
// commodity text.
func (s *Service) Resolve(ctx context.Context, q models.MarketQuery) (models.ResolutionResult, error) {
	market, commodity, err := s.resolveNames(q)
	if err != nil {
		return models.ResolutionResult{}, err
	}

	date := q.Date
	if date.IsZero() {
		date = utils.NowIST()
	}
	date = utils.TruncateToDay(date)

	log := s.log.WithFields(logrus.Fields{
		"market": market.MarketID,
		"date":   utils.FormatMandiDate(date),
	})
	if commodity != nil {
		log = log.WithField("commodity", commodity.CommodityID)
	}

	result := models.ResolutionResult{
		Market:        market,
		Date:          date,
		RequestedDate: date,
	}

	// partial remembers the best "market traded, commodity absent" outcome
	// so exhaustion can report it instead of a bare no-data.
	var partial *models.ResolutionResult

	for _, cand := range s.candidates(market, date) {
		records, found := s.lookup(ctx, log, cand.market.MarketID, cand.date)
		if !found || len(records) == 0 {
			continue
		}

		filtered := records
		if commodity != nil {
			filtered = filterByCommodity(records, commodity.CommodityID)
		}

		res := result
		res.Market = cand.market
		res.Date = cand.date
		res.Fallback = cand.fallback(market.MarketID, date)
		res.FallbackReason = cand.reason(market.MarketID, date)

		if len(filtered) > 0 {
			res.Records = filtered
			if res.Fallback {
				log.WithFields(logrus.Fields{
					"used_market": cand.market.MarketID,
					"used_date":   utils.FormatMandiDate(cand.date),
				}).Info("price query satisfied via fallback")
			}
			return res, nil
		}

		// Market traded that day, but not this commodity. Fallback keeps
		// reflecting market/date substitution only.
		if partial == nil {
			p := res
			p.Records = nil
			p.FallbackReason = ReasonCommodityNotTraded
			partial = &p
		}
	}

	if partial != nil {
		log.Info("commodity not traded on any reachable market/date")
		return *partial, nil
	}

	log.Info("price fallback exhausted with no data")
	result.Fallback = true
	result.FallbackReason = ReasonNoData
	return result, nil
}

// resolveNames applies profile defaults and resolves free text to canonical
// entities. The commodity pointer is nil when the query asks for all.
func (s *Service) resolveNames(q models.MarketQuery) (models.CanonicalMarket, *models.CanonicalCommodity, error) {
	location := strings.TrimSpace(q.Location)
	if location == "" && s.profile != nil {
		if s.profile.PreferredMarket != "" {
			location = s.profile.PreferredMarket
		} else {
			location = s.profile.Location.District
		}
	}
	market, err := s.resolver.ResolveMarket(location)
	if err != nil {
		return models.CanonicalMarket{}, nil, err
	}

	var commodity *models.CanonicalCommodity
	if text := strings.TrimSpace(q.Commodity); text != "" {
		c, err := s.resolver.ResolveCommodity(text)
		if err != nil {
			return models.CanonicalMarket{}, nil, err
		}
		commodity = &c
	}
	return market, commodity, nil
}

// candidate is one (market, date) attempt in fallback order.
type candidate struct {
	market models.CanonicalMarket
	date   time.Time
}

func (c candidate) fallback(primaryID string, requested time.Time) bool {
	return c.market.MarketID != primaryID || !c.date.Equal(requested)
}

func (c candidate) reason(primaryID string, requested time.Time) string {
	var parts []string
	if c.market.MarketID != primaryID {
		parts = append(parts, ReasonMarketShift+":"+c.market.MarketID)
	}
	if !c.date.Equal(requested) {
		parts = append(parts, ReasonDateShift+":"+utils.FormatMandiDate(c.date))
	}
	return strings.Join(parts, ";")
}

// candidates enumerates attempts in the contract's strict order: the
// primary market over the requested date and the lookback window, then each
// configured neighbour over the same date sequence.
func (s *Service) candidates(primary models.CanonicalMarket, date time.Time) []candidate {
	markets := []models.CanonicalMarket{primary}
	neighbours := s.catalog.Neighbours(primary.MarketID)
	if len(neighbours) > s.opts.MaxAlternateMarkets {
		neighbours = neighbours[:s.opts.MaxAlternateMarkets]
	}
	markets = append(markets, neighbours...)

	out := make([]candidate, 0, len(markets)*(s.opts.LookbackDays+1))
	for _, m := range markets {
		for back := 0; back <= s.opts.LookbackDays; back++ {
			out = append(out, candidate{market: m, date: date.AddDate(0, 0, -back)})
		}
	}
	return out
}

// lookup serves one (market, date) attempt through the cache with a
// single-flight fetch on miss. Permanent "no trading" outcomes are cached
// as empty tables so the exact key is never re-fetched that day; transient
// exhaustion leaves the key uncached and reports not-found to the caller so
// fallback can escalate.
func (s *Service) lookup(ctx context.Context, log *logrus.Entry, marketID string, date time.Time) ([]models.PriceRecord, bool) {
	records, err := s.cache.GetOrFetch(ctx, marketID, date, func(ctx context.Context) ([]models.PriceRecord, error) {
		recs, err := s.adapter.Fetch(ctx, marketID, date)
		if err != nil {
			if Permanent(err) {
				// Source confirmed: no trading for this exact key.
				return []models.PriceRecord{}, nil
			}
			return nil, err
		}
		return sanitizeRecords(recs), nil
	})
	if err != nil {
		log.WithFields(logrus.Fields{
			"attempt_market": marketID,
			"attempt_date":   utils.FormatMandiDate(date),
		}).WithError(err).Warn("source fetch failed, escalating fallback")
		return nil, false
	}
	return records, true
}

// sanitizeRecords enforces the price ordering invariant. Records violating
// min <= modal <= max are marked partial, never reordered.
func sanitizeRecords(records []models.PriceRecord) []models.PriceRecord {
	out := make([]models.PriceRecord, len(records))
	for i, r := range records {
		if !r.Ordered() {
			r.Partial = true
		}
		if !r.Complete() {
			r.Partial = true
		}
		out[i] = r
	}
	return out
}

func filterByCommodity(records []models.PriceRecord, commodityID string) []models.PriceRecord {
	var out []models.PriceRecord
	for _, r := range records {
		if r.CommodityID == commodityID {
			out = append(out, r)
		}
	}
	return out
}

// GetTodayPrices answers "what are prices near me today". location and
// commodity may be empty; profile defaults fill the gaps.
func (s *Service) GetTodayPrices(ctx context.Context, location, commodity string) (*models.PriceSummary, error) {
	res, err := s.Resolve(ctx, models.MarketQuery{Location: location, Commodity: commodity})
	if err != nil {
		return nil, err
	}
	return Format(res, s.catalog), nil
}

// GetPricesForDate answers a historical-date price query. The date string
// uses the mandi DD-Mon-YYYY layout.
func (s *Service) GetPricesForDate(ctx context.Context, location, dateStr, commodity string) (*models.PriceSummary, error) {
	date, err := utils.ParseMandiDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want DD-Mon-YYYY): %w", dateStr, err)
	}
	res, err := s.Resolve(ctx, models.MarketQuery{Location: location, Commodity: commodity, Date: date})
	if err != nil {
		return nil, err
	}
	return Format(res, s.catalog), nil
}
