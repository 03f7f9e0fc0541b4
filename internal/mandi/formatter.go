package mandi

import (
	"sort"
	"time"

	"github.com/kisansetu/kisanmitra/internal/refdata"
	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

// Format folds a ResolutionResult into the structured, farmer-facing price
// summary. Pure: same input yields identical output, with deterministic
// commodity order. GeneratedAt is the newest source fetch time among the
// records, not the wall clock.
func Format(res models.ResolutionResult, catalog *refdata.Catalog) *models.PriceSummary {
	summary := &models.PriceSummary{
		Market:      res.Market,
		Date:        utils.FormatMandiDate(res.Date),
		Stale:       res.Fallback,
		StaleReason: res.FallbackReason,
		TrendNote:   seasonTrendNote(res.Date),
	}
	for _, r := range res.Records {
		if r.FetchedAt.After(summary.GeneratedAt) {
			summary.GeneratedAt = r.FetchedAt
		}
	}

	grouped := make(map[string][]models.PriceRecord)
	for _, r := range res.Records {
		grouped[r.CommodityID] = append(grouped[r.CommodityID], r)
	}

	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		summary.Commodities = append(summary.Commodities, summarizeCommodity(id, grouped[id], catalog))
	}
	return summary
}

// summarizeCommodity folds all records of one commodity into a single view:
// widest min..max band, modal from the first complete record, unit
// normalized to quintal.
func summarizeCommodity(id string, records []models.PriceRecord, catalog *refdata.Catalog) models.CommoditySummary {
	cs := models.CommoditySummary{
		CommodityID: id,
		Name:        id,
		Unit:        "quintal",
		Markets:     len(records),
	}
	if catalog != nil {
		if c, ok := catalog.CommodityByID(id); ok {
			cs.Name = c.DisplayName
		}
	}

	for _, r := range records {
		factor := unitFactor(r.Unit)
		if r.Partial {
			cs.Partial = true
		}
		if r.MinPrice != nil {
			v := *r.MinPrice * factor
			if cs.MinPrice == nil || v < *cs.MinPrice {
				cs.MinPrice = &v
			}
		}
		if r.MaxPrice != nil {
			v := *r.MaxPrice * factor
			if cs.MaxPrice == nil || v > *cs.MaxPrice {
				cs.MaxPrice = &v
			}
		}
		if r.ModalPrice != nil && cs.ModalPrice == nil {
			v := *r.ModalPrice * factor
			cs.ModalPrice = &v
		}
	}
	if cs.MinPrice == nil || cs.MaxPrice == nil || cs.ModalPrice == nil {
		cs.Partial = true
	}
	return cs
}

// unitFactor converts a source unit into INR per quintal.
func unitFactor(unit string) float64 {
	if unit == "kg" {
		return 100
	}
	return 1
}

// seasonTrendNote maps the resolved date's month to the machine-readable
// seasonal pressure note carried on summaries. Rabi harvest depresses wheat
// and mustard in spring, kharif harvest depresses paddy and cotton in
// autumn, monsoon lifts vegetables.
func seasonTrendNote(date time.Time) string {
	switch date.In(utils.IST).Month() {
	case time.March, time.April, time.May:
		return "rabi_harvest_pressure"
	case time.October, time.November, time.December:
		return "kharif_harvest_pressure"
	case time.June, time.July, time.August:
		return "monsoon_vegetable_rise"
	default:
		return ""
	}
}
