// Package models defines the core data structures used throughout Kisan Mitra.
package models

import "time"

// CanonicalMarket is the authoritative identity of a mandi. Free-text market
// names resolve to exactly one of these; MarketID is the cache and lookup key.
type CanonicalMarket struct {
	MarketID    string   `json:"market_id"`    // e.g., "UP-MUZ-01"
	DisplayName string   `json:"display_name"` // e.g., "Muzaffarnagar"
	District    string   `json:"district"`     // e.g., "Muzaffarnagar"
	State       string   `json:"state"`        // e.g., "Uttar Pradesh"
	Aliases     []string `json:"aliases"`      // vernacular and alternate spellings
}

// CanonicalCommodity is the authoritative identity of a traded commodity.
type CanonicalCommodity struct {
	CommodityID string   `json:"commodity_id"` // e.g., "wheat"
	DisplayName string   `json:"display_name"` // e.g., "Wheat"
	Aliases     []string `json:"aliases"`      // e.g., "गेहूं", "gehu", "kanak"
	Unit        string   `json:"unit"`         // "quintal" or "kg"
}

// MarketQuery is a single price request. Immutable once built.
type MarketQuery struct {
	Location  string    `json:"location"`            // free-text market/district name
	Commodity string    `json:"commodity,omitempty"` // free-text commodity name, "" = all
	Date      time.Time `json:"date"`                // zero value = today (IST)
}

// PriceRecord is one commodity's price row at one mandi on one day.
// Prices are in INR per Unit. Any of the three price fields may be absent
// when the source omits them; the record is then valid but Partial.
type PriceRecord struct {
	MarketID    string    `json:"market_id"`
	CommodityID string    `json:"commodity_id"`
	Date        time.Time `json:"date"`
	MinPrice    *float64  `json:"min_price,omitempty"`
	MaxPrice    *float64  `json:"max_price,omitempty"`
	ModalPrice  *float64  `json:"modal_price,omitempty"`
	Unit        string    `json:"unit"`
	Partial     bool      `json:"partial,omitempty"`
	FetchedAt   time.Time `json:"source_fetched_at"`
}

// Complete reports whether all three price fields are present.
func (r PriceRecord) Complete() bool {
	return r.MinPrice != nil && r.MaxPrice != nil && r.ModalPrice != nil
}

// Ordered reports whether min <= modal <= max. Records missing any of the
// three fields are trivially ordered.
func (r PriceRecord) Ordered() bool {
	if !r.Complete() {
		return true
	}
	return *r.MinPrice <= *r.ModalPrice && *r.ModalPrice <= *r.MaxPrice
}

// ResolutionResult is the outcome of one price resolution. It is always
// returned for resolvable queries: an empty Records slice with a
// FallbackReason is the normal expression of "no data found".
type ResolutionResult struct {
	Records        []PriceRecord   `json:"records"`
	Market         CanonicalMarket `json:"resolved_market"`
	Date           time.Time       `json:"resolved_date"`
	RequestedDate  time.Time       `json:"requested_date"`
	Fallback       bool            `json:"fallback_applied"`
	FallbackReason string          `json:"fallback_reason,omitempty"`
}

// CommoditySummary is the formatter's per-commodity view of a resolution.
type CommoditySummary struct {
	CommodityID string   `json:"commodity_id"`
	Name        string   `json:"name"`
	Unit        string   `json:"unit"`
	MinPrice    *float64 `json:"min_price,omitempty"`
	MaxPrice    *float64 `json:"max_price,omitempty"`
	ModalPrice  *float64 `json:"modal_price,omitempty"`
	Markets     int      `json:"markets"` // number of records folded in
	Partial     bool     `json:"partial,omitempty"`
}

// PriceSummary is the structured, farmer-facing result handed to the tool
// layer. It carries no rendered text; the caller localizes presentation.
type PriceSummary struct {
	Market      CanonicalMarket    `json:"market"`
	Date        string             `json:"date"`           // DD-Mon-YYYY
	Stale       bool               `json:"stale"`          // a fallback date/market was used
	StaleReason string             `json:"stale_reason,omitempty"`
	Commodities []CommoditySummary `json:"commodities"`
	TrendNote   string             `json:"trend_note,omitempty"` // machine-readable, e.g. "rabi_harvest_pressure"
	GeneratedAt time.Time          `json:"generated_at"`
}
