// Package mandi implements the market intelligence core: name resolution,
// price caching with single-flight fetches, layered fallback across dates
// and neighbouring mandis, and structured result formatting.
package mandi

import (
	"context"
	"fmt"
	"time"

	"github.com/kisansetu/kisanmitra/pkg/models"
)

// SourceErrorKind classifies adapter failures.
type SourceErrorKind int

const (
	// SourceTransient covers network faults, timeouts and rate limiting.
	// Worth retrying and worth falling back from.
	SourceTransient SourceErrorKind = iota
	// SourcePermanent means the source was reachable but confirmed it has
	// no data for the exact (market, date) asked. Never retried for that
	// key; triggers date/market fallback immediately.
	SourcePermanent
)

func (k SourceErrorKind) String() string {
	if k == SourcePermanent {
		return "permanent"
	}
	return "transient"
}

// SourceError is the only error type a SourceAdapter may return.
type SourceError struct {
	Kind SourceErrorKind
	Op   string // e.g., "agmarknet.fetch"
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s source error: %v", e.Op, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Transient reports whether err is a transient SourceError.
func Transient(err error) bool {
	se, ok := err.(*SourceError)
	return ok && se.Kind == SourceTransient
}

// Permanent reports whether err is a permanent SourceError.
func Permanent(err error) bool {
	se, ok := err.(*SourceError)
	return ok && se.Kind == SourcePermanent
}

// ResolutionErrorKind classifies hard resolution failures. These are the
// only errors callers of Service.Resolve ever see; everything the source
// does wrong is absorbed into fallback and reported as a degraded result.
type ResolutionErrorKind int

const (
	// UnknownLocation: the market text resolved to nothing, even fuzzily.
	UnknownLocation ResolutionErrorKind = iota
	// UnknownCommodity: the commodity text resolved to nothing.
	UnknownCommodity
)

func (k ResolutionErrorKind) String() string {
	if k == UnknownCommodity {
		return "unknown_commodity"
	}
	return "unknown_location"
}

// ResolutionError is returned for unresolvable input, never for missing data.
type ResolutionError struct {
	Kind ResolutionErrorKind
	Text string // the input that failed to resolve
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %q", e.Kind, e.Text)
}

// Fallback reason codes carried on ResolutionResult. The tool layer maps
// these to localized farmer-facing phrasing; this package never renders text.
const (
	ReasonDateShift          = "date_shifted"
	ReasonMarketShift        = "market_shifted"
	ReasonCommodityNotTraded = "commodity not traded"
	ReasonNoData             = "no_data_found"
)

// SourceAdapter fetches the raw price table for one market and date.
// Implementations classify every failure as transient or permanent via
// SourceError and perform their own bounded retry of transient faults.
// Adapters must be safe for concurrent use and must not touch the cache.
type SourceAdapter interface {
	Fetch(ctx context.Context, marketID string, date time.Time) ([]models.PriceRecord, error)
	Name() string
}
