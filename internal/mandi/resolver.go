package mandi

import (
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/kisansetu/kisanmitra/internal/refdata"
	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

// fuzzyThreshold is the minimum similarity score a fuzzy candidate must
// reach to be accepted. Score is 1 - dist/max(len); 0.72 lets common
// one-and-two-letter misspellings through while rejecting unrelated names.
const fuzzyThreshold = 0.72

// Resolver maps free-text market and commodity names to canonical entries.
// A nil home location disables the district tie-break.
type Resolver struct {
	catalog *refdata.Catalog
	home    *models.FarmerLocation
}

// NewResolver creates a resolver over the given catalog. home may be nil.
func NewResolver(catalog *refdata.Catalog, home *models.FarmerLocation) *Resolver {
	return &Resolver{catalog: catalog, home: home}
}

// ResolveMarket resolves free-text to a canonical market. Exact alias match
// first, then fuzzy matching against display names and aliases with a
// confidence threshold. Ties prefer the farmer's district, then state, then
// alphabetical display name.
func (r *Resolver) ResolveMarket(text string) (models.CanonicalMarket, error) {
	norm := utils.NormalizeName(text)
	if norm == "" {
		return models.CanonicalMarket{}, &ResolutionError{Kind: UnknownLocation, Text: text}
	}

	if m, ok := r.catalog.MarketByAlias(norm); ok {
		return m, nil
	}

	type candidate struct {
		market models.CanonicalMarket
		score  float64
	}
	var cands []candidate
	for _, m := range r.catalog.Markets() {
		best := similarity(norm, utils.NormalizeName(m.DisplayName))
		for _, a := range m.Aliases {
			if s := similarity(norm, utils.NormalizeName(a)); s > best {
				best = s
			}
		}
		if best >= fuzzyThreshold {
			cands = append(cands, candidate{market: m, score: best})
		}
	}
	if len(cands) == 0 {
		return models.CanonicalMarket{}, &ResolutionError{Kind: UnknownLocation, Text: text}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if r.home != nil {
			id, jd := cands[i].market.District == r.home.District, cands[j].market.District == r.home.District
			if id != jd {
				return id
			}
			is, js := cands[i].market.State == r.home.State, cands[j].market.State == r.home.State
			if is != js {
				return is
			}
		}
		return cands[i].market.DisplayName < cands[j].market.DisplayName
	})
	return cands[0].market, nil
}

// ResolveCommodity resolves free-text to a canonical commodity, with the
// same exact-then-fuzzy contract as ResolveMarket. Unlike markets,
// commodities carry no district or state, so score ties break
// alphabetically only.
func (r *Resolver) ResolveCommodity(text string) (models.CanonicalCommodity, error) {
	norm := utils.NormalizeName(text)
	if norm == "" {
		return models.CanonicalCommodity{}, &ResolutionError{Kind: UnknownCommodity, Text: text}
	}

	if c, ok := r.catalog.CommodityByAlias(norm); ok {
		return c, nil
	}

	var best models.CanonicalCommodity
	bestScore := 0.0
	for _, c := range r.catalog.Commodities() {
		s := similarity(norm, utils.NormalizeName(c.DisplayName))
		for _, a := range c.Aliases {
			if as := similarity(norm, utils.NormalizeName(a)); as > s {
				s = as
			}
		}
		switch {
		case s > bestScore:
			best, bestScore = c, s
		case s == bestScore && s > 0 && c.DisplayName < best.DisplayName:
			best = c
		}
	}
	if bestScore < fuzzyThreshold {
		return models.CanonicalCommodity{}, &ResolutionError{Kind: UnknownCommodity, Text: text}
	}
	return best, nil
}

// similarity scores two normalized strings in [0,1] from edit distance.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(max)
}
