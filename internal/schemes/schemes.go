// Package schemes recommends government agricultural schemes a farmer
// appears eligible for but is not yet enrolled in. The scheme catalog is
// embedded reference data; eligibility is matched against the farmer
// profile on landholding, state, and credit status.
package schemes

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"

	_ "embed"
)

//go:embed data/schemes.json
var schemesJSON []byte

// Advisor matches farmers against the scheme catalog.
type Advisor struct {
	schemes []models.Scheme
	bySlug  map[string]models.Scheme
}

// Load builds an Advisor from the embedded scheme catalog.
func Load() (*Advisor, error) {
	return load(schemesJSON)
}

func load(data []byte) (*Advisor, error) {
	var schemes []models.Scheme
	if err := json.Unmarshal(data, &schemes); err != nil {
		return nil, fmt.Errorf("parse scheme catalog: %w", err)
	}

	// Keyed by normalized slug so lookups tolerate hyphen and case variants.
	bySlug := make(map[string]models.Scheme, len(schemes))
	for _, s := range schemes {
		if s.Slug == "" || s.Name == "" {
			return nil, fmt.Errorf("scheme catalog entry missing slug or name")
		}
		key := utils.NormalizeName(s.Slug)
		if _, dup := bySlug[key]; dup {
			return nil, fmt.Errorf("duplicate scheme slug %q", s.Slug)
		}
		bySlug[key] = s
	}

	return &Advisor{schemes: schemes, bySlug: bySlug}, nil
}

// All returns the full scheme catalog in table order.
func (a *Advisor) All() []models.Scheme { return a.schemes }

// BySlug looks up a scheme by slug or name, case-insensitive.
func (a *Advisor) BySlug(nameOrSlug string) (models.Scheme, bool) {
	needle := utils.NormalizeName(nameOrSlug)
	if s, ok := a.bySlug[needle]; ok {
		return s, true
	}
	for _, s := range a.schemes {
		if utils.NormalizeName(s.Name) == needle || utils.NormalizeName(s.NameHindi) == needle {
			return s, true
		}
	}
	return models.Scheme{}, false
}

// Recommend returns schemes the farmer is likely eligible for, skipping
// those already enrolled. Results keep catalog order.
func (a *Advisor) Recommend(p *models.FarmerProfile) []models.SchemeRecommendation {
	if p == nil {
		return nil
	}

	enrolled := enrolledSlugs(a.schemes, p.EnrolledSchemes)
	landHa := p.LandHectares()

	var recs []models.SchemeRecommendation
	for _, s := range a.schemes {
		if enrolled[s.Slug] {
			continue
		}

		reasons, eligible := a.checkEligibility(s, p, landHa)
		if !eligible {
			continue
		}
		recs = append(recs, models.SchemeRecommendation{
			Scheme:       s,
			MatchReasons: reasons,
		})
	}
	return recs
}

// checkEligibility evaluates one scheme against the profile. Every bound
// in the catalog entry must pass; reasons name the checks that matched.
func (a *Advisor) checkEligibility(s models.Scheme, p *models.FarmerProfile, landHa float64) ([]string, bool) {
	var reasons []string

	if s.MaxLandHectares > 0 {
		if landHa > s.MaxLandHectares {
			return nil, false
		}
		reasons = append(reasons, "landholding_within_limit")
	}
	if s.MinLandHectares > 0 {
		if landHa < s.MinLandHectares {
			return nil, false
		}
		reasons = append(reasons, "landholding_meets_minimum")
	}
	if len(s.States) > 0 {
		if !stateListed(s.States, p.Location.State) {
			return nil, false
		}
		reasons = append(reasons, "state_match")
	}
	if s.RequiresKCC {
		if !p.Economic.HasKCC {
			return nil, false
		}
		reasons = append(reasons, "kcc_holder")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "open_to_all_farmers")
	}
	return reasons, true
}

// enrolledSlugs resolves the free-text enrollment list against the catalog.
// Farmers record enrollments loosely ("PM Kisan", "pm-kisan", the Hindi
// name), so match on slug or either name, substring included.
func enrolledSlugs(schemes []models.Scheme, enrolled []string) map[string]bool {
	out := make(map[string]bool)
	for _, e := range enrolled {
		needle := compact(e)
		if needle == "" {
			continue
		}
		for _, s := range schemes {
			if needle == compact(s.Slug) ||
				strings.Contains(needle, compact(s.Name)) ||
				strings.Contains(compact(s.Name), needle) ||
				(s.NameHindi != "" && compact(s.NameHindi) == needle) {
				out[s.Slug] = true
			}
		}
	}
	return out
}

// compact normalizes and removes interior spaces, so "PM Kisan",
// "pm-kisan" and "PMKISAN" all compare equal.
func compact(s string) string {
	return strings.ReplaceAll(utils.NormalizeName(s), " ", "")
}

func stateListed(states []string, state string) bool {
	needle := utils.NormalizeName(state)
	for _, s := range states {
		if utils.NormalizeName(s) == needle {
			return true
		}
	}
	return false
}
