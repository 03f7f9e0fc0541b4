package models

// Scheme is one government agricultural scheme from the reference catalog.
type Scheme struct {
	Slug        string   `json:"slug"` // e.g., "pm-kisan"
	Name        string   `json:"name"`
	NameHindi   string   `json:"name_hindi,omitempty"`
	Description string   `json:"description"`
	Benefits    string   `json:"benefits"`
	Application string   `json:"application"` // how/where to apply
	// Eligibility bounds. Zero values mean unbounded.
	MaxLandHectares float64  `json:"max_land_hectares,omitempty"`
	MinLandHectares float64  `json:"min_land_hectares,omitempty"`
	States          []string `json:"states,omitempty"` // empty = nationwide
	RequiresKCC     bool     `json:"requires_kcc,omitempty"`
}

// SchemeRecommendation is a scheme the farmer appears eligible for but is
// not yet enrolled in.
type SchemeRecommendation struct {
	Scheme Scheme `json:"scheme"`
	// Why the scheme matched, e.g. "landholding_within_limit", "state_match".
	MatchReasons []string `json:"match_reasons"`
}
