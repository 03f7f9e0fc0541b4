package models

// FarmerProfile is the static farmer context supplied by the surrounding
// agent framework. Loaded once per process from JSON; read-only afterwards.
type FarmerProfile struct {
	Name        string         `json:"name"`         // Hindi display name
	NameEnglish string         `json:"name_english"` //
	Location    FarmerLocation `json:"location"`
	Farm        FarmDetails    `json:"farm"`
	Economic    EconomicInfo   `json:"economic"`
	// Slugs of government schemes the farmer is already enrolled in.
	EnrolledSchemes []string `json:"enrolled_schemes"`
	// Defaults applied when a price query omits market/commodity.
	PreferredMarket    string   `json:"preferred_market,omitempty"`
	PreferredCommodity string   `json:"preferred_commodity,omitempty"`
	Crops              []string `json:"crops"`
}

// FarmerLocation pins the farmer on the district/state hierarchy.
type FarmerLocation struct {
	Village         string  `json:"village"`
	District        string  `json:"district"`
	State           string  `json:"state"`
	AgroClimaticZone string `json:"agro_climatic_zone,omitempty"`
	Latitude        float64 `json:"latitude,omitempty"`
	Longitude       float64 `json:"longitude,omitempty"`
}

// FarmDetails describes landholding and irrigation.
type FarmDetails struct {
	TotalLandAcres float64 `json:"total_land_acres"`
	IrrigatedAcres float64 `json:"irrigated_acres"`
	SoilType       string  `json:"soil_type,omitempty"`
	Irrigation     string  `json:"irrigation,omitempty"` // "canal", "tubewell", "rainfed"
}

// EconomicInfo carries the fields scheme eligibility checks look at.
type EconomicInfo struct {
	AnnualIncomeINR float64 `json:"annual_income_inr,omitempty"`
	HasKCC          bool    `json:"has_kcc"` // Kisan Credit Card
	Category        string  `json:"category,omitempty"` // "marginal", "small", "large"
}

// AcreToHectare converts acres to hectares.
const AcreToHectare = 0.404686

// LandHectares returns the total landholding in hectares, the unit most
// scheme eligibility thresholds are written in.
func (p *FarmerProfile) LandHectares() float64 {
	return p.Farm.TotalLandAcres * AcreToHectare
}
