package models

import "time"

// WeatherReport is current-conditions data for a location.
type WeatherReport struct {
	Location    string    `json:"location"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Condition   string    `json:"condition"`    // e.g., "Clear", "Rain"
	Description string    `json:"description"`  //
	TempC       float64   `json:"temp_c"`
	FeelsLikeC  float64   `json:"feels_like_c"`
	HumidityPct int       `json:"humidity_pct"`
	WindKmh     float64   `json:"wind_kmh"`
	RainMM      float64   `json:"rain_mm"` // last 1h accumulation if reported
	FetchedAt   time.Time `json:"fetched_at"`
}

// ForecastEntry is one 3-hourly forecast slot.
type ForecastEntry struct {
	Time        time.Time `json:"time"`
	Condition   string    `json:"condition"`
	TempC       float64   `json:"temp_c"`
	HumidityPct int       `json:"humidity_pct"`
	RainMM      float64   `json:"rain_mm"`
	WindKmh     float64   `json:"wind_kmh"`
}

// AgriWeather bundles current weather, forecast, and derived field guidance.
type AgriWeather struct {
	Current  WeatherReport   `json:"current"`
	Forecast []ForecastEntry `json:"forecast"`
	// Machine-readable advisory flags, e.g. "irrigation_not_needed",
	// "avoid_spraying_wind", "harvest_window_dry".
	Insights []string `json:"insights"`
}
