package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kisansetu/kisanmitra/internal/infra"
	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

const (
	openWeatherBaseURL = "https://api.openweathermap.org/data/2.5"
	openWeatherGeoURL  = "https://api.openweathermap.org/geo/1.0"
)

// OpenWeatherConfig configures the OpenWeatherMap client.
type OpenWeatherConfig struct {
	APIKey     string
	BaseURL    string
	GeoBaseURL string
	Timeout    time.Duration
	CacheTTL   time.Duration
}

func (c *OpenWeatherConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = openWeatherBaseURL
	}
	if c.GeoBaseURL == "" {
		c.GeoBaseURL = openWeatherGeoURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Minute
	}
}

// OpenWeather fetches current conditions and forecasts from OpenWeatherMap
// and derives field guidance from them.
type OpenWeather struct {
	cfg    OpenWeatherConfig
	client *http.Client
	cache  *infra.Cache
	log    *logrus.Logger
}

// NewOpenWeather creates an OpenWeatherMap client. The API key may be empty,
// in which case every call returns ErrNotConfigured.
func NewOpenWeather(cfg OpenWeatherConfig, log *logrus.Logger) *OpenWeather {
	cfg.applyDefaults()
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &OpenWeather{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  infra.NewCache(cfg.CacheTTL),
		log:    log,
	}
}

// Name returns the data source name.
func (w *OpenWeather) Name() string { return "OpenWeatherMap" }

// FlushCache drops all cached geocoding, weather and forecast responses.
func (w *OpenWeather) FlushCache() { w.cache.Flush() }

// GeoResult is one entry of the geocoding response.
type GeoResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	State   string  `json:"state"`
	Country string  `json:"country"`
}

type owmWeather struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"` // m/s
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Name string `json:"name"`
}

type owmForecast struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Rain struct {
			ThreeHours float64 `json:"3h"`
		} `json:"rain"`
	} `json:"list"`
}

// Geocode resolves a free-text location to coordinates. The first match wins;
// queries are biased to India since all served locations are Indian districts.
func (w *OpenWeather) Geocode(ctx context.Context, location string) (*GeoResult, error) {
	if w.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	cacheKey := "geo:" + utils.NormalizeName(location)
	if cached, ok := w.cache.Get(cacheKey); ok {
		return cached.(*GeoResult), nil
	}

	q := url.Values{}
	q.Set("q", location+",IN")
	q.Set("limit", "1")
	q.Set("appid", w.cfg.APIKey)

	var results []GeoResult
	if err := w.getJSON(ctx, w.cfg.GeoBaseURL+"/direct?"+q.Encode(), &results); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", location, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("geocode %q: no match", location)
	}

	w.cache.SetWithTTL(cacheKey, &results[0], 24*time.Hour)
	return &results[0], nil
}

// GetCurrent returns current conditions at the given coordinates.
func (w *OpenWeather) GetCurrent(ctx context.Context, lat, lon float64) (*models.WeatherReport, error) {
	if w.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	cacheKey := fmt.Sprintf("current:%.2f:%.2f", lat, lon)
	if cached, ok := w.cache.Get(cacheKey); ok {
		return cached.(*models.WeatherReport), nil
	}

	var raw owmWeather
	if err := w.getJSON(ctx, w.weatherURL("/weather", lat, lon), &raw); err != nil {
		return nil, fmt.Errorf("current weather: %w", err)
	}

	report := &models.WeatherReport{
		Location:    raw.Name,
		Latitude:    lat,
		Longitude:   lon,
		TempC:       raw.Main.Temp,
		FeelsLikeC:  raw.Main.FeelsLike,
		HumidityPct: raw.Main.Humidity,
		WindKmh:     raw.Wind.Speed * 3.6,
		RainMM:      raw.Rain.OneHour,
		FetchedAt:   utils.NowIST(),
	}
	if len(raw.Weather) > 0 {
		report.Condition = raw.Weather[0].Main
		report.Description = raw.Weather[0].Description
	}

	w.cache.Set(cacheKey, report)
	return report, nil
}

// GetForecast returns the 3-hourly forecast at the given coordinates,
// capped to the next three days.
func (w *OpenWeather) GetForecast(ctx context.Context, lat, lon float64) ([]models.ForecastEntry, error) {
	if w.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	cacheKey := fmt.Sprintf("forecast:%.2f:%.2f", lat, lon)
	if cached, ok := w.cache.Get(cacheKey); ok {
		return cached.([]models.ForecastEntry), nil
	}

	var raw owmForecast
	if err := w.getJSON(ctx, w.weatherURL("/forecast", lat, lon), &raw); err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}

	// 3-hour slots, 8 per day.
	const maxSlots = 24
	entries := make([]models.ForecastEntry, 0, maxSlots)
	for i, item := range raw.List {
		if i >= maxSlots {
			break
		}
		e := models.ForecastEntry{
			Time:        utils.ToIST(time.Unix(item.Dt, 0)),
			TempC:       item.Main.Temp,
			HumidityPct: item.Main.Humidity,
			RainMM:      item.Rain.ThreeHours,
			WindKmh:     item.Wind.Speed * 3.6,
		}
		if len(item.Weather) > 0 {
			e.Condition = item.Weather[0].Main
		}
		entries = append(entries, e)
	}

	w.cache.Set(cacheKey, entries)
	return entries, nil
}

// GetAgriWeather resolves the location, fetches current conditions plus
// forecast, and derives field guidance flags.
func (w *OpenWeather) GetAgriWeather(ctx context.Context, location string) (*models.AgriWeather, error) {
	geo, err := w.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	current, err := w.GetCurrent(ctx, geo.Lat, geo.Lon)
	if err != nil {
		return nil, err
	}
	if current.Location == "" {
		current.Location = geo.Name
	}

	forecast, err := w.GetForecast(ctx, geo.Lat, geo.Lon)
	if err != nil {
		// Forecast is optional; current conditions alone are still useful.
		w.log.WithError(err).Warn("forecast unavailable, returning current only")
		forecast = nil
	}

	return &models.AgriWeather{
		Current:  *current,
		Forecast: forecast,
		Insights: deriveInsights(current, forecast),
	}, nil
}

// deriveInsights turns raw conditions into machine-readable advisory flags.
// Thresholds follow common agri-extension guidance for the Gangetic plain.
func deriveInsights(current *models.WeatherReport, forecast []models.ForecastEntry) []string {
	var insights []string

	switch {
	case current.HumidityPct > 80:
		insights = append(insights, "fungal_disease_watch")
	case current.HumidityPct < 30:
		insights = append(insights, "increase_irrigation")
	}

	// 18 km/h is roughly where spray drift starts.
	if current.WindKmh > 18 {
		insights = append(insights, "avoid_spraying_wind")
	}

	switch {
	case current.TempC > 35:
		insights = append(insights, "avoid_midday_field_work")
	case current.TempC < 10:
		insights = append(insights, "cold_stress_watch")
	}

	if isWet(current.Condition) || current.RainMM > 0 {
		insights = append(insights, "postpone_spraying_rain", "skip_irrigation")
	} else if rainExpected(forecast) {
		insights = append(insights, "rain_expected_delay_irrigation")
	}

	return insights
}

func isWet(condition string) bool {
	switch condition {
	case "Rain", "Thunderstorm", "Drizzle":
		return true
	}
	return false
}

// rainExpected reports whether any slot in the next 24 hours carries rain.
func rainExpected(forecast []models.ForecastEntry) bool {
	for i, e := range forecast {
		if i >= 8 {
			break
		}
		if e.RainMM > 0 || isWet(e.Condition) {
			return true
		}
	}
	return false
}

func (w *OpenWeather) weatherURL(path string, lat, lon float64) string {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", lat))
	q.Set("lon", fmt.Sprintf("%.4f", lon))
	q.Set("appid", w.cfg.APIKey)
	q.Set("units", "metric")
	return w.cfg.BaseURL + path + "?" + q.Encode()
}

func (w *OpenWeather) getJSON(ctx context.Context, rawURL string, out any) error {
	body, _, err := doGet(ctx, w.client, rawURL, nil)
	if err != nil {
		return err
	}
	defer body.Close()
	return json.NewDecoder(body).Decode(out)
}
