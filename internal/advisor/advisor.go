// Package advisor assembles the farmer-facing capabilities into a tool
// layer the assistant runtime calls: mandi prices, weather, scheme
// recommendations, the farming calendar and agri news. Tools take JSON
// arguments and return JSON strings so any runtime can drive them.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kisansetu/kisanmitra/internal/calendar"
	"github.com/kisansetu/kisanmitra/internal/datasource"
	"github.com/kisansetu/kisanmitra/internal/mandi"
	"github.com/kisansetu/kisanmitra/internal/schemes"
	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

// Advisor wires the domain services behind a single tool registry.
type Advisor struct {
	prices   *mandi.Service
	weather  *datasource.OpenWeather
	schemes  *schemes.Advisor
	calendar *calendar.Calendar
	news     *datasource.AgriNews
	profile  *models.FarmerProfile
	registry *ToolRegistry
	log      *logrus.Logger
}

// New creates an Advisor. Any of weather, schemes, calendar or news may be
// nil; the corresponding tools are then not registered. The price service
// is required.
func New(prices *mandi.Service, weather *datasource.OpenWeather, schemeAdv *schemes.Advisor,
	cal *calendar.Calendar, news *datasource.AgriNews, profile *models.FarmerProfile,
	log *logrus.Logger) *Advisor {

	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	a := &Advisor{
		prices:   prices,
		weather:  weather,
		schemes:  schemeAdv,
		calendar: cal,
		news:     news,
		profile:  profile,
		registry: NewToolRegistry(),
		log:      log,
	}
	a.registerTools()
	return a
}

// Registry exposes the tool registry for the assistant runtime.
func (a *Advisor) Registry() *ToolRegistry { return a.registry }

func (a *Advisor) registerTools() {
	a.registry.RegisterFunc("get_today_prices",
		"Get today's mandi prices for a market and optionally one commodity. Location and commodity accept Hindi or English names.",
		ObjectSchema("price query", map[string]*JSONSchema{
			"location":  StringProp("Market, district or village name. Empty uses the farmer's home market."),
			"commodity": StringProp("Commodity name or alias. Empty returns all commodities."),
		}),
		a.handleTodayPrices)

	a.registry.RegisterFunc("get_prices_for_date",
		"Get mandi prices for a specific past date, format DD-Mon-YYYY.",
		ObjectSchema("dated price query", map[string]*JSONSchema{
			"location":  StringProp("Market, district or village name."),
			"date":      StringProp("Date in DD-Mon-YYYY form, e.g. 15-Mar-2026."),
			"commodity": StringProp("Commodity name or alias. Empty returns all commodities."),
		}, "date"),
		a.handlePricesForDate)

	if a.weather != nil {
		a.registry.RegisterFunc("get_weather",
			"Get current weather, forecast and field guidance for a location. Empty location uses the farmer's district.",
			ObjectSchema("weather query", map[string]*JSONSchema{
				"location": StringProp("City or district name."),
			}),
			a.handleWeather)
	}

	if a.schemes != nil {
		a.registry.RegisterFunc("get_relevant_schemes",
			"Recommend government schemes the farmer appears eligible for but is not yet enrolled in.",
			ObjectSchema("scheme query", nil),
			a.handleSchemes)
	}

	if a.calendar != nil {
		a.registry.RegisterFunc("get_farming_calendar",
			"Get the farming calendar for a month (1-12), narrowed to the farmer's crops when a profile is set. Month 0 means the current month.",
			ObjectSchema("calendar query", map[string]*JSONSchema{
				"month": IntProp("Calendar month 1-12, or 0 for the current month."),
			}),
			a.handleCalendar)
	}

	if a.news != nil {
		a.registry.RegisterFunc("get_agri_news",
			"Get recent agricultural news headlines, optionally filtered to one crop.",
			ObjectSchema("news query", map[string]*JSONSchema{
				"commodity": StringProp("Commodity name or alias to filter by. Empty returns all news."),
				"limit":     IntProp("Maximum number of articles, default 10."),
			}),
			a.handleNews)
	}
}

func (a *Advisor) handleTodayPrices(ctx context.Context, args json.RawMessage) (string, error) {
	var req struct {
		Location  string `json:"location"`
		Commodity string `json:"commodity"`
	}
	if err := unmarshalArgs(args, &req); err != nil {
		return "", err
	}
	summary, err := a.prices.GetTodayPrices(ctx, req.Location, req.Commodity)
	if err != nil {
		return "", err
	}
	return marshalResult(summary)
}

func (a *Advisor) handlePricesForDate(ctx context.Context, args json.RawMessage) (string, error) {
	var req struct {
		Location  string `json:"location"`
		Date      string `json:"date"`
		Commodity string `json:"commodity"`
	}
	if err := unmarshalArgs(args, &req); err != nil {
		return "", err
	}
	summary, err := a.prices.GetPricesForDate(ctx, req.Location, req.Date, req.Commodity)
	if err != nil {
		return "", err
	}
	return marshalResult(summary)
}

func (a *Advisor) handleWeather(ctx context.Context, args json.RawMessage) (string, error) {
	var req struct {
		Location string `json:"location"`
	}
	if err := unmarshalArgs(args, &req); err != nil {
		return "", err
	}
	location := req.Location
	if location == "" {
		if a.profile == nil {
			return "", fmt.Errorf("no location given and no farmer profile set")
		}
		location = a.profile.Location.District
	}
	weather, err := a.weather.GetAgriWeather(ctx, location)
	if err != nil {
		return "", err
	}
	return marshalResult(weather)
}

func (a *Advisor) handleSchemes(_ context.Context, _ json.RawMessage) (string, error) {
	if a.profile == nil {
		return "", fmt.Errorf("scheme recommendations need a farmer profile")
	}
	recs := a.schemes.Recommend(a.profile)
	return marshalResult(recs)
}

func (a *Advisor) handleCalendar(_ context.Context, args json.RawMessage) (string, error) {
	var req struct {
		Month int `json:"month"`
	}
	if err := unmarshalArgs(args, &req); err != nil {
		return "", err
	}
	month := req.Month
	if month == 0 {
		month = int(utils.NowIST().Month())
	}
	advice, err := a.calendar.Advice(month, a.profile)
	if err != nil {
		return "", err
	}
	return marshalResult(advice)
}

func (a *Advisor) handleNews(ctx context.Context, args json.RawMessage) (string, error) {
	var req struct {
		Commodity string `json:"commodity"`
		Limit     int    `json:"limit"`
	}
	if err := unmarshalArgs(args, &req); err != nil {
		return "", err
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	var (
		articles []models.NewsArticle
		err      error
	)
	if req.Commodity != "" {
		articles, err = a.news.GetCropNews(ctx, req.Commodity, req.Limit)
	} else {
		articles, err = a.news.GetNews(ctx, req.Limit)
	}
	if err != nil {
		return "", err
	}
	return marshalResult(articles)
}

// Briefing is the morning advisory bundle: home-market prices, local
// weather and headline news fetched concurrently. Sections that fail are
// left nil rather than failing the whole briefing; prices alone are
// considered essential.
type Briefing struct {
	Prices  *models.PriceSummary `json:"prices,omitempty"`
	Weather *models.AgriWeather  `json:"weather,omitempty"`
	News    []models.NewsArticle `json:"news,omitempty"`
}

// DailyBriefing assembles the briefing for the configured farmer profile.
func (a *Advisor) DailyBriefing(ctx context.Context) (*Briefing, error) {
	if a.profile == nil {
		return nil, fmt.Errorf("daily briefing needs a farmer profile")
	}

	var b Briefing
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := a.prices.GetTodayPrices(gctx, "", a.profile.PreferredCommodity)
		if err != nil {
			return fmt.Errorf("briefing prices: %w", err)
		}
		b.Prices = summary
		return nil
	})

	if a.weather != nil {
		g.Go(func() error {
			weather, err := a.weather.GetAgriWeather(gctx, a.profile.Location.District)
			if err != nil {
				a.log.WithError(err).Warn("briefing weather unavailable")
				return nil
			}
			b.Weather = weather
			return nil
		})
	}

	if a.news != nil {
		g.Go(func() error {
			articles, err := a.news.GetNews(gctx, 5)
			if err != nil {
				a.log.WithError(err).Warn("briefing news unavailable")
				return nil
			}
			b.News = articles
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &b, nil
}

func unmarshalArgs(args json.RawMessage, out any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, out); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}

func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(data), nil
}
