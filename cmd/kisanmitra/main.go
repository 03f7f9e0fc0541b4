// Kisan Mitra — Hindi-first agricultural advisory assistant
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kisansetu/kisanmitra/api"
	"github.com/kisansetu/kisanmitra/internal/advisor"
	"github.com/kisansetu/kisanmitra/internal/calendar"
	"github.com/kisansetu/kisanmitra/internal/config"
	"github.com/kisansetu/kisanmitra/internal/datasource"
	"github.com/kisansetu/kisanmitra/internal/mandi"
	"github.com/kisansetu/kisanmitra/internal/profile"
	"github.com/kisansetu/kisanmitra/internal/refdata"
	"github.com/kisansetu/kisanmitra/internal/schemes"
	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger
var (
	cfg    *config.Config
	logger *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kisanmitra",
	Short: "Kisan Mitra — किसान मित्र, your agricultural advisory assistant",
	Long: `Kisan Mitra (किसान मित्र)
A Hindi-first advisory assistant for Indian farmers: daily mandi prices
with fallback resolution, agricultural weather guidance, government
scheme recommendations, the farming calendar, and agri news.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real env vars win either way.
		_ = godotenv.Load()

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger = newLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(pricesCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(weatherCmd)
	rootCmd.AddCommand(schemesCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(briefingCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

func newLogger(cfg *config.Config) *logrus.Logger {
	l := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		l.SetLevel(lvl)
	}
	if cfg.Logging.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}

// services bundles everything the CLI commands work against.
type services struct {
	catalog  *refdata.Catalog
	profile  *models.FarmerProfile
	prices   *mandi.Service
	weather  *datasource.OpenWeather
	schemes  *schemes.Advisor
	calendar *calendar.Calendar
	news     *datasource.AgriNews
}

func buildServices() (*services, error) {
	catalog, err := refdata.Load()
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}

	var farmerProfile *models.FarmerProfile
	if p, err := profile.Load(cfg.Profile.Path); err != nil {
		logger.WithError(err).Debug("no farmer profile, personalized features disabled")
	} else {
		farmerProfile = p
	}

	adapter := datasource.NewAgmarknet(datasource.AgmarknetConfig{
		BaseURL:        cfg.Mandi.BaseURL,
		Timeout:        cfg.Mandi.AdapterTimeout(),
		RetryAttempts:  cfg.Mandi.RetryAttempts,
		RequestsPerSec: float64(cfg.Mandi.RequestsPerSec),
	}, catalog, logger)

	prices := mandi.NewService(catalog, adapter, mandi.Options{
		LookbackDays:        cfg.Mandi.LookbackDays,
		MaxAlternateMarkets: cfg.Mandi.MaxAlternateMarkets,
	}, farmerProfile, logger)

	var weather *datasource.OpenWeather
	if cfg.Weather.APIKey != "" {
		weather = datasource.NewOpenWeather(datasource.OpenWeatherConfig{
			APIKey:   cfg.Weather.APIKey,
			CacheTTL: cfg.Weather.CacheTTL(),
		}, logger)
	}

	schemeAdv, err := schemes.Load()
	if err != nil {
		return nil, fmt.Errorf("load scheme catalog: %w", err)
	}
	cal, err := calendar.Load()
	if err != nil {
		return nil, fmt.Errorf("load farming calendar: %w", err)
	}

	return &services{
		catalog:  catalog,
		profile:  farmerProfile,
		prices:   prices,
		weather:  weather,
		schemes:  schemeAdv,
		calendar: cal,
		news:     datasource.NewAgriNews(catalog),
	}, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Kisan Mitra %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Prices Command ---

var pricesCmd = &cobra.Command{
	Use:   "prices [location] [commodity]",
	Short: "Show mandi prices for a market",
	Long: `Show today's mandi prices for a market, optionally filtered to one
commodity. Names may be Hindi, English, or romanized Hindi.

Examples:
  kisanmitra prices muzaffarnagar
  kisanmitra prices मुजफ्फरनगर गेहूं
  kisanmitra prices azadpur potato --date 15-Mar-2026`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices()
		if err != nil {
			return err
		}
		location := args[0]
		commodity := ""
		if len(args) > 1 {
			commodity = args[1]
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		var summary *models.PriceSummary
		if dateStr, _ := cmd.Flags().GetString("date"); dateStr != "" {
			summary, err = svc.prices.GetPricesForDate(ctx, location, dateStr, commodity)
		} else {
			summary, err = svc.prices.GetTodayPrices(ctx, location, commodity)
		}
		if err != nil {
			return err
		}

		printPriceSummary(summary)
		return nil
	},
}

func init() {
	pricesCmd.Flags().String("date", "", "price date, DD-Mon-YYYY (default: today IST)")
}

func printPriceSummary(s *models.PriceSummary) {
	fmt.Printf("🌾 %s मंडी (%s, %s) — %s\n", s.Market.DisplayName, s.Market.District, s.Market.State, s.Date)
	if s.Stale {
		fmt.Printf("   ⚠️  fallback applied: %s\n", s.StaleReason)
	}
	if len(s.Commodities) == 0 {
		fmt.Println("   कोई भाव उपलब्ध नहीं (no prices available)")
		return
	}
	fmt.Printf("   %-18s %10s %10s %10s  %s\n", "Commodity", "Min", "Modal", "Max", "Unit")
	for _, c := range s.Commodities {
		fmt.Printf("   %-18s %10s %10s %10s  ₹/%s", c.Name,
			fmtPrice(c.MinPrice), fmtPrice(c.ModalPrice), fmtPrice(c.MaxPrice), c.Unit)
		if c.Partial {
			fmt.Print("  (partial)")
		}
		fmt.Println()
	}
	if s.TrendNote != "" {
		fmt.Printf("   note: %s\n", s.TrendNote)
	}
}

func fmtPrice(p *float64) string {
	if p == nil {
		return "—"
	}
	return strconv.FormatFloat(*p, 'f', 0, 64)
}

// --- Resolve Command ---

var resolveCmd = &cobra.Command{
	Use:   "resolve [name]",
	Short: "Resolve a market or commodity name to its canonical form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices()
		if err != nil {
			return err
		}
		resolver := svc.prices.Resolver()

		found := false
		if m, err := resolver.ResolveMarket(args[0]); err == nil {
			found = true
			fmt.Printf("🏪 Market: %s [%s] — %s, %s\n", m.DisplayName, m.MarketID, m.District, m.State)
		}
		if c, err := resolver.ResolveCommodity(args[0]); err == nil {
			found = true
			fmt.Printf("🌾 Commodity: %s [%s] — per %s\n", c.DisplayName, c.CommodityID, c.Unit)
		}
		if !found {
			return fmt.Errorf("could not resolve %q as a market or commodity", args[0])
		}
		return nil
	},
}

// --- Weather Command ---

var weatherCmd = &cobra.Command{
	Use:   "weather [location]",
	Short: "Show agricultural weather and field guidance",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices()
		if err != nil {
			return err
		}
		if svc.weather == nil {
			return fmt.Errorf("weather needs an OpenWeatherMap API key (set OPENWEATHER_API_KEY)")
		}

		location := ""
		if len(args) > 0 {
			location = args[0]
		} else if svc.profile != nil {
			location = svc.profile.Location.District
		}
		if location == "" {
			return fmt.Errorf("provide a location or configure a farmer profile")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		w, err := svc.weather.GetAgriWeather(ctx, location)
		if err != nil {
			return err
		}

		cur := w.Current
		fmt.Printf("🌤  %s: %s, %.1f°C (feels %.1f°C)\n", cur.Location, cur.Description, cur.TempC, cur.FeelsLikeC)
		fmt.Printf("   humidity %d%%, wind %.0f km/h, rain %.1f mm\n", cur.HumidityPct, cur.WindKmh, cur.RainMM)
		for _, insight := range w.Insights {
			fmt.Printf("   💡 %s\n", insight)
		}
		return nil
	},
}

// --- Schemes Command ---

var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "Recommend government schemes for the configured farmer",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices()
		if err != nil {
			return err
		}
		if svc.profile == nil {
			return fmt.Errorf("scheme recommendations need a farmer profile (%s)", cfg.Profile.Path)
		}

		recs := svc.schemes.Recommend(svc.profile)
		if len(recs) == 0 {
			fmt.Println("No new schemes to recommend; you may already be enrolled in all eligible ones.")
			return nil
		}
		for _, rec := range recs {
			fmt.Printf("🏛  %s (%s)\n", rec.Scheme.Name, rec.Scheme.NameHindi)
			fmt.Printf("   %s\n", rec.Scheme.Description)
			for _, reason := range rec.MatchReasons {
				fmt.Printf("   ✓ %s\n", reason)
			}
			fmt.Printf("   apply: %s\n\n", rec.Scheme.Application)
		}
		return nil
	},
}

// --- Calendar Command ---

var calendarCmd = &cobra.Command{
	Use:   "calendar [month]",
	Short: "Show the farming calendar for a month",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices()
		if err != nil {
			return err
		}

		month := int(utils.NowIST().Month())
		if len(args) > 0 {
			month, err = strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("month must be a number 1-12")
			}
		}

		advice, err := svc.calendar.Advice(month, svc.profile)
		if err != nil {
			return err
		}

		m := advice.Month
		fmt.Printf("📅 %s (%s) — %s season, %s, rainfall: %s\n", m.Name, m.HindiName, m.Season, m.TempRangeC, m.Rainfall)
		if len(m.Sowing) > 0 {
			fmt.Printf("   sow: %v\n", m.Sowing)
		}
		if len(m.Harvesting) > 0 {
			fmt.Printf("   harvest: %v\n", m.Harvesting)
		}
		for _, a := range m.Activities {
			fmt.Printf("   • %s\n", a)
		}
		if len(advice.ForYourCrops) > 0 {
			fmt.Println("   For your crops:")
			for _, a := range advice.ForYourCrops {
				fmt.Printf("   ★ %s\n", a)
			}
		}
		return nil
	},
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Show latest agricultural news",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices()
		if err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		commodity, _ := cmd.Flags().GetString("commodity")

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		var articles []models.NewsArticle
		if commodity != "" {
			articles, err = svc.news.GetCropNews(ctx, commodity, limit)
		} else {
			articles, err = svc.news.GetNews(ctx, limit)
		}
		if err != nil {
			return err
		}

		if len(articles) == 0 {
			fmt.Println("No news articles available right now.")
			return nil
		}
		for _, a := range articles {
			fmt.Printf("📰 %s\n   %s — %s\n   %s\n\n", a.Title, a.Source, a.PublishedAt.Format("02 Jan 2006"), a.URL)
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().Int("limit", 10, "maximum number of articles")
	newsCmd.Flags().String("commodity", "", "filter news to one crop (Hindi or English name)")
}

// --- Briefing Command ---

var briefingCmd = &cobra.Command{
	Use:   "briefing",
	Short: "Show the daily farmer briefing (prices, weather, news)",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices()
		if err != nil {
			return err
		}
		if svc.profile == nil {
			return fmt.Errorf("the daily briefing needs a farmer profile (%s)", cfg.Profile.Path)
		}

		adv := advisor.New(svc.prices, svc.weather, svc.schemes, svc.calendar, svc.news, svc.profile, logger)

		ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Minute)
		defer cancel()

		b, err := adv.DailyBriefing(ctx)
		if err != nil {
			return err
		}

		name := svc.profile.Name
		if name == "" {
			name = svc.profile.NameEnglish
		}
		fmt.Printf("🙏 नमस्ते %s — %s\n\n", name, utils.NowIST().Format("02 Jan 2006"))

		if b.Prices != nil {
			printPriceSummary(b.Prices)
			fmt.Println()
		}
		if b.Weather != nil {
			cur := b.Weather.Current
			fmt.Printf("🌤  %s, %.1f°C, humidity %d%%\n", cur.Description, cur.TempC, cur.HumidityPct)
			for _, insight := range b.Weather.Insights {
				fmt.Printf("   💡 %s\n", insight)
			}
			fmt.Println()
		}
		for _, a := range b.News {
			fmt.Printf("📰 %s (%s)\n", a.Title, a.Source)
		}
		return nil
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := api.NewServer(cfg, logger)
		if err != nil {
			return err
		}
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting Kisan Mitra API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices()
		if err != nil {
			return err
		}

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  Kisan Mitra — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:     %s (%s)\n", version, commit)
		fmt.Printf("  Time (IST):  %s\n", utils.NowIST().Format("02-Jan-2006 15:04:05"))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Mandi source:  %s (lookback %dd, %d alternates)\n",
			cfg.Mandi.BaseURL, cfg.Mandi.LookbackDays, cfg.Mandi.MaxAlternateMarkets)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("    Markets:       %d\n", len(svc.catalog.Markets()))
		fmt.Printf("    Commodities:   %d\n", len(svc.catalog.Commodities()))
		if svc.profile != nil {
			fmt.Printf("    Farmer:        %s (%s, %s)\n",
				svc.profile.NameEnglish, svc.profile.Location.District, svc.profile.Location.State)
		} else {
			fmt.Println("    Farmer:        no profile configured")
		}
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-20s %s\n", k.Name+":", status)
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
