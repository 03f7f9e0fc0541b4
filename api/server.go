// Package api provides the HTTP REST API server for Kisan Mitra.
//
// It exposes endpoints for mandi prices, weather, scheme recommendations,
// the farming calendar, agri news, name resolution, and WebSocket price
// update streaming.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

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

// Deps are the wired domain services the server exposes. Weather, schemes,
// calendar and news may be nil; the corresponding routes then return 503.
type Deps struct {
	Catalog  *refdata.Catalog
	Prices   *mandi.Service
	Weather  *datasource.OpenWeather
	Schemes  *schemes.Advisor
	Calendar *calendar.Calendar
	News     *datasource.AgriNews
	Profile  *models.FarmerProfile
}

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	deps   Deps
	wsHub  *WSHub
	log    *logrus.Logger
}

// NewServer builds every domain service from configuration and returns a
// fully wired server. A missing farmer profile is tolerated; profile-bound
// features degrade.
func NewServer(cfg *config.Config, logger *logrus.Logger) (*Server, error) {
	if logger == nil {
		logger = logrus.New()
	}

	catalog, err := refdata.Load()
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}

	var farmerProfile *models.FarmerProfile
	if p, err := profile.Load(cfg.Profile.Path); err != nil {
		logger.WithError(err).Warn("farmer profile not loaded, profile features disabled")
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

	return NewServerWith(cfg, Deps{
		Catalog:  catalog,
		Prices:   prices,
		Weather:  weather,
		Schemes:  schemeAdv,
		Calendar: cal,
		News:     datasource.NewAgriNews(catalog),
		Profile:  farmerProfile,
	}, logger), nil
}

// NewServerWith wires a server around pre-built services.
func NewServerWith(cfg *config.Config, deps Deps, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	srv := &Server{
		cfg:   cfg,
		deps:  deps,
		wsHub: NewWSHub(),
		log:   logger,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/healthz", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", s.handleHealth)

		// Prices
		r.Get("/prices/today", s.handleTodayPrices)
		r.Get("/prices/{date}", s.handlePricesForDate)

		// Name resolution
		r.Get("/resolve", s.handleResolve)

		// Reference data
		r.Get("/markets", s.handleMarkets)
		r.Get("/commodities", s.handleCommodities)

		// Weather
		r.Get("/weather", s.handleWeather)

		// Schemes
		r.Get("/schemes", s.handleSchemes)

		// Farming calendar
		r.Get("/calendar", s.handleCalendar)

		// News
		r.Get("/news", s.handleNews)

		// Configuration and administration
		r.Get("/config/keys", s.handleConfigKeys)
		r.Post("/cache/flush", s.handleCacheFlush)

		// WebSocket price updates
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ResolveResponse is the result of GET /api/v1/resolve.
type ResolveResponse struct {
	Market    *models.CanonicalMarket    `json:"market,omitempty"`
	Commodity *models.CanonicalCommodity `json:"commodity,omitempty"`
}

// HealthResponse reports server status.
type HealthResponse struct {
	Status      string `json:"status"`
	Time        string `json:"time"`
	CachedKeys  int    `json:"cached_price_keys"`
	WSClients   int    `json:"ws_clients"`
	ProfileSet  bool   `json:"profile_set"`
	WeatherSet  bool   `json:"weather_configured"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: HealthResponse{
			Status:     "ok",
			Time:       utils.NowIST().Format(time.RFC3339),
			CachedKeys: s.deps.Prices.Cache().Len(),
			WSClients:  s.wsHub.ClientCount(),
			ProfileSet: s.deps.Profile != nil,
			WeatherSet: s.deps.Weather != nil,
		},
	})
}

func (s *Server) handleTodayPrices(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	commodity := r.URL.Query().Get("commodity")

	summary, err := s.deps.Prices.GetTodayPrices(r.Context(), location, commodity)
	if err != nil {
		writeResolutionError(w, err)
		return
	}

	s.broadcastPrices(summary)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: summary})
}

func (s *Server) handlePricesForDate(w http.ResponseWriter, r *http.Request) {
	dateStr := chi.URLParam(r, "date")
	if _, err := utils.ParseMandiDate(dateStr); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q, want DD-Mon-YYYY", dateStr))
		return
	}

	location := r.URL.Query().Get("location")
	commodity := r.URL.Query().Get("commodity")

	summary, err := s.deps.Prices.GetPricesForDate(r.Context(), location, dateStr, commodity)
	if err != nil {
		writeResolutionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: summary})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	commodity := r.URL.Query().Get("commodity")
	if location == "" && commodity == "" {
		writeError(w, http.StatusBadRequest, "location or commodity query parameter required")
		return
	}

	var resp ResolveResponse
	resolver := s.deps.Prices.Resolver()

	if location != "" {
		market, err := resolver.ResolveMarket(location)
		if err != nil {
			writeResolutionError(w, err)
			return
		}
		resp.Market = &market
	}
	if commodity != "" {
		c, err := resolver.ResolveCommodity(commodity)
		if err != nil {
			writeResolutionError(w, err)
			return
		}
		resp.Commodity = &c
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.deps.Catalog.Markets()})
}

func (s *Server) handleCommodities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.deps.Catalog.Commodities()})
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	if s.deps.Weather == nil {
		writeError(w, http.StatusServiceUnavailable, "weather service not configured")
		return
	}

	location := r.URL.Query().Get("location")
	if location == "" {
		if s.deps.Profile == nil {
			writeError(w, http.StatusBadRequest, "location query parameter required")
			return
		}
		location = s.deps.Profile.Location.District
	}

	weather, err := s.deps.Weather.GetAgriWeather(r.Context(), location)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: weather})
}

func (s *Server) handleSchemes(w http.ResponseWriter, r *http.Request) {
	if s.deps.Schemes == nil {
		writeError(w, http.StatusServiceUnavailable, "scheme catalog not loaded")
		return
	}
	if s.deps.Profile == nil {
		writeError(w, http.StatusBadRequest, "scheme recommendations need a farmer profile")
		return
	}
	recs := s.deps.Schemes.Recommend(s.deps.Profile)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: recs})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if s.deps.Calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "farming calendar not loaded")
		return
	}

	month := int(utils.NowIST().Month())
	if m := r.URL.Query().Get("month"); m != "" {
		parsed, err := strconv.Atoi(m)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be a number 1-12")
			return
		}
		month = parsed
	}

	advice, err := s.deps.Calendar.Advice(month, s.deps.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: advice})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if s.deps.News == nil {
		writeError(w, http.StatusServiceUnavailable, "news service not configured")
		return
	}

	limit := s.cfg.News.Limit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative number")
			return
		}
		limit = parsed
	}

	var (
		articles []models.NewsArticle
		err      error
	)
	if commodity := r.URL.Query().Get("commodity"); commodity != "" {
		articles, err = s.deps.News.GetCropNews(r.Context(), commodity, limit)
	} else {
		articles, err = s.deps.News.GetNews(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: articles})
}

func (s *Server) handleConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: config.CheckAPIKeys(s.cfg)})
}

// handleCacheFlush empties the weather and news caches. Useful after key
// rotation or when a feed serves corrected data.
func (s *Server) handleCacheFlush(w http.ResponseWriter, r *http.Request) {
	flushed := []string{}
	if s.deps.Weather != nil {
		s.deps.Weather.FlushCache()
		flushed = append(flushed, "weather")
	}
	if s.deps.News != nil {
		s.deps.News.FlushCache()
		flushed = append(flushed, "news")
	}
	s.log.WithField("flushed", flushed).Info("caches flushed")
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: flushed})
}

// broadcastPrices pushes a fresh price summary to WebSocket subscribers.
func (s *Server) broadcastPrices(summary *models.PriceSummary) {
	if summary == nil || len(summary.Commodities) == 0 {
		return
	}
	s.wsHub.Broadcast(WSMessage{
		Type: "price_update",
		Data: summary,
	})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// writeResolutionError maps resolution failures to 404 and everything else
// to 502. Unknown names are the caller's problem; source trouble is ours.
func writeResolutionError(w http.ResponseWriter, err error) {
	var resErr *mandi.ResolutionError
	if errors.As(err, &resErr) {
		writeError(w, http.StatusNotFound, resErr.Error())
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}
