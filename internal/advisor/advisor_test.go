package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kisansetu/kisanmitra/internal/calendar"
	"github.com/kisansetu/kisanmitra/internal/mandi"
	"github.com/kisansetu/kisanmitra/internal/refdata"
	"github.com/kisansetu/kisanmitra/internal/schemes"
	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

// stubAdapter returns one wheat record for any market and date.
type stubAdapter struct{}

func (stubAdapter) Name() string { return "stub" }

func (stubAdapter) Fetch(_ context.Context, marketID string, date time.Time) ([]models.PriceRecord, error) {
	mn, mx, md := 2200.0, 2400.0, 2300.0
	return []models.PriceRecord{{
		MarketID:    marketID,
		CommodityID: "wheat",
		Date:        utils.TruncateToDay(date),
		MinPrice:    &mn,
		MaxPrice:    &mx,
		ModalPrice:  &md,
		Unit:        "quintal",
		FetchedAt:   utils.NowIST(),
	}}, nil
}

func testProfile() *models.FarmerProfile {
	return &models.FarmerProfile{
		NameEnglish: "Rameshwar Singh",
		Location: models.FarmerLocation{
			District: "Muzaffarnagar",
			State:    "Uttar Pradesh",
		},
		Farm:               models.FarmDetails{TotalLandAcres: 4},
		Economic:           models.EconomicInfo{HasKCC: true},
		PreferredMarket:    "Muzaffarnagar",
		PreferredCommodity: "wheat",
		Crops:              []string{"wheat", "sugarcane"},
	}
}

func testAdvisor(t *testing.T) *Advisor {
	t.Helper()
	catalog, err := refdata.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	schemeAdv, err := schemes.Load()
	if err != nil {
		t.Fatalf("load schemes: %v", err)
	}
	cal, err := calendar.Load()
	if err != nil {
		t.Fatalf("load calendar: %v", err)
	}
	svc := mandi.NewService(catalog, stubAdapter{}, mandi.DefaultOptions(), testProfile(), nil)
	return New(svc, nil, schemeAdv, cal, nil, testProfile(), nil)
}

func TestRegisteredTools(t *testing.T) {
	a := testAdvisor(t)

	for _, name := range []string{"get_today_prices", "get_prices_for_date", "get_relevant_schemes", "get_farming_calendar"} {
		if _, ok := a.Registry().Get(name); !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
	// Weather and news were not wired, so their tools must be absent.
	for _, name := range []string{"get_weather", "get_agri_news"} {
		if _, ok := a.Registry().Get(name); ok {
			t.Errorf("tool %q registered without a backing service", name)
		}
	}
}

func TestTodayPricesTool(t *testing.T) {
	a := testAdvisor(t)

	out, err := a.Registry().Execute(context.Background(), ToolCall{
		ID:        "1",
		Name:      "get_today_prices",
		Arguments: json.RawMessage(`{"location":"muzaffarnagar","commodity":"गेहूं"}`),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var summary models.PriceSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if len(summary.Commodities) != 1 || summary.Commodities[0].CommodityID != "wheat" {
		t.Errorf("summary = %+v, want one wheat entry", summary)
	}
}

func TestTodayPricesUsesProfileDefaults(t *testing.T) {
	a := testAdvisor(t)

	// Empty location falls back to the preferred market from the profile.
	out, err := a.Registry().Execute(context.Background(), ToolCall{
		Name:      "get_today_prices",
		Arguments: json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var summary models.PriceSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if summary.Market.MarketID == "" {
		t.Error("expected market resolved from profile defaults")
	}
}

func TestSchemesTool(t *testing.T) {
	a := testAdvisor(t)

	out, err := a.Registry().Execute(context.Background(), ToolCall{Name: "get_relevant_schemes"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var recs []models.SchemeRecommendation
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if len(recs) == 0 {
		t.Error("expected scheme recommendations for a small farmer")
	}
}

func TestCalendarToolFiltersToProfileCrops(t *testing.T) {
	a := testAdvisor(t)

	out, err := a.Registry().Execute(context.Background(), ToolCall{
		Name:      "get_farming_calendar",
		Arguments: json.RawMessage(`{"month":1}`),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var advice models.CalendarAdvice
	if err := json.Unmarshal([]byte(out), &advice); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if advice.Month.Month != 1 {
		t.Errorf("month = %d, want 1", advice.Month.Month)
	}
	if len(advice.ForYourCrops) == 0 {
		t.Error("expected crop-filtered activities with a profile set")
	}
}

func TestUnknownTool(t *testing.T) {
	a := testAdvisor(t)
	_, err := a.Registry().Execute(context.Background(), ToolCall{Name: "no_such_tool"})
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}

func TestExecuteAllPreservesOrder(t *testing.T) {
	a := testAdvisor(t)

	calls := []ToolCall{
		{ID: "a", Name: "get_relevant_schemes"},
		{ID: "b", Name: "no_such_tool"},
		{ID: "c", Name: "get_farming_calendar", Arguments: json.RawMessage(`{"month":6}`)},
	}
	results := a.Registry().ExecuteAll(context.Background(), calls)

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].ToolCallID != "a" || results[2].ToolCallID != "c" {
		t.Errorf("result order not preserved: %+v", results)
	}
	if results[1].Err == nil {
		t.Error("unknown tool should carry an error")
	}
}

func TestDailyBriefing(t *testing.T) {
	a := testAdvisor(t)

	b, err := a.DailyBriefing(context.Background())
	if err != nil {
		t.Fatalf("DailyBriefing: %v", err)
	}
	if b.Prices == nil {
		t.Fatal("briefing missing prices")
	}
	// Weather and news services were not wired; those sections stay empty.
	if b.Weather != nil || b.News != nil {
		t.Errorf("unexpected sections: %+v", b)
	}
}
