package mandi

import (
	"reflect"
	"testing"
	"time"

	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

func TestFormatGroupsByCommodity(t *testing.T) {
	catalog := testCatalog(t)
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, utils.IST)

	res := models.ResolutionResult{
		Market: models.CanonicalMarket{MarketID: "UP-MUZ-01", DisplayName: "Muzaffarnagar"},
		Date:   date,
		Records: []models.PriceRecord{
			testRecord("UP-MUZ-01", "wheat", date),
			testRecord("UP-MUZ-01", "rice", date),
			testRecord("UP-MUZ-01", "wheat", date),
		},
	}

	s := Format(res, catalog)
	if len(s.Commodities) != 2 {
		t.Fatalf("got %d commodity groups, want 2", len(s.Commodities))
	}
	// Deterministic order: sorted by commodity id.
	if s.Commodities[0].CommodityID != "rice" || s.Commodities[1].CommodityID != "wheat" {
		t.Errorf("unexpected order: %q, %q", s.Commodities[0].CommodityID, s.Commodities[1].CommodityID)
	}
	if s.Commodities[1].Markets != 2 {
		t.Errorf("wheat folded %d records, want 2", s.Commodities[1].Markets)
	}
	if s.Commodities[1].Name != "Wheat" {
		t.Errorf("display name %q, want Wheat", s.Commodities[1].Name)
	}
	if s.Date != "15-Jan-2025" {
		t.Errorf("date %q, want 15-Jan-2025", s.Date)
	}
}

func TestFormatIdempotent(t *testing.T) {
	catalog := testCatalog(t)
	date := time.Date(2025, 4, 2, 0, 0, 0, 0, utils.IST)

	res := models.ResolutionResult{
		Market:         models.CanonicalMarket{MarketID: "UP-MUZ-01"},
		Date:           date,
		Fallback:       true,
		FallbackReason: ReasonDateShift + ":02-Apr-2025",
		Records: []models.PriceRecord{
			testRecord("UP-MUZ-01", "wheat", date),
		},
	}

	a := Format(res, catalog)
	b := Format(res, catalog)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("formatting the same result twice differs:\n%+v\n%+v", a, b)
	}
}

func TestFormatStaleness(t *testing.T) {
	date := time.Date(2025, 4, 2, 0, 0, 0, 0, utils.IST)
	res := models.ResolutionResult{
		Market:         models.CanonicalMarket{MarketID: "UP-MUZ-01"},
		Date:           date,
		Fallback:       true,
		FallbackReason: ReasonDateShift + ":02-Apr-2025",
	}

	s := Format(res, nil)
	if !s.Stale {
		t.Error("fallback result not flagged stale")
	}
	if s.StaleReason == "" {
		t.Error("stale summary missing reason")
	}
	// April: rabi harvest window.
	if s.TrendNote != "rabi_harvest_pressure" {
		t.Errorf("trend note %q, want rabi_harvest_pressure", s.TrendNote)
	}
}

func TestFormatUnitNormalization(t *testing.T) {
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, utils.IST)
	r := models.PriceRecord{
		MarketID:    "UP-MUZ-01",
		CommodityID: "tomato",
		Date:        date,
		MinPrice:    priceOf(18), // INR/kg
		MaxPrice:    priceOf(26),
		ModalPrice:  priceOf(20),
		Unit:        "kg",
	}
	res := models.ResolutionResult{Date: date, Records: []models.PriceRecord{r}}

	s := Format(res, nil)
	if len(s.Commodities) != 1 {
		t.Fatalf("got %d groups, want 1", len(s.Commodities))
	}
	c := s.Commodities[0]
	if c.Unit != "quintal" {
		t.Errorf("unit %q, want quintal", c.Unit)
	}
	if *c.MinPrice != 1800 || *c.MaxPrice != 2600 || *c.ModalPrice != 2000 {
		t.Errorf("kg prices not scaled to quintal: %+v", c)
	}
}

func TestFormatPartialPropagation(t *testing.T) {
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, utils.IST)
	r := models.PriceRecord{
		MarketID:    "UP-MUZ-01",
		CommodityID: "wheat",
		Date:        date,
		ModalPrice:  priceOf(2200),
		Unit:        "quintal",
		Partial:     true,
	}
	res := models.ResolutionResult{Date: date, Records: []models.PriceRecord{r}}

	s := Format(res, nil)
	if !s.Commodities[0].Partial {
		t.Error("partial record did not mark summary partial")
	}
	if s.Commodities[0].MinPrice != nil {
		t.Error("absent min price must stay absent, not be invented")
	}
}
