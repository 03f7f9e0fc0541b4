// Package refdata loads the canonical mandi and commodity reference tables.
//
// The tables ship embedded in the binary and can be overridden with external
// JSON files for deployments covering other districts. A Catalog is loaded
// once at process start and is read-only afterwards; no runtime mutation
// path exists, so concurrent readers never contend.
package refdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

//go:embed data/markets.json data/commodities.json
var embedded embed.FS

// Catalog holds the canonical market and commodity tables plus the alias
// indexes used by name resolution.
type Catalog struct {
	markets     []models.CanonicalMarket
	commodities []models.CanonicalCommodity

	marketByID     map[string]*models.CanonicalMarket
	marketAlias    map[string]*models.CanonicalMarket
	commodityByID  map[string]*models.CanonicalCommodity
	commodityAlias map[string]*models.CanonicalCommodity

	// proximity maps a market_id to its district neighbours in fallback
	// order, nearest first.
	proximity map[string][]string
}

type marketsFile struct {
	Markets   []models.CanonicalMarket `json:"markets"`
	Proximity map[string][]string      `json:"proximity"`
}

// Load builds a Catalog from the embedded reference tables.
func Load() (*Catalog, error) {
	mb, err := embedded.ReadFile("data/markets.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded markets: %w", err)
	}
	cb, err := embedded.ReadFile("data/commodities.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded commodities: %w", err)
	}
	return build(mb, cb)
}

// LoadFromFiles builds a Catalog from external JSON files, replacing the
// embedded tables entirely.
func LoadFromFiles(marketsPath, commoditiesPath string) (*Catalog, error) {
	mb, err := os.ReadFile(marketsPath)
	if err != nil {
		return nil, fmt.Errorf("read markets file: %w", err)
	}
	cb, err := os.ReadFile(commoditiesPath)
	if err != nil {
		return nil, fmt.Errorf("read commodities file: %w", err)
	}
	return build(mb, cb)
}

func build(marketsJSON, commoditiesJSON []byte) (*Catalog, error) {
	var mf marketsFile
	if err := json.Unmarshal(marketsJSON, &mf); err != nil {
		return nil, fmt.Errorf("parse markets: %w", err)
	}
	var commodities []models.CanonicalCommodity
	if err := json.Unmarshal(commoditiesJSON, &commodities); err != nil {
		return nil, fmt.Errorf("parse commodities: %w", err)
	}
	if len(mf.Markets) == 0 {
		return nil, fmt.Errorf("markets table is empty")
	}
	if len(commodities) == 0 {
		return nil, fmt.Errorf("commodities table is empty")
	}

	c := &Catalog{
		markets:        mf.Markets,
		commodities:    commodities,
		marketByID:     make(map[string]*models.CanonicalMarket, len(mf.Markets)),
		marketAlias:    make(map[string]*models.CanonicalMarket),
		commodityByID:  make(map[string]*models.CanonicalCommodity, len(commodities)),
		commodityAlias: make(map[string]*models.CanonicalCommodity),
		proximity:      mf.Proximity,
	}

	for i := range c.markets {
		m := &c.markets[i]
		if m.MarketID == "" {
			return nil, fmt.Errorf("market %q has no market_id", m.DisplayName)
		}
		if _, dup := c.marketByID[m.MarketID]; dup {
			return nil, fmt.Errorf("duplicate market_id %q", m.MarketID)
		}
		c.marketByID[m.MarketID] = m
		c.marketAlias[utils.NormalizeName(m.DisplayName)] = m
		for _, a := range m.Aliases {
			c.marketAlias[utils.NormalizeName(a)] = m
		}
	}

	for i := range c.commodities {
		cm := &c.commodities[i]
		if cm.CommodityID == "" {
			return nil, fmt.Errorf("commodity %q has no commodity_id", cm.DisplayName)
		}
		if _, dup := c.commodityByID[cm.CommodityID]; dup {
			return nil, fmt.Errorf("duplicate commodity_id %q", cm.CommodityID)
		}
		c.commodityByID[cm.CommodityID] = cm
		c.commodityAlias[utils.NormalizeName(cm.DisplayName)] = cm
		for _, a := range cm.Aliases {
			c.commodityAlias[utils.NormalizeName(a)] = cm
		}
	}

	return c, nil
}

// Markets returns all canonical markets.
func (c *Catalog) Markets() []models.CanonicalMarket { return c.markets }

// Commodities returns all canonical commodities.
func (c *Catalog) Commodities() []models.CanonicalCommodity { return c.commodities }

// MarketByID looks up a market by canonical id.
func (c *Catalog) MarketByID(id string) (models.CanonicalMarket, bool) {
	m, ok := c.marketByID[id]
	if !ok {
		return models.CanonicalMarket{}, false
	}
	return *m, true
}

// CommodityByID looks up a commodity by canonical id.
func (c *Catalog) CommodityByID(id string) (models.CanonicalCommodity, bool) {
	cm, ok := c.commodityByID[id]
	if !ok {
		return models.CanonicalCommodity{}, false
	}
	return *cm, true
}

// MarketByAlias looks up a market by normalized alias (exact match).
func (c *Catalog) MarketByAlias(normalized string) (models.CanonicalMarket, bool) {
	m, ok := c.marketAlias[normalized]
	if !ok {
		return models.CanonicalMarket{}, false
	}
	return *m, true
}

// CommodityByAlias looks up a commodity by normalized alias (exact match).
func (c *Catalog) CommodityByAlias(normalized string) (models.CanonicalCommodity, bool) {
	cm, ok := c.commodityAlias[normalized]
	if !ok {
		return models.CanonicalCommodity{}, false
	}
	return *cm, true
}

// Neighbours returns the alternate markets for a market in proximity order.
// Markets without a configured proximity list fall back to every other
// market in the same district, in table order.
func (c *Catalog) Neighbours(marketID string) []models.CanonicalMarket {
	if ids, ok := c.proximity[marketID]; ok {
		out := make([]models.CanonicalMarket, 0, len(ids))
		for _, id := range ids {
			if m, ok := c.marketByID[id]; ok {
				out = append(out, *m)
			}
		}
		return out
	}

	self, ok := c.marketByID[marketID]
	if !ok {
		return nil
	}
	var out []models.CanonicalMarket
	for i := range c.markets {
		m := c.markets[i]
		if m.MarketID != marketID && m.District == self.District {
			out = append(out, m)
		}
	}
	return out
}
