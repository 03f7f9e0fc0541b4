// Package calendar serves the month-by-month farming calendar for the
// north Indian cropping cycle. The dataset is embedded reference data
// keyed by calendar month; advice is optionally narrowed to the crops a
// farmer actually grows.
package calendar

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"

	_ "embed"
)

//go:embed data/calendar.json
var calendarJSON []byte

// Calendar answers month-view queries over the embedded dataset.
type Calendar struct {
	months [12]models.CalendarMonth
}

// Load parses the embedded calendar dataset.
func Load() (*Calendar, error) {
	return load(calendarJSON)
}

func load(data []byte) (*Calendar, error) {
	var entries []models.CalendarMonth
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse farming calendar: %w", err)
	}
	if len(entries) != 12 {
		return nil, fmt.Errorf("farming calendar has %d months, want 12", len(entries))
	}

	var c Calendar
	seen := make(map[int]bool)
	for _, e := range entries {
		if e.Month < 1 || e.Month > 12 {
			return nil, fmt.Errorf("calendar month %d out of range", e.Month)
		}
		if seen[e.Month] {
			return nil, fmt.Errorf("duplicate calendar month %d", e.Month)
		}
		seen[e.Month] = true
		c.months[e.Month-1] = e
	}
	return &c, nil
}

// Month returns the calendar entry for a month (1-12).
func (c *Calendar) Month(month int) (models.CalendarMonth, error) {
	if month < 1 || month > 12 {
		return models.CalendarMonth{}, fmt.Errorf("month %d out of range", month)
	}
	return c.months[month-1], nil
}

// Advice returns the month view, with activities narrowed to the
// farmer's crops when a profile is given. Activities are convention-
// prefixed "crop: action"; unprefixed ones apply to everyone and are
// always kept.
func (c *Calendar) Advice(month int, p *models.FarmerProfile) (*models.CalendarAdvice, error) {
	m, err := c.Month(month)
	if err != nil {
		return nil, err
	}

	advice := &models.CalendarAdvice{Month: m}
	if p == nil || len(p.Crops) == 0 {
		return advice, nil
	}

	grown := make(map[string]bool, len(p.Crops))
	for _, crop := range p.Crops {
		grown[utils.NormalizeName(crop)] = true
	}

	for _, activity := range m.Activities {
		crop, _, found := strings.Cut(activity, ":")
		if !found {
			advice.ForYourCrops = append(advice.ForYourCrops, activity)
			continue
		}
		if grown[utils.NormalizeName(crop)] {
			advice.ForYourCrops = append(advice.ForYourCrops, activity)
		}
	}
	return advice, nil
}

// SowingMonths returns the months (1-12) in which a crop is sown.
func (c *Calendar) SowingMonths(crop string) []int {
	needle := utils.NormalizeName(crop)
	var months []int
	for _, m := range c.months {
		for _, s := range m.Sowing {
			if utils.NormalizeName(s) == needle {
				months = append(months, m.Month)
				break
			}
		}
	}
	return months
}

// HarvestMonths returns the months (1-12) in which a crop is harvested.
func (c *Calendar) HarvestMonths(crop string) []int {
	needle := utils.NormalizeName(crop)
	var months []int
	for _, m := range c.months {
		for _, s := range m.Harvesting {
			if utils.NormalizeName(s) == needle {
				months = append(months, m.Month)
				break
			}
		}
	}
	return months
}
