package models

// CalendarMonth is one month's entry in the farming calendar dataset.
type CalendarMonth struct {
	Month       int      `json:"month"` // 1-12
	Name        string   `json:"name"`
	HindiName   string   `json:"hindi_name"`
	Season      string   `json:"season"` // "rabi", "kharif", "zaid"
	TempRangeC  string   `json:"temp_range_c"`
	Rainfall    string   `json:"rainfall"` // qualitative pattern
	Sowing      []string `json:"sowing"`   // crops to sow this month
	Harvesting  []string `json:"harvesting"`
	Activities  []string `json:"activities"` // field operations due
}

// CalendarAdvice is the month view returned by the calendar tool.
type CalendarAdvice struct {
	Month    CalendarMonth `json:"month"`
	// Activities filtered to crops the farmer actually grows, when a
	// profile is available.
	ForYourCrops []string `json:"for_your_crops,omitempty"`
}
