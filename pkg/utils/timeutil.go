// Package utils provides common utility functions for Kisan Mitra.
package utils

import (
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30). All mandi trading
// dates and cache expiry boundaries are interpreted in IST.
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// NowIST returns the current time in IST.
func NowIST() time.Time {
	return time.Now().In(IST)
}

// ToIST converts a time.Time to IST.
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// MandiDateFormat is the date layout AgMarkNet uses, e.g. "25-Dec-2024".
const MandiDateFormat = "02-Jan-2006"

// FormatMandiDate renders a time as a mandi trading date string.
func FormatMandiDate(t time.Time) string {
	return t.In(IST).Format(MandiDateFormat)
}

// ParseMandiDate parses a DD-Mon-YYYY date string into an IST time at
// midnight. Returns an error for any other layout.
func ParseMandiDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(MandiDateFormat, s, IST)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// TruncateToDay returns the IST midnight at the start of t's day.
func TruncateToDay(t time.Time) time.Time {
	d := t.In(IST)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, IST)
}

// SameDay reports whether a and b fall on the same IST calendar day.
func SameDay(a, b time.Time) bool {
	return TruncateToDay(a).Equal(TruncateToDay(b))
}

// NextMidnight returns the IST midnight at the end of t's day, i.e. the
// instant a same-day cache entry stops being fresh.
func NextMidnight(t time.Time) time.Time {
	return TruncateToDay(t).AddDate(0, 0, 1)
}

// IsToday reports whether t falls on the current IST day.
func IsToday(t time.Time) bool {
	return SameDay(t, NowIST())
}
