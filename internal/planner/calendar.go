package planner

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the key format of Plan.
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
	gridCells   = 42
)

// Day is one cell of the month grid.
type Day struct {
	Date    time.Time
	ISO     string
	InMonth bool
}

// MonthGrid returns six weeks of days, Sunday first, covering the month of
// cursor with spill-over from the neighbouring months.
func MonthGrid(cursor time.Time) []Day {
	first := time.Date(cursor.Year(), cursor.Month(), 1, 0, 0, 0, 0, cursor.Location())
	start := first.AddDate(0, 0, -int(first.Weekday()))

	days := make([]Day, gridCells)
	for i := range days {
		d := start.AddDate(0, 0, i)
		days[i] = Day{
			Date:    d,
			ISO:     d.Format(DateLayout),
			InMonth: d.Month() == cursor.Month(),
		}
	}
	return days
}

// ParseMonth parses "YYYY-MM"; an empty string means the month of now.
func ParseMonth(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	}
	t, err := time.ParseInLocation(MonthLayout, s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM: %w", s, err)
	}
	return t, nil
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
