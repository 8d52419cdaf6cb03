package grid

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// WeekStart returns the Monday of the week containing t, formatted YYYY-MM-DD.
func WeekStart(t time.Time) string {
	offset := (int(t.Weekday()) + 6) % 7
	monday := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
	return monday.Format(DateLayout)
}

// ParseWeekStart parses a YYYY-MM-DD date that must fall on a Monday.
func ParseWeekStart(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("week_start must be YYYY-MM-DD")
	}
	if parsed.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("week_start must be a Monday")
	}
	return parsed, nil
}

// DateFor returns the date of the dayIdx-th day of the week starting at weekStart.
// weekStart must already be valid.
func DateFor(weekStart string, dayIdx int) string {
	start, err := time.Parse(DateLayout, weekStart)
	if err != nil {
		return ""
	}
	return start.AddDate(0, 0, dayIdx).Format(DateLayout)
}

// DayIndexForDate maps a YYYY-MM-DD date to its Monday-based column index.
func DayIndexForDate(date string) (int, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return -1, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return (int(parsed.Weekday()) + 6) % 7, nil
}

// ShiftWeek moves a week start by n weeks.
func ShiftWeek(weekStart string, n int) (string, error) {
	start, err := ParseWeekStart(weekStart)
	if err != nil {
		return "", err
	}
	return start.AddDate(0, 0, 7*n).Format(DateLayout), nil
}
