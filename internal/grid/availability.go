package grid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rosterforge/rosterforge/internal/models"
)

// SlotHour parses a slot label ("3:00 PM") into a 0..23 hour. "12:00 AM" is hour 0.
func SlotHour(slot string) (int, error) {
	fields := strings.Fields(strings.ToUpper(strings.TrimSpace(slot)))
	if len(fields) != 2 {
		return -1, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	clock, meridiem := fields[0], fields[1]
	hourPart, _, _ := strings.Cut(clock, ":")
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 1 || hour > 12 {
		return -1, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	switch meridiem {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return -1, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	return hour, nil
}

// AvailableCount counts players who marked the hour of slot on day as available.
func AvailableCount(availabilities []models.PlayerWeeklyAvailability, day, slot string) int {
	hour, err := SlotHour(slot)
	if err != nil {
		return 0
	}
	key := strings.ToLower(strings.TrimSpace(day))

	count := 0
	for _, a := range availabilities {
		if a.IsAvailable(key, hour) {
			count++
		}
	}
	return count
}
