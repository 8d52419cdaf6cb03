package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	dbgen "github.com/rosterforge/rosterforge/internal/db/generated"
)

// WeeklyHours maps a lowercase day label ("monday") to hour-of-day ("13") availability.
type WeeklyHours map[string]map[string]bool

// PlayerWeeklyAvailability is one player's self-reported availability for a week.
type PlayerWeeklyAvailability struct {
	PlayerID     string      `json:"player_id"`
	PlayerName   string      `json:"player_name"`
	TeamID       string      `json:"team_id"`
	WeekStart    string      `json:"week_start"`
	Availability WeeklyHours `json:"availability"`
}

// IsAvailable reports whether the player marked the given day and hour.
func (p PlayerWeeklyAvailability) IsAvailable(day string, hour int) bool {
	hours, ok := p.Availability[day]
	if !ok {
		return false
	}
	return hours[strconv.Itoa(hour)]
}

// Validate rejects hour keys outside 0..23.
func (w WeeklyHours) Validate() error {
	for day, hours := range w {
		for key := range hours {
			hour, err := strconv.Atoi(key)
			if err != nil || hour < 0 || hour > 23 {
				return fmt.Errorf("availability for %s has invalid hour %q", day, key)
			}
		}
	}
	return nil
}

func AvailabilityFromRow(row dbgen.ListTeamAvailabilityRow) (PlayerWeeklyAvailability, error) {
	hours := WeeklyHours{}
	if row.Availability != "" {
		if err := json.Unmarshal([]byte(row.Availability), &hours); err != nil {
			return PlayerWeeklyAvailability{}, fmt.Errorf("decode availability for player %s: %w", row.PlayerID, err)
		}
	}
	return PlayerWeeklyAvailability{
		PlayerID:     row.PlayerID,
		PlayerName:   row.PlayerName,
		TeamID:       row.TeamID,
		WeekStart:    row.WeekStart,
		Availability: hours,
	}, nil
}
