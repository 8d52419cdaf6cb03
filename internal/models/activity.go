// internal/models/activity.go
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	dbgen "github.com/rosterforge/rosterforge/internal/db/generated"
)

const (
	MinActivityDuration int64 = 1
	MaxActivityDuration int64 = 6
	maxActivityTitleLen       = 120
	activityDateLayout        = "2006-01-02"
)

var (
	ErrUnknownActivityType = errors.New("unknown activity type")
	ErrTitleRequired       = errors.New("title is required")
)

// ActivityType is the kind of team event occupying a grid cell.
type ActivityType string

const (
	ActivityPractice           ActivityType = "practice"
	ActivityIndividualTraining ActivityType = "individual_training"
	ActivityGroupTraining      ActivityType = "group_training"
	ActivityOfficialMatch      ActivityType = "official_match"
	ActivityTournament         ActivityType = "tournament"
	ActivityMeeting            ActivityType = "meeting"
)

var activityTypeNames = map[ActivityType]string{
	ActivityPractice:           "Practice",
	ActivityIndividualTraining: "Individual Training",
	ActivityGroupTraining:      "Group Training",
	ActivityOfficialMatch:      "Official Match",
	ActivityTournament:         "Tournament",
	ActivityMeeting:            "Meeting",
}

// ActivityTypes lists every type in display order.
var ActivityTypes = []ActivityType{
	ActivityPractice,
	ActivityIndividualTraining,
	ActivityGroupTraining,
	ActivityOfficialMatch,
	ActivityTournament,
	ActivityMeeting,
}

func ParseActivityType(raw string) (ActivityType, error) {
	t := ActivityType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := activityTypeNames[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownActivityType, raw)
	}
	return t, nil
}

func (t ActivityType) Valid() bool {
	_, ok := activityTypeNames[t]
	return ok
}

// DisplayName is the human label, also used as the default title for bulk-created activities.
func (t ActivityType) DisplayName() string {
	if name, ok := activityTypeNames[t]; ok {
		return name
	}
	return string(t)
}

// Activity is a single scheduled team event.
// ActivityDate, when set, pins the activity to one calendar date instead of repeating weekly.
type Activity struct {
	ID           string       `json:"id"`
	TeamID       string       `json:"team_id"`
	Type         ActivityType `json:"type"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	DayOfWeek    int          `json:"day_of_week"`
	ActivityDate string       `json:"activity_date,omitempty"`
	TimeSlot     string       `json:"time_slot"`
	Duration     int64        `json:"duration"`
}

// IsDated reports whether the activity is a one-off override for a specific date.
func (a Activity) IsDated() bool {
	return a.ActivityDate != ""
}

// ActivityInput carries the writable fields of an activity.
type ActivityInput struct {
	TeamID       string       `json:"team_id,omitempty"`
	Type         ActivityType `json:"type"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	DayOfWeek    int          `json:"day_of_week"`
	TimeSlot     string       `json:"time_slot"`
	Duration     int64        `json:"duration"`
	ActivityDate string       `json:"activity_date,omitempty"`
}

// Normalize trims free-text fields in place.
func (in *ActivityInput) Normalize() {
	in.TeamID = strings.TrimSpace(in.TeamID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.TimeSlot = strings.TrimSpace(in.TimeSlot)
	in.ActivityDate = strings.TrimSpace(in.ActivityDate)
}

// Validate checks everything except the time slot label, which the grid package owns.
func (in ActivityInput) Validate() error {
	if !in.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownActivityType, in.Type)
	}
	if in.Title == "" {
		return ErrTitleRequired
	}
	if len(in.Title) > maxActivityTitleLen {
		return fmt.Errorf("title must be at most %d characters", maxActivityTitleLen)
	}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week must be between 0 and 6")
	}
	if in.TimeSlot == "" {
		return fmt.Errorf("time_slot is required")
	}
	if in.Duration < MinActivityDuration || in.Duration > MaxActivityDuration {
		return fmt.Errorf("duration must be between %d and %d hours", MinActivityDuration, MaxActivityDuration)
	}
	if in.ActivityDate != "" {
		if _, err := time.Parse(activityDateLayout, in.ActivityDate); err != nil {
			return fmt.Errorf("activity_date must be YYYY-MM-DD")
		}
	}
	return nil
}

// ActivityFromRow converts a stored row into the API shape.
func ActivityFromRow(row dbgen.ScheduleActivity) Activity {
	activity := Activity{
		ID:        row.ID,
		TeamID:    row.TeamID,
		Type:      ActivityType(row.Type),
		Title:     row.Title,
		DayOfWeek: int(row.DayOfWeek),
		TimeSlot:  row.TimeSlot,
		Duration:  row.Duration,
	}
	if row.Description.Valid {
		activity.Description = row.Description.String
	}
	if row.ActivityDate.Valid {
		activity.ActivityDate = row.ActivityDate.String
	}
	return activity
}

func ActivitiesFromRows(rows []dbgen.ScheduleActivity) []Activity {
	activities := make([]Activity, len(rows))
	for i, row := range rows {
		activities[i] = ActivityFromRow(row)
	}
	return activities
}
