// Package schedule is the server-side home of team activities and player availability.
// Store implements board.Backend directly against the database so the HTML board and the
// JSON API share one write path.
package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/api/apiutil"
	appdb "github.com/rosterforge/rosterforge/internal/db"
	dbgen "github.com/rosterforge/rosterforge/internal/db/generated"
	"github.com/rosterforge/rosterforge/internal/grid"
	"github.com/rosterforge/rosterforge/internal/models"
)

var (
	ErrNotFound       = errors.New("activity not found")
	ErrTeamNotFound   = errors.New("team not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrNotInitialized = errors.New("schedule store not initialized")
)

// InputError marks a request the caller must fix.
type InputError struct {
	Err error
}

func (e InputError) Error() string {
	return e.Err.Error()
}

func (e InputError) Unwrap() error {
	return e.Err
}

type Store struct {
	db     *appdb.DB
	events Publisher
}

// NewStore returns a store that announces every successful write to events. events may be nil.
func NewStore(database *appdb.DB, events Publisher) *Store {
	if events == nil {
		events = Discard
	}
	return &Store{db: database, events: events}
}

func (s *Store) queries() (*dbgen.Queries, error) {
	if s == nil || s.db == nil || s.db.Queries == nil {
		return nil, ErrNotInitialized
	}
	return s.db.Queries, nil
}

// GetTeam returns ErrTeamNotFound for an unknown id.
func (s *Store) GetTeam(ctx context.Context, id string) (dbgen.Team, error) {
	q, err := s.queries()
	if err != nil {
		return dbgen.Team{}, err
	}
	team, err := q.GetTeam(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Team{}, ErrTeamNotFound
		}
		return dbgen.Team{}, fmt.Errorf("get team: %w", err)
	}
	return team, nil
}

// GetPlayer returns ErrPlayerNotFound for an unknown id.
func (s *Store) GetPlayer(ctx context.Context, id string) (dbgen.Player, error) {
	q, err := s.queries()
	if err != nil {
		return dbgen.Player{}, err
	}
	player, err := q.GetPlayer(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Player{}, ErrPlayerNotFound
		}
		return dbgen.Player{}, fmt.Errorf("get player: %w", err)
	}
	return player, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]dbgen.Team, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	teams, err := q.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

func (s *Store) ListActivities(ctx context.Context, teamID string) ([]models.Activity, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := q.ListActivitiesByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return models.ActivitiesFromRows(rows), nil
}

func (s *Store) GetActivity(ctx context.Context, id string) (models.Activity, error) {
	q, err := s.queries()
	if err != nil {
		return models.Activity{}, err
	}
	row, err := q.GetActivity(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Activity{}, ErrNotFound
		}
		return models.Activity{}, fmt.Errorf("get activity: %w", err)
	}
	return models.ActivityFromRow(row), nil
}

func (s *Store) CreateActivity(ctx context.Context, input models.ActivityInput) (models.Activity, error) {
	q, err := s.queries()
	if err != nil {
		return models.Activity{}, err
	}
	input.Normalize()
	if input.TeamID == "" {
		return models.Activity{}, InputError{Err: errors.New("team_id is required")}
	}
	if err := validateInput(input); err != nil {
		return models.Activity{}, err
	}
	if _, err := s.GetTeam(ctx, input.TeamID); err != nil {
		return models.Activity{}, err
	}

	row, err := q.CreateActivity(ctx, dbgen.CreateActivityParams{
		ID:           uuid.NewString(),
		TeamID:       input.TeamID,
		Type:         string(input.Type),
		Title:        input.Title,
		Description:  apiutil.ToNullString(input.Description),
		DayOfWeek:    int64(input.DayOfWeek),
		ActivityDate: apiutil.ToNullString(input.ActivityDate),
		TimeSlot:     canonicalSlot(input.TimeSlot),
		Duration:     input.Duration,
	})
	if err != nil {
		return models.Activity{}, fmt.Errorf("create activity: %w", err)
	}

	activity := models.ActivityFromRow(row)
	s.events.Publish(Event{Kind: EventCreated, TeamID: activity.TeamID, Activity: activity})
	return activity, nil
}

// UpdateActivity rewrites every writable field. The team cannot change.
func (s *Store) UpdateActivity(ctx context.Context, id string, input models.ActivityInput) (models.Activity, error) {
	q, err := s.queries()
	if err != nil {
		return models.Activity{}, err
	}
	input.Normalize()
	if err := validateInput(input); err != nil {
		return models.Activity{}, err
	}

	row, err := q.UpdateActivity(ctx, dbgen.UpdateActivityParams{
		Type:         string(input.Type),
		Title:        input.Title,
		Description:  apiutil.ToNullString(input.Description),
		DayOfWeek:    int64(input.DayOfWeek),
		ActivityDate: apiutil.ToNullString(input.ActivityDate),
		TimeSlot:     canonicalSlot(input.TimeSlot),
		Duration:     input.Duration,
		ID:           id,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Activity{}, ErrNotFound
		}
		return models.Activity{}, fmt.Errorf("update activity: %w", err)
	}

	activity := models.ActivityFromRow(row)
	s.events.Publish(Event{Kind: EventUpdated, TeamID: activity.TeamID, Activity: activity})
	return activity, nil
}

func (s *Store) DeleteActivity(ctx context.Context, id string) error {
	q, err := s.queries()
	if err != nil {
		return err
	}
	existing, err := s.GetActivity(ctx, id)
	if err != nil {
		return err
	}
	affected, err := q.DeleteActivity(ctx, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.events.Publish(Event{Kind: EventDeleted, TeamID: existing.TeamID, Activity: existing})
	return nil
}

// DigestRecipients returns the email addresses of the team's managers and players.
func (s *Store) DigestRecipients(ctx context.Context, teamID string) ([]string, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := q.ListDigestRecipients(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("list digest recipients: %w", err)
	}
	recipients := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Email.Valid && row.Email.String != "" {
			recipients = append(recipients, row.Email.String)
		}
	}
	return recipients, nil
}

// PruneDatedBefore deletes one-off activities dated strictly before cutoff (YYYY-MM-DD).
func (s *Store) PruneDatedBefore(ctx context.Context, cutoff string) (int64, error) {
	q, err := s.queries()
	if err != nil {
		return 0, err
	}
	removed, err := q.DeleteDatedActivitiesBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune dated activities: %w", err)
	}
	return removed, nil
}

// ListAvailability returns the team's submitted availability for the week. A row that cannot
// be decoded is skipped with a warning rather than failing the whole overlay.
func (s *Store) ListAvailability(ctx context.Context, teamID, weekStart string) ([]models.PlayerWeeklyAvailability, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := q.ListTeamAvailability(ctx, dbgen.ListTeamAvailabilityParams{
		TeamID:    teamID,
		WeekStart: weekStart,
	})
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	availabilities := make([]models.PlayerWeeklyAvailability, 0, len(rows))
	for _, row := range rows {
		availability, err := models.AvailabilityFromRow(row)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("team_id", teamID).Str("player_id", row.PlayerID).Msg("Skipping unreadable availability")
			continue
		}
		availabilities = append(availabilities, availability)
	}
	return availabilities, nil
}

// SaveAvailability replaces one player's availability for a week.
func (s *Store) SaveAvailability(ctx context.Context, playerID, weekStart string, hours models.WeeklyHours) (models.PlayerWeeklyAvailability, error) {
	q, err := s.queries()
	if err != nil {
		return models.PlayerWeeklyAvailability{}, err
	}
	if _, err := grid.ParseWeekStart(weekStart); err != nil {
		return models.PlayerWeeklyAvailability{}, InputError{Err: err}
	}
	hours = normalizeHours(hours)
	if err := hours.Validate(); err != nil {
		return models.PlayerWeeklyAvailability{}, InputError{Err: err}
	}
	player, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return models.PlayerWeeklyAvailability{}, err
	}

	encoded, err := json.Marshal(hours)
	if err != nil {
		return models.PlayerWeeklyAvailability{}, fmt.Errorf("encode availability: %w", err)
	}
	if _, err := q.UpsertPlayerAvailability(ctx, dbgen.UpsertPlayerAvailabilityParams{
		PlayerID:     playerID,
		WeekStart:    weekStart,
		Availability: string(encoded),
	}); err != nil {
		return models.PlayerWeeklyAvailability{}, fmt.Errorf("save availability: %w", err)
	}

	saved := models.PlayerWeeklyAvailability{
		PlayerID:     player.ID,
		PlayerName:   player.Name,
		TeamID:       player.TeamID,
		WeekStart:    weekStart,
		Availability: hours,
	}
	s.events.Publish(Event{Kind: EventAvailability, TeamID: player.TeamID, WeekStart: weekStart})
	return saved, nil
}

func validateInput(input models.ActivityInput) error {
	if err := input.Validate(); err != nil {
		return InputError{Err: err}
	}
	if !grid.ValidSlot(input.TimeSlot) {
		return InputError{Err: fmt.Errorf("%w: %q", grid.ErrUnknownSlot, input.TimeSlot)}
	}
	if input.ActivityDate != "" {
		dayIdx, err := grid.DayIndexForDate(input.ActivityDate)
		if err != nil {
			return InputError{Err: err}
		}
		if dayIdx != input.DayOfWeek {
			return InputError{Err: fmt.Errorf("activity_date %s is not on day_of_week %d", input.ActivityDate, input.DayOfWeek)}
		}
	}
	return nil
}

// canonicalSlot stores the label exactly as the grid spells it.
func canonicalSlot(slot string) string {
	idx, err := grid.SlotIndex(slot)
	if err != nil {
		return slot
	}
	return grid.TimeSlots[idx]
}

func normalizeHours(hours models.WeeklyHours) models.WeeklyHours {
	out := make(models.WeeklyHours, len(hours))
	for day, marks := range hours {
		key := strings.ToLower(strings.TrimSpace(day))
		if _, ok := out[key]; !ok {
			out[key] = make(map[string]bool, len(marks))
		}
		for hour, available := range marks {
			out[key][strings.TrimSpace(hour)] = available
		}
	}
	return out
}
