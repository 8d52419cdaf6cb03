// internal/api/availability/handlers.go
package availability

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/api/apiutil"
	"github.com/rosterforge/rosterforge/internal/api/authz"
	"github.com/rosterforge/rosterforge/internal/grid"
	"github.com/rosterforge/rosterforge/internal/models"
	sched "github.com/rosterforge/rosterforge/internal/schedule"
)

var (
	store     *sched.Store
	storeOnce sync.Once
	now       = time.Now
)

const availabilityQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s *sched.Store) {
	if s == nil {
		return
	}
	storeOnce.Do(func() {
		store = s
	})
}

type listResponse struct {
	Availabilities []models.PlayerWeeklyAvailability `json:"availabilities"`
}

type saveRequest struct {
	PlayerID     string             `json:"player_id"`
	WeekStart    string             `json:"week_start"`
	Availability models.WeeklyHours `json:"availability"`
}

type saveResponse struct {
	Availability models.PlayerWeeklyAvailability `json:"availability"`
}

// GET /api/player-availability?team_id=&week_start=
// week_start defaults to the current week.
func HandleList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Schedule store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	teamID, err := apiutil.TeamIDFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	weekStart, err := apiutil.WeekStartFromQuery(r, grid.WeekStart(now()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !apiutil.RequireTeamAccess(w, r, teamID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	if _, err := store.GetTeam(ctx, teamID); err != nil {
		if errors.Is(err, sched.ErrTeamNotFound) {
			http.Error(w, "Team not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("team_id", teamID).Msg("Failed to load team")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	availabilities, err := store.ListAvailability(ctx, teamID, weekStart)
	if err != nil {
		logger.Error().Err(err).Str("team_id", teamID).Str("week_start", weekStart).Msg("Failed to list availability")
		http.Error(w, "Failed to load availability", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, listResponse{Availabilities: availabilities}); err != nil {
		logger.Error().Err(err).Msg("Failed to write availability response")
	}
}

// PUT /api/player-availability
// Players submit their own week; managers may fill in for players on their team.
func HandleSave(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Schedule store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req saveRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		if user := authz.UserFromContext(r.Context()); user != nil {
			playerID = user.PlayerID
		}
	}
	if playerID == "" {
		http.Error(w, "player_id is required", http.StatusBadRequest)
		return
	}
	weekStart := strings.TrimSpace(req.WeekStart)
	if _, err := grid.ParseWeekStart(weekStart); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	player, err := store.GetPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, sched.ErrPlayerNotFound) {
			http.Error(w, "Player not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("player_id", playerID).Msg("Failed to load player")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequirePlayerWrite(w, r, player.TeamID, player.ID) {
		return
	}

	hours := req.Availability
	if hours == nil {
		hours = models.WeeklyHours{}
	}
	saved, err := store.SaveAvailability(ctx, player.ID, weekStart, hours)
	if err != nil {
		var inputErr sched.InputError
		if errors.As(err, &inputErr) {
			http.Error(w, inputErr.Error(), http.StatusBadRequest)
			return
		}
		logger.Error().Err(err).Str("player_id", player.ID).Str("week_start", weekStart).Msg("Failed to save availability")
		http.Error(w, "Failed to save availability", http.StatusInternalServerError)
		return
	}

	logger.Info().Str("team_id", saved.TeamID).Str("player_id", saved.PlayerID).Str("week_start", weekStart).Msg("Availability saved")
	if err := apiutil.WriteJSON(w, http.StatusOK, saveResponse{Availability: saved}); err != nil {
		logger.Error().Err(err).Msg("Failed to write availability response")
	}
}
