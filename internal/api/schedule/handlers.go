// internal/api/schedule/handlers.go
package schedule

import (
	"bytes"
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
	hub       *Hub
	upgrader  = newUpgrader(nil)
	storeOnce sync.Once
)

const scheduleQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s *sched.Store, h *Hub, allowedOrigins []string) {
	if s == nil {
		return
	}
	storeOnce.Do(func() {
		store = s
		hub = h
		upgrader = newUpgrader(allowedOrigins)
	})
}

type activityResponse struct {
	Activity models.Activity `json:"activity"`
}

type activitiesResponse struct {
	Activities []models.Activity `json:"activities"`
}

type createActivityRequest struct {
	TeamID       string  `json:"team_id"`
	Type         string  `json:"type"`
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	DayOfWeek    *int    `json:"day_of_week"`
	TimeSlot     string  `json:"time_slot"`
	Duration     *int64  `json:"duration"`
	ActivityDate *string `json:"activity_date,omitempty"`
}

type updateActivityRequest struct {
	TeamID       *string `json:"team_id,omitempty"`
	Type         string  `json:"type"`
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	DayOfWeek    *int    `json:"day_of_week"`
	TimeSlot     string  `json:"time_slot"`
	Duration     *int64  `json:"duration"`
	ActivityDate *string `json:"activity_date,omitempty"`
}

// GET /api/schedule?team_id=
func HandleListActivities(w http.ResponseWriter, r *http.Request) {
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
	if !apiutil.RequireTeamAccess(w, r, teamID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	if _, err := store.GetTeam(ctx, teamID); err != nil {
		writeStoreError(w, r, err, teamID, "Failed to load team")
		return
	}
	activities, err := store.ListActivities(ctx, teamID)
	if err != nil {
		logger.Error().Err(err).Str("team_id", teamID).Msg("Failed to list activities")
		http.Error(w, "Failed to load schedule", http.StatusInternalServerError)
		return
	}
	if activities == nil {
		activities = []models.Activity{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, activitiesResponse{Activities: activities}); err != nil {
		logger.Error().Err(err).Msg("Failed to write schedule response")
	}
}

// POST /api/schedule
func HandleCreateActivity(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Schedule store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req createActivityRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	input, err := req.input()
	if err != nil {
		writeFieldError(w, err)
		return
	}
	if input.TeamID == "" {
		http.Error(w, "team_id is required", http.StatusBadRequest)
		return
	}
	if !apiutil.RequireTeamWrite(w, r, input.TeamID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	activity, err := store.CreateActivity(ctx, input)
	if err != nil {
		writeStoreError(w, r, err, input.TeamID, "Failed to create activity")
		return
	}

	logger.Info().
		Str("team_id", activity.TeamID).
		Str("activity_id", activity.ID).
		Str("type", string(activity.Type)).
		Msg("Activity created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, activityResponse{Activity: activity}); err != nil {
		logger.Error().Err(err).Msg("Failed to write activity response")
	}
}

// PUT /api/schedule/{id}
func HandleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Schedule store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := apiutil.PathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req updateActivityRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	existing, err := store.GetActivity(ctx, id)
	if err != nil {
		writeStoreError(w, r, err, "", "Failed to load activity")
		return
	}
	if !apiutil.RequireTeamWrite(w, r, existing.TeamID) {
		return
	}
	if req.TeamID != nil && strings.TrimSpace(*req.TeamID) != existing.TeamID {
		http.Error(w, "team_id cannot be changed", http.StatusBadRequest)
		return
	}

	input, err := createActivityRequest{
		Type:         req.Type,
		Title:        req.Title,
		Description:  req.Description,
		DayOfWeek:    req.DayOfWeek,
		TimeSlot:     req.TimeSlot,
		Duration:     req.Duration,
		ActivityDate: req.ActivityDate,
	}.input()
	if err != nil {
		writeFieldError(w, err)
		return
	}

	activity, err := store.UpdateActivity(ctx, id, input)
	if err != nil {
		writeStoreError(w, r, err, existing.TeamID, "Failed to update activity")
		return
	}

	logger.Info().Str("team_id", activity.TeamID).Str("activity_id", activity.ID).Msg("Activity updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, activityResponse{Activity: activity}); err != nil {
		logger.Error().Err(err).Msg("Failed to write activity response")
	}
}

// DELETE /api/schedule/{id}
func HandleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Schedule store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := apiutil.PathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	existing, err := store.GetActivity(ctx, id)
	if err != nil {
		writeStoreError(w, r, err, "", "Failed to load activity")
		return
	}
	if !apiutil.RequireTeamWrite(w, r, existing.TeamID) {
		return
	}
	if err := store.DeleteActivity(ctx, id); err != nil {
		writeStoreError(w, r, err, existing.TeamID, "Failed to delete activity")
		return
	}

	logger.Info().Str("team_id", existing.TeamID).Str("activity_id", id).Msg("Activity deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/schedule/export?team_id=&week_start=
func HandleExport(w http.ResponseWriter, r *http.Request) {
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
	weekStart, err := apiutil.WeekStartFromQuery(r, grid.WeekStart(time.Now()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !apiutil.RequireTeamAccess(w, r, teamID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	team, err := store.GetTeam(ctx, teamID)
	if err != nil {
		writeStoreError(w, r, err, teamID, "Failed to load team")
		return
	}
	activities, err := store.ListActivities(ctx, teamID)
	if err != nil {
		logger.Error().Err(err).Str("team_id", teamID).Msg("Failed to list activities for export")
		http.Error(w, "Failed to export schedule", http.StatusInternalServerError)
		return
	}
	availabilities, err := store.ListAvailability(ctx, teamID, weekStart)
	if err != nil {
		logger.Warn().Err(err).Str("team_id", teamID).Str("week_start", weekStart).Msg("Exporting without availability")
		availabilities = nil
	}

	var buf bytes.Buffer
	if err := sched.WriteWorkbook(&buf, weekStart, activities, availabilities); err != nil {
		logger.Error().Err(err).Str("team_id", teamID).Msg("Failed to build schedule export")
		http.Error(w, "Failed to export schedule", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", sched.XLSXContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+sched.ExportFilename(team.Slug, weekStart)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Error().Err(err).Msg("Failed to write schedule export")
	}
}

// GET /api/schedule/live?team_id=
func HandleLive(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if hub == nil {
		logger.Error().Msg("Live hub not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	teamID, err := apiutil.TeamIDFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !apiutil.RequireTeamAccess(w, r, teamID) {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Str("team_id", teamID).Msg("Failed to upgrade live connection")
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, clientSendSize),
		teamID: teamID,
	}
	if user := authz.UserFromContext(r.Context()); user != nil {
		client.userID = user.ID
	}
	if !hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (req createActivityRequest) input() (models.ActivityInput, error) {
	activityType, err := models.ParseActivityType(req.Type)
	if err != nil {
		return models.ActivityInput{}, apiutil.FieldError{Field: "type", Reason: "is not a known activity type"}
	}
	if req.DayOfWeek == nil {
		return models.ActivityInput{}, apiutil.FieldError{Field: "day_of_week", Reason: "is required"}
	}
	if req.Duration == nil {
		return models.ActivityInput{}, apiutil.FieldError{Field: "duration", Reason: "is required"}
	}
	input := models.ActivityInput{
		TeamID:    req.TeamID,
		Type:      activityType,
		Title:     req.Title,
		DayOfWeek: *req.DayOfWeek,
		TimeSlot:  req.TimeSlot,
		Duration:  *req.Duration,
	}
	if req.Description != nil {
		input.Description = *req.Description
	}
	if req.ActivityDate != nil {
		input.ActivityDate = *req.ActivityDate
	}
	input.Normalize()
	return input, nil
}

func writeFieldError(w http.ResponseWriter, err error) {
	var fieldErr apiutil.FieldError
	if errors.As(err, &fieldErr) {
		http.Error(w, fieldErr.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error, teamID, logMsg string) {
	var inputErr sched.InputError
	switch {
	case errors.As(err, &inputErr):
		http.Error(w, inputErr.Error(), http.StatusBadRequest)
	case errors.Is(err, sched.ErrNotFound):
		http.Error(w, "Activity not found", http.StatusNotFound)
	case errors.Is(err, sched.ErrTeamNotFound):
		http.Error(w, "Team not found", http.StatusNotFound)
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("team_id", teamID).Msg(logMsg)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
