// internal/api/boardpage/handlers.go
package boardpage

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/csrf"
	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/api/apiutil"
	"github.com/rosterforge/rosterforge/internal/api/auth"
	"github.com/rosterforge/rosterforge/internal/api/authz"
	"github.com/rosterforge/rosterforge/internal/api/htmx"
	"github.com/rosterforge/rosterforge/internal/board"
	dbgen "github.com/rosterforge/rosterforge/internal/db/generated"
	"github.com/rosterforge/rosterforge/internal/grid"
	"github.com/rosterforge/rosterforge/internal/models"
	sched "github.com/rosterforge/rosterforge/internal/schedule"
	scheduletempl "github.com/rosterforge/rosterforge/internal/templates/components/schedule"
	"github.com/rosterforge/rosterforge/internal/templates/layouts"
)

var (
	store     *sched.Store
	registry  *Registry
	initOnce  sync.Once
	csrfToken = csrf.Token
)

const boardRequestTimeout = 30 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s *sched.Store, reg *Registry) {
	if s == nil || reg == nil {
		return
	}
	initOnce.Do(func() {
		store = s
		registry = reg
	})
}

// GET /{$}
func HandleHome(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if !authz.IsAdmin(user) {
		http.Redirect(w, r, auth.HomePath(user), http.StatusSeeOther)
		return
	}
	if store == nil {
		log.Ctx(r.Context()).Error().Msg("Schedule store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	teams, err := store.ListTeams(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list teams")
		http.Error(w, "Failed to load teams", http.StatusInternalServerError)
		return
	}
	page := layouts.Page{Title: "Teams", Username: user.Username, CSRFToken: csrfToken(r)}
	apiutil.RenderHTML(w, r, http.StatusOK, layouts.Base(page, scheduletempl.TeamList(teamOptions(teams))), "Failed to render team list")
}

// GET /teams/{team_id}/schedule
// htmx requests get only the board fragment.
func HandleBoardPage(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
		return
	}
	b, team, ok := boardForRequest(w, r)
	if !ok {
		return
	}

	if raw, present := r.URL.Query()["week_start"]; present {
		if err := b.SetWeek(r.Context(), strings.TrimSpace(raw[0])); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if htmx.IsPartial(r) {
		renderBoard(w, r, b, team, "")
		return
	}
	view := boardView(r, b, team, "")
	page := layouts.Page{Title: team.Name, Username: user.Username, CSRFToken: view.CSRFToken}
	apiutil.RenderHTML(w, r, http.StatusOK, layouts.Base(page, scheduletempl.Board(view)), "Failed to render board page")
}

// POST /teams/{team_id}/schedule/board/{action}
func HandleBoardAction(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	b, team, ok := boardForRequest(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), boardRequestTimeout)
	defer cancel()

	day := r.FormValue("day")
	slot := r.FormValue("slot")
	action := r.PathValue("action")

	var err error
	switch action {
	case "pointerdown":
		b.PointerDown(day, slot)
	case "pointerenter":
		b.PointerEnter(day, slot)
	case "pointerup":
		b.PointerUp()
	case "cancel":
		b.Cancel()
	case "open":
		_, err = b.Open(day, slot)
	case "dismiss":
		b.DismissPending()
	case "mode":
		err = b.SetMode(board.Mode(strings.TrimSpace(r.FormValue("mode"))))
	case "type":
		err = b.SelectType(models.ActivityType(strings.TrimSpace(r.FormValue("type"))))
	case "week":
		err = setWeek(ctx, b, r)
	case "team":
		nextTeam := strings.TrimSpace(r.FormValue("team"))
		if !apiutil.RequireTeamAccess(w, r, nextTeam) {
			return
		}
		next, teamErr := store.GetTeam(ctx, nextTeam)
		if teamErr != nil {
			writeTeamError(w, r, teamErr, nextTeam)
			return
		}
		if err = b.SetTeam(ctx, nextTeam); err == nil {
			team = teamRef{ID: next.ID, Name: next.Name}
			w.Header().Set("HX-Push-Url", "/teams/"+nextTeam+"/schedule")
		}
	case "confirm-create":
		_, err = b.ConfirmCreate(ctx, formFromRequest(r))
	case "confirm-delete":
		_, err = b.ConfirmDelete(ctx)
	case "create-one":
		_, err = b.CreateOne(ctx, formFromRequest(r))
	case "update":
		_, err = b.Update(ctx, strings.TrimSpace(r.FormValue("activity_id")), formFromRequest(r))
	case "delete":
		err = b.Delete(ctx, strings.TrimSpace(r.FormValue("activity_id")))
	default:
		http.Error(w, "Unknown board action", http.StatusNotFound)
		return
	}

	if errors.Is(err, board.ErrReadOnly) || errors.Is(err, board.ErrTeamLocked) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	message := ""
	if err != nil {
		message = actionErrorMessage(err)
		logger.Warn().Err(err).Str("team_id", team.ID).Str("action", action).Msg("Board action failed")
	}
	renderBoard(w, r, b, team, message)
}

func boardForRequest(w http.ResponseWriter, r *http.Request) (*board.Board, teamRef, bool) {
	logger := log.Ctx(r.Context())
	if store == nil || registry == nil {
		logger.Error().Msg("Board handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, teamRef{}, false
	}
	teamID, err := apiutil.PathID(r, "team_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, teamRef{}, false
	}
	if !apiutil.RequireTeamAccess(w, r, teamID) {
		return nil, teamRef{}, false
	}
	user := authz.UserFromContext(r.Context())

	team, err := store.GetTeam(r.Context(), teamID)
	if err != nil {
		writeTeamError(w, r, err, teamID)
		return nil, teamRef{}, false
	}

	b, err := registry.Acquire(r.Context(), boardKey(r, user), user, teamID)
	if err != nil {
		logger.Error().Err(err).Str("team_id", teamID).Msg("Failed to open board")
		http.Error(w, "Failed to load schedule", http.StatusInternalServerError)
		return nil, teamRef{}, false
	}
	return b, teamRef{ID: team.ID, Name: team.Name}, true
}

type teamRef struct {
	ID   string
	Name string
}

// boardKey prefers the browser session; token clients share one board per user.
func boardKey(r *http.Request, user *authz.AuthUser) string {
	if key := auth.SessionKey(r); key != "" {
		return "session:" + key
	}
	return "user:" + user.ID
}

func boardView(r *http.Request, b *board.Board, team teamRef, message string) scheduletempl.BoardView {
	view := scheduletempl.BoardView{
		Snapshot:  b.Snapshot(),
		TeamName:  team.Name,
		CSRFToken: csrfToken(r),
		Error:     message,
	}
	if view.Snapshot.Permission == board.PermissionAdmin {
		if teams, err := store.ListTeams(r.Context()); err == nil {
			view.Teams = teamOptions(teams)
		} else {
			log.Ctx(r.Context()).Warn().Err(err).Msg("Failed to list teams for switcher")
		}
	}
	return view
}

func teamOptions(teams []dbgen.Team) []scheduletempl.TeamOption {
	options := make([]scheduletempl.TeamOption, 0, len(teams))
	for _, team := range teams {
		options = append(options, scheduletempl.TeamOption{ID: team.ID, Name: team.Name})
	}
	return options
}

func renderBoard(w http.ResponseWriter, r *http.Request, b *board.Board, team teamRef, message string) {
	apiutil.RenderHTML(w, r, http.StatusOK, scheduletempl.Board(boardView(r, b, team, message)), "Failed to render board")
}

func setWeek(ctx context.Context, b *board.Board, r *http.Request) error {
	current := b.Snapshot().WeekStart
	switch shift := strings.TrimSpace(r.FormValue("shift")); shift {
	case "":
		return b.SetWeek(ctx, r.FormValue("week_start"))
	case "current":
		return b.SetWeek(ctx, grid.WeekStart(time.Now()))
	default:
		n, err := strconv.Atoi(shift)
		if err != nil {
			return board.ValidationError{Err: errors.New("shift must be a whole number of weeks")}
		}
		if current == "" {
			current = grid.WeekStart(time.Now())
		}
		next, err := grid.ShiftWeek(current, n)
		if err != nil {
			return board.ValidationError{Err: err}
		}
		return b.SetWeek(ctx, next)
	}
}

func formFromRequest(r *http.Request) board.Form {
	form := board.Form{
		Type:        models.ActivityType(strings.TrimSpace(r.FormValue("type"))),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Duration:    models.MinActivityDuration,
		OneOff:      r.FormValue("one_off") == "true" || r.FormValue("one_off") == "on",
	}
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		if d, err := strconv.ParseInt(raw, 10, 64); err == nil {
			form.Duration = d
		} else {
			form.Duration = 0
		}
	}
	return form
}

func actionErrorMessage(err error) string {
	var validation board.ValidationError
	var input sched.InputError
	switch {
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &input):
		return input.Error()
	case errors.Is(err, board.ErrNothingPending):
		return "That selection is no longer open."
	case errors.Is(err, board.ErrCellOccupied):
		return "That cell already has an activity."
	case errors.Is(err, board.ErrUnknownActivity), errors.Is(err, sched.ErrNotFound):
		return "That activity no longer exists."
	default:
		return "Could not save the change. Please try again."
	}
}

func writeTeamError(w http.ResponseWriter, r *http.Request, err error, teamID string) {
	if errors.Is(err, sched.ErrTeamNotFound) {
		http.Error(w, "Team not found", http.StatusNotFound)
		return
	}
	log.Ctx(r.Context()).Error().Err(err).Str("team_id", teamID).Msg("Failed to load team")
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// ForgetOnLogout drops the session's board before next signs the user out.
func ForgetOnLogout(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry != nil {
			if key := auth.SessionKey(r); key != "" {
				registry.Forget("session:" + key)
			}
		}
		next(w, r)
	}
}
