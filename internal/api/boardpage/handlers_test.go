package boardpage

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rosterforge/rosterforge/internal/api/authz"
	"github.com/rosterforge/rosterforge/internal/models"
)

var (
	adminUser   = &authz.AuthUser{ID: "u-admin", Username: "admin", Role: authz.RoleAdmin}
	managerUser = &authz.AuthUser{ID: "u-manager", Username: "coach", Role: authz.RoleManager, TeamID: "team-a"}
	playerUser  = &authz.AuthUser{ID: "u-player", Username: "jordan", Role: authz.RolePlayer, TeamID: "team-a", PlayerID: "player-1"}
)

func setupBoardPageTest(t *testing.T) {
	t.Helper()
	reg, s := newTestRegistry(t)

	prevStore, prevRegistry := store, registry
	t.Cleanup(func() {
		store, registry = prevStore, prevRegistry
	})
	store, registry = s, reg
}

func get(t *testing.T, handler http.HandlerFunc, target string, user *authz.AuthUser, teamID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if teamID != "" {
		req.SetPathValue("team_id", teamID)
	}
	if user != nil {
		req = req.WithContext(authz.ContextWithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func act(t *testing.T, user *authz.AuthUser, teamID, action string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/teams/"+teamID+"/schedule/board/"+action, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetPathValue("team_id", teamID)
	req.SetPathValue("action", action)
	req = req.WithContext(authz.ContextWithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	HandleBoardAction(rec, req)
	return rec
}

func cellValues(day, slot string) url.Values {
	return url.Values{"day": {day}, "slot": {slot}}
}

func TestHomeRedirects(t *testing.T) {
	setupBoardPageTest(t)

	rec := get(t, HandleHome, "/", nil, "")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous: %d %s", rec.Code, rec.Header().Get("Location"))
	}
	rec = get(t, HandleHome, "/", managerUser, "")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/teams/team-a/schedule" {
		t.Fatalf("manager: %d %s", rec.Code, rec.Header().Get("Location"))
	}
	rec = get(t, HandleHome, "/", adminUser, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Team B") {
		t.Fatalf("admin: %d", rec.Code)
	}
}

func TestBoardPageRequiresLogin(t *testing.T) {
	setupBoardPageTest(t)

	rec := get(t, HandleBoardPage, "/teams/team-a/schedule", nil, "team-a")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?next=%2Fteams%2Fteam-a%2Fschedule" {
		t.Fatalf("location %s", loc)
	}
}

func TestBoardPageAccess(t *testing.T) {
	setupBoardPageTest(t)

	if rec := get(t, HandleBoardPage, "/teams/team-b/schedule", managerUser, "team-b"); rec.Code != http.StatusForbidden {
		t.Fatalf("other team status %d", rec.Code)
	}
	if rec := get(t, HandleBoardPage, "/teams/team-z/schedule", adminUser, "team-z"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown team status %d", rec.Code)
	}
	rec := get(t, HandleBoardPage, "/teams/team-a/schedule", playerUser, "team-a")
	if rec.Code != http.StatusOK {
		t.Fatalf("player status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `data-permission="viewer"`) {
		t.Fatalf("player did not get a read-only board")
	}
}

func TestBoardPageWeekQuery(t *testing.T) {
	setupBoardPageTest(t)

	rec := get(t, HandleBoardPage, "/teams/team-a/schedule?week_start=2024-01-01", managerUser, "team-a")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Week of 2024-01-01") {
		t.Fatalf("week not applied")
	}
	if rec := get(t, HandleBoardPage, "/teams/team-a/schedule?week_start=2024-01-02", managerUser, "team-a"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad week status %d", rec.Code)
	}
}

func TestDragCreateThroughActions(t *testing.T) {
	setupBoardPageTest(t)

	act(t, managerUser, "team-a", "week", url.Values{"week_start": {""}})
	act(t, managerUser, "team-a", "type", url.Values{"type": {"official_match"}})
	act(t, managerUser, "team-a", "pointerdown", cellValues("Monday", "7:00 PM"))
	act(t, managerUser, "team-a", "pointerenter", cellValues("Tuesday", "8:00 PM"))
	rec := act(t, managerUser, "team-a", "pointerup", nil)
	if !strings.Contains(rec.Body.String(), "Add 4 activities") {
		t.Fatalf("bulk modal missing: %s", rec.Body.String())
	}

	rec = act(t, managerUser, "team-a", "confirm-create", url.Values{"type": {"official_match"}, "title": {"League night"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "4 of 4 created") {
		t.Fatalf("report missing: %s", rec.Body.String())
	}

	activities, err := store.ListActivities(context.Background(), "team-a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(activities) != 4 {
		t.Fatalf("stored %d activities", len(activities))
	}
	for _, a := range activities {
		if a.Title != "League night" || a.Duration != 1 || a.Type != models.ActivityOfficialMatch {
			t.Fatalf("unexpected activity: %+v", a)
		}
	}
}

func TestDragDeleteThroughActions(t *testing.T) {
	setupBoardPageTest(t)
	for _, slot := range []string{"1:00 PM", "2:00 PM"} {
		if _, err := store.CreateActivity(context.Background(), models.ActivityInput{
			TeamID: "team-a", Type: models.ActivityPractice, Title: "Practice", DayOfWeek: 2, TimeSlot: slot, Duration: 1,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	act(t, managerUser, "team-a", "mode", url.Values{"mode": {"delete"}})
	act(t, managerUser, "team-a", "pointerdown", cellValues("Wednesday", "1:00 PM"))
	act(t, managerUser, "team-a", "pointerenter", cellValues("Wednesday", "2:00 PM"))
	rec := act(t, managerUser, "team-a", "pointerup", nil)
	if !strings.Contains(rec.Body.String(), "Remove 2 selected activities?") {
		t.Fatalf("delete confirm missing: %s", rec.Body.String())
	}
	rec = act(t, managerUser, "team-a", "confirm-delete", nil)
	if !strings.Contains(rec.Body.String(), "2 of 2 deleted") {
		t.Fatalf("report missing")
	}
	remaining, _ := store.ListActivities(context.Background(), "team-a")
	if len(remaining) != 0 {
		t.Fatalf("remaining: %+v", remaining)
	}
}

func TestCreateOneValidationShowsError(t *testing.T) {
	setupBoardPageTest(t)

	act(t, managerUser, "team-a", "open", cellValues("Friday", "6:00 PM"))
	rec := act(t, managerUser, "team-a", "create-one", url.Values{"type": {"practice"}, "title": {"  "}, "duration": {"2"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "title is required") {
		t.Fatalf("validation message missing: %s", rec.Body.String())
	}
	activities, _ := store.ListActivities(context.Background(), "team-a")
	if len(activities) != 0 {
		t.Fatalf("invalid create reached the store")
	}
}

func TestViewerCannotWrite(t *testing.T) {
	setupBoardPageTest(t)

	rec := act(t, playerUser, "team-a", "confirm-delete", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestAdminSwitchesTeam(t *testing.T) {
	setupBoardPageTest(t)

	rec := act(t, adminUser, "team-a", "team", url.Values{"team": {"team-b"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if got := rec.Header().Get("HX-Push-Url"); got != "/teams/team-b/schedule" {
		t.Fatalf("push url %q", got)
	}
	if !strings.Contains(rec.Body.String(), `data-team-id="team-b"`) {
		t.Fatalf("board not switched")
	}
}

func TestUnknownAction(t *testing.T) {
	setupBoardPageTest(t)
	if rec := act(t, managerUser, "team-a", "explode", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestEditorClickWithoutDragOpensModal(t *testing.T) {
	setupBoardPageTest(t)
	if _, err := store.CreateActivity(context.Background(), models.ActivityInput{
		TeamID: "team-a", Type: models.ActivityMeeting, Title: "VOD review", DayOfWeek: 2, TimeSlot: "3:00 PM", Duration: 1,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// board.js sends pointerdown then pointerup for a plain click.
	act(t, managerUser, "team-a", "pointerdown", cellValues("Wednesday", "3:00 PM"))
	rec := act(t, managerUser, "team-a", "pointerup", nil)
	body := rec.Body.String()
	if !strings.Contains(body, "data-modal") || !strings.Contains(body, "/board/update") {
		t.Fatalf("occupied click did not open the editor: %s", body)
	}
	act(t, managerUser, "team-a", "dismiss", nil)

	act(t, managerUser, "team-a", "pointerdown", cellValues("Friday", "6:00 PM"))
	rec = act(t, managerUser, "team-a", "pointerup", nil)
	body = rec.Body.String()
	if !strings.Contains(body, "data-modal") || !strings.Contains(body, "/board/create-one") {
		t.Fatalf("unarmed empty click did not open single create: %s", body)
	}
}

func TestBoardPageServesFragmentToHtmx(t *testing.T) {
	setupBoardPageTest(t)

	req := httptest.NewRequest(http.MethodGet, "/teams/team-a/schedule", nil)
	req.SetPathValue("team_id", "team-a")
	req.Header.Set("HX-Request", "true")
	req = req.WithContext(authz.ContextWithUser(req.Context(), managerUser))
	rec := httptest.NewRecorder()
	HandleBoardPage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, `<div id="board"`) || strings.Contains(body, "<html") {
		t.Fatalf("expected bare board fragment, got: %.120s", body)
	}
}
