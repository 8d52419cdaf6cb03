package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rosterforge/rosterforge/internal/grid"
	"github.com/rosterforge/rosterforge/internal/models"
)

const testTeamID = "6f1c2d9e-0000-4000-8000-000000000001"

type fakeBackend struct {
	mu         sync.Mutex
	activities []models.Activity
	nextID     int
	createErr  func(models.ActivityInput) error
	deleteErr  func(id string) error
	creates    int32
	deletes    int32
	avail      []models.PlayerWeeklyAvailability
}

func (f *fakeBackend) ListActivities(ctx context.Context, teamID string) ([]models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Activity(nil), f.activities...), nil
}

func (f *fakeBackend) ListAvailability(ctx context.Context, teamID, weekStart string) ([]models.PlayerWeeklyAvailability, error) {
	return f.avail, nil
}

func (f *fakeBackend) CreateActivity(ctx context.Context, in models.ActivityInput) (models.Activity, error) {
	atomic.AddInt32(&f.creates, 1)
	if f.createErr != nil {
		if err := f.createErr(in); err != nil {
			return models.Activity{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a := models.Activity{
		ID:           fmt.Sprintf("act-%d", f.nextID),
		TeamID:       in.TeamID,
		Type:         in.Type,
		Title:        in.Title,
		Description:  in.Description,
		DayOfWeek:    in.DayOfWeek,
		ActivityDate: in.ActivityDate,
		TimeSlot:     in.TimeSlot,
		Duration:     in.Duration,
	}
	f.activities = append(f.activities, a)
	return a, nil
}

func (f *fakeBackend) UpdateActivity(ctx context.Context, id string, in models.ActivityInput) (models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.activities {
		if f.activities[i].ID == id {
			f.activities[i].Title = in.Title
			f.activities[i].Type = in.Type
			f.activities[i].Description = in.Description
			f.activities[i].Duration = in.Duration
			f.activities[i].ActivityDate = in.ActivityDate
			return f.activities[i], nil
		}
	}
	return models.Activity{}, errors.New("not found")
}

func (f *fakeBackend) DeleteActivity(ctx context.Context, id string) error {
	atomic.AddInt32(&f.deletes, 1)
	if f.deleteErr != nil {
		if err := f.deleteErr(id); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.activities {
		if f.activities[i].ID == id {
			f.activities = append(f.activities[:i], f.activities[i+1:]...)
			break
		}
	}
	return nil
}

func newTestBoard(t *testing.T, backend *fakeBackend, permission Permission) *Board {
	t.Helper()
	b, err := New(backend, Config{
		TeamID:     testTeamID,
		Permission: permission,
		Now:        func() time.Time { return time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new board: %v", err)
	}
	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return b
}

func drag(b *Board, fromDay, fromSlot, toDay, toSlot string) Pending {
	b.PointerDown(fromDay, fromSlot)
	b.PointerEnter(toDay, toSlot)
	return b.PointerUp()
}

func TestBoard_BulkCreateRectangleSkipsOccupied(t *testing.T) {
	backend := &fakeBackend{activities: []models.Activity{
		{ID: "existing", TeamID: testTeamID, Type: models.ActivityMeeting, Title: "Review", DayOfWeek: 1, TimeSlot: "4:00 PM", Duration: 1},
	}}
	b := newTestBoard(t, backend, PermissionManager)
	if err := b.SelectType(models.ActivityPractice); err != nil {
		t.Fatalf("select type: %v", err)
	}

	pending := drag(b, "Monday", "3:00 PM", "Wednesday", "5:00 PM")
	if pending.Kind != PendingBulkCreate {
		t.Fatalf("expected bulk create, got %v", pending.Kind)
	}
	if len(pending.Cells) != 8 {
		t.Fatalf("expected 8 cells, got %d", len(pending.Cells))
	}
	if pending.Form.Title != "Practice" {
		t.Fatalf("default title: %q", pending.Form.Title)
	}

	report, err := b.ConfirmCreate(context.Background(), pending.Form)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if report.Succeeded != 8 || report.Failed != 0 {
		t.Fatalf("report: %+v", report)
	}
	if got := len(b.Activities()); got != 9 {
		t.Fatalf("expected 9 activities, got %d", got)
	}
	for _, a := range b.Activities() {
		if a.ID != "existing" && a.Duration != 1 {
			t.Fatalf("bulk activity duration: %d", a.Duration)
		}
	}
}

func TestBoard_BulkCreatePartialFailure(t *testing.T) {
	var calls int32
	backend := &fakeBackend{createErr: func(in models.ActivityInput) error {
		if atomic.AddInt32(&calls, 1) > 3 {
			return errors.New("rejected")
		}
		return nil
	}}
	b := newTestBoard(t, backend, PermissionManager)
	_ = b.SelectType(models.ActivityGroupTraining)

	pending := drag(b, "Monday", "1:00 PM", "Friday", "1:00 PM")
	if len(pending.Cells) != 5 {
		t.Fatalf("expected 5 cells, got %d", len(pending.Cells))
	}

	report, err := b.ConfirmCreate(context.Background(), pending.Form)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if report.Succeeded != 3 || report.Failed != 2 || len(report.Failures) != 2 {
		t.Fatalf("report: %+v", report)
	}
	if got := len(b.Activities()); got != 3 {
		t.Fatalf("expected 3 local activities, got %d", got)
	}
	snap := b.Snapshot()
	if snap.LastReport == nil || snap.LastReport.Failed != 2 {
		t.Fatalf("last report not surfaced: %+v", snap.LastReport)
	}
}

func TestBoard_BulkDeleteKeepsFailedItems(t *testing.T) {
	backend := &fakeBackend{
		activities: []models.Activity{
			{ID: "a", TeamID: testTeamID, Type: models.ActivityPractice, Title: "A", DayOfWeek: 0, TimeSlot: "3:00 PM", Duration: 1},
			{ID: "b", TeamID: testTeamID, Type: models.ActivityPractice, Title: "B", DayOfWeek: 2, TimeSlot: "5:00 PM", Duration: 1},
			{ID: "outside", TeamID: testTeamID, Type: models.ActivityPractice, Title: "C", DayOfWeek: 4, TimeSlot: "5:00 PM", Duration: 1},
		},
		deleteErr: func(id string) error {
			if id == "b" {
				return errors.New("server error")
			}
			return nil
		},
	}
	b := newTestBoard(t, backend, PermissionManager)
	_ = b.SetMode(ModeDelete)

	pending := drag(b, "Monday", "3:00 PM", "Wednesday", "5:00 PM")
	if pending.Kind != PendingBulkDelete {
		t.Fatalf("expected bulk delete, got %v", pending.Kind)
	}
	if len(pending.ActivityIDs) != 2 {
		t.Fatalf("expected 2 ids, got %v", pending.ActivityIDs)
	}

	report, err := b.ConfirmDelete(context.Background())
	if err != nil {
		t.Fatalf("confirm delete: %v", err)
	}
	if report.Succeeded != 1 || report.Failed != 1 {
		t.Fatalf("report: %+v", report)
	}

	remaining := map[string]bool{}
	for _, a := range b.Activities() {
		remaining[a.ID] = true
	}
	if remaining["a"] || !remaining["b"] || !remaining["outside"] {
		t.Fatalf("remaining: %v", remaining)
	}
}

func TestBoard_NoDoubleSubmit(t *testing.T) {
	backend := &fakeBackend{}
	b := newTestBoard(t, backend, PermissionManager)
	_ = b.SelectType(models.ActivityPractice)

	b.PointerDown("Monday", "1:00 PM")
	b.PointerEnter("Tuesday", "2:00 PM")
	first := b.PointerUp()
	second := b.PointerUp()
	if first.Kind != PendingBulkCreate || len(first.Cells) != 4 {
		t.Fatalf("first: %+v", first)
	}
	if second.Kind != PendingBulkCreate || len(second.Cells) != 4 {
		t.Fatalf("second pointer-up changed pending: %+v", second)
	}

	if _, err := b.ConfirmCreate(context.Background(), first.Form); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := b.ConfirmCreate(context.Background(), first.Form); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("second confirm should find nothing pending, got %v", err)
	}
	if got := atomic.LoadInt32(&backend.creates); got != 4 {
		t.Fatalf("expected 4 creates, got %d", got)
	}
}

func TestBoard_ConcurrentConfirmDispatchesOnce(t *testing.T) {
	backend := &fakeBackend{}
	b := newTestBoard(t, backend, PermissionAdmin)
	_ = b.SelectType(models.ActivityTournament)
	pending := drag(b, "Saturday", "6:00 PM", "Sunday", "8:00 PM")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = b.ConfirmCreate(context.Background(), pending.Form)
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&backend.creates); got != 6 {
		t.Fatalf("expected 6 creates, got %d", got)
	}
}

func TestBoard_ValidationBeforeDispatch(t *testing.T) {
	backend := &fakeBackend{}
	b := newTestBoard(t, backend, PermissionManager)
	_ = b.SelectType(models.ActivityMeeting)
	pending := drag(b, "Monday", "1:00 PM", "Monday", "2:00 PM")

	form := pending.Form
	form.Title = "   "
	_, err := b.ConfirmCreate(context.Background(), form)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if atomic.LoadInt32(&backend.creates) != 0 {
		t.Fatalf("backend was called despite validation failure")
	}
	if b.Snapshot().Pending.Kind != PendingBulkCreate {
		t.Fatalf("modal should stay open after validation failure")
	}
}

func TestBoard_UnarmedPressFallsThroughToClick(t *testing.T) {
	backend := &fakeBackend{}
	b := newTestBoard(t, backend, PermissionManager)

	if b.PointerDown("Tuesday", "7:00 PM") {
		t.Fatalf("unarmed press should not start a drag")
	}
	pending := b.PointerUp()
	if pending.Kind != PendingSingleCreate {
		t.Fatalf("expected single create from release, got %v", pending.Kind)
	}
	if len(pending.Cells) != 1 || pending.Cells[0].Day != "Tuesday" || pending.Cells[0].Slot != "7:00 PM" {
		t.Fatalf("cells: %+v", pending.Cells)
	}

	pending.Form.Duration = 3
	activity, err := b.CreateOne(context.Background(), pending.Form)
	if err != nil {
		t.Fatalf("create one: %v", err)
	}
	if activity.Duration != 3 || activity.TimeSlot != "7:00 PM" || activity.DayOfWeek != 1 {
		t.Fatalf("activity: %+v", activity)
	}
}

func TestBoard_ArmedClickOpensSingleCreate(t *testing.T) {
	backend := &fakeBackend{}
	b := newTestBoard(t, backend, PermissionManager)
	_ = b.SelectType(models.ActivityOfficialMatch)

	if !b.PointerDown("Friday", "9:00 PM") {
		t.Fatalf("armed press on empty cell should anchor")
	}
	pending := b.PointerUp()
	if pending.Kind != PendingSingleCreate {
		t.Fatalf("expected single create, got %v", pending.Kind)
	}
	if pending.Form.Type != models.ActivityOfficialMatch || pending.Form.Title != "Official Match" {
		t.Fatalf("form: %+v", pending.Form)
	}
}

func TestBoard_OpenOccupiedEdits(t *testing.T) {
	backend := &fakeBackend{activities: []models.Activity{
		{ID: "m1", TeamID: testTeamID, Type: models.ActivityMeeting, Title: "VOD review", DayOfWeek: 3, TimeSlot: "8:00 PM", Duration: 2},
	}}
	b := newTestBoard(t, backend, PermissionManager)

	pending, err := b.Open("Thursday", "8:00 PM")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if pending.Kind != PendingEdit || pending.Activity.ID != "m1" {
		t.Fatalf("pending: %+v", pending)
	}
	form := pending.Form
	form.Title = "Scrim review"
	updated, err := b.Update(context.Background(), "m1", form)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Scrim review" {
		t.Fatalf("updated: %+v", updated)
	}
	if b.Snapshot().Pending.Kind != PendingNone {
		t.Fatalf("edit modal should close after update")
	}
	if err := b.Delete(context.Background(), "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(b.Activities()) != 0 {
		t.Fatalf("activity not removed")
	}
}

func TestBoard_PressOnOccupiedCellOpensEditor(t *testing.T) {
	backend := &fakeBackend{activities: []models.Activity{
		{ID: "m1", TeamID: testTeamID, Type: models.ActivityMeeting, Title: "VOD review", DayOfWeek: 2, TimeSlot: "3:00 PM", Duration: 1},
	}}
	b := newTestBoard(t, backend, PermissionManager)
	_ = b.SelectType(models.ActivityPractice)

	if b.PointerDown("Wednesday", "3:00 PM") {
		t.Fatalf("create drag anchored on an occupied cell")
	}
	pending := b.PointerUp()
	if pending.Kind != PendingEdit || pending.Activity.ID != "m1" {
		t.Fatalf("expected edit modal, got %+v", pending)
	}
	b.DismissPending()
	if again := b.PointerUp(); again.Kind != PendingNone {
		t.Fatalf("second release reopened %v", again.Kind)
	}
}

func TestBoard_DeleteModePressOnEmptyCellOpensCreate(t *testing.T) {
	b := newTestBoard(t, &fakeBackend{}, PermissionManager)
	if err := b.SetMode(ModeDelete); err != nil {
		t.Fatalf("mode: %v", err)
	}
	b.PointerDown("Friday", "6:00 PM")
	if pending := b.PointerUp(); pending.Kind != PendingSingleCreate {
		t.Fatalf("expected single create, got %v", pending.Kind)
	}
}

func TestBoard_RefusedPressMovedOffOpensNothing(t *testing.T) {
	b := newTestBoard(t, &fakeBackend{}, PermissionManager)
	b.PointerDown("Friday", "6:00 PM")
	b.PointerEnter("Friday", "7:00 PM")
	if pending := b.PointerUp(); pending.Kind != PendingNone {
		t.Fatalf("release away from the press opened %v", pending.Kind)
	}

	b.PointerDown("Friday", "6:00 PM")
	b.Cancel()
	if pending := b.PointerUp(); pending.Kind != PendingNone {
		t.Fatalf("release after cancel opened %v", pending.Kind)
	}
}

func TestBoard_DatedOneOffCreate(t *testing.T) {
	backend := &fakeBackend{activities: []models.Activity{
		{ID: "weekly", TeamID: testTeamID, Type: models.ActivityPractice, Title: "Weekly", DayOfWeek: 0, TimeSlot: "3:00 PM", Duration: 1},
	}}
	b, err := New(backend, Config{TeamID: testTeamID, Permission: PermissionManager, WeekStart: "2025-03-03"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	_ = b.SelectType(models.ActivityTournament)

	pending := drag(b, "Monday", "4:00 PM", "Tuesday", "4:00 PM")
	form := pending.Form
	form.OneOff = true
	if _, err := b.ConfirmCreate(context.Background(), form); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	snap := b.Snapshot()
	monday := snap.Rows[3][0]
	if monday.Activity == nil || monday.Activity.ActivityDate != "2025-03-03" {
		t.Fatalf("monday cell: %+v", monday.Activity)
	}
	if snap.Rows[2][0].Activity == nil || snap.Rows[2][0].Activity.ID != "weekly" {
		t.Fatalf("recurring activity missing")
	}

	if err := b.SetWeek(context.Background(), "2025-03-10"); err != nil {
		t.Fatalf("set week: %v", err)
	}
	if b.Snapshot().Rows[3][0].Activity != nil {
		t.Fatalf("dated activity leaked into another week")
	}
}

func TestBoard_ViewerIsReadOnly(t *testing.T) {
	backend := &fakeBackend{}
	b := newTestBoard(t, backend, PermissionViewer)
	_ = b.SelectType(models.ActivityPractice)
	if b.PointerDown("Monday", "1:00 PM") {
		t.Fatalf("viewer started a drag")
	}
	pending, _ := b.Open("Monday", "1:00 PM")
	if pending.Kind != PendingNone {
		t.Fatalf("viewer opened %v", pending.Kind)
	}
	if err := b.Delete(context.Background(), "x"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

func TestBoard_SetTeamRequiresAdmin(t *testing.T) {
	backend := &fakeBackend{}
	manager := newTestBoard(t, backend, PermissionManager)
	if err := manager.SetTeam(context.Background(), "other"); !errors.Is(err, ErrTeamLocked) {
		t.Fatalf("expected ErrTeamLocked, got %v", err)
	}
	admin := newTestBoard(t, backend, PermissionAdmin)
	if err := admin.SetTeam(context.Background(), "other"); err != nil {
		t.Fatalf("admin set team: %v", err)
	}
	if admin.TeamID() != "other" {
		t.Fatalf("team: %s", admin.TeamID())
	}
}

func TestBoard_SnapshotAvailabilityAndSelection(t *testing.T) {
	backend := &fakeBackend{avail: []models.PlayerWeeklyAvailability{
		{PlayerID: "p1", Availability: models.WeeklyHours{"monday": {"13": true}}},
		{PlayerID: "p2", Availability: models.WeeklyHours{"monday": {"13": true}}},
	}}
	b := newTestBoard(t, backend, PermissionManager)
	_ = b.SelectType(models.ActivityPractice)
	b.PointerDown("Monday", "1:00 PM")
	b.PointerEnter("Monday", "2:00 PM")

	snap := b.Snapshot()
	if !snap.Dragging {
		t.Fatalf("expected dragging")
	}
	if snap.Rows[0][0].Available != 2 {
		t.Fatalf("available: %d", snap.Rows[0][0].Available)
	}
	if !snap.Rows[0][0].Selected || !snap.Rows[1][0].Selected || snap.Rows[0][1].Selected {
		t.Fatalf("selection highlight wrong")
	}
	if snap.PlayerCount != 2 {
		t.Fatalf("player count: %d", snap.PlayerCount)
	}

	b.Cancel()
	if b.Snapshot().Dragging {
		t.Fatalf("cancel did not end drag")
	}
}

func TestBoard_ApplyRemoteChange(t *testing.T) {
	backend := &fakeBackend{}
	b := newTestBoard(t, backend, PermissionManager)
	remote := models.Activity{ID: "r1", TeamID: testTeamID, Type: models.ActivityPractice, Title: "Remote", DayOfWeek: 5, TimeSlot: "1:00 PM", Duration: 1}
	b.Apply(remote, false)
	if len(b.Activities()) != 1 {
		t.Fatalf("apply create")
	}
	b.Apply(models.Activity{ID: "x", TeamID: "another-team"}, false)
	if len(b.Activities()) != 1 {
		t.Fatalf("foreign team change applied")
	}
	b.Apply(remote, true)
	if len(b.Activities()) != 0 {
		t.Fatalf("apply delete")
	}
}

func TestNew_RequiresTeam(t *testing.T) {
	if _, err := New(&fakeBackend{}, Config{}); !errors.Is(err, ErrTeamRequired) {
		t.Fatalf("expected ErrTeamRequired, got %v", err)
	}
}

func TestBoard_CellsUseLayoutDates(t *testing.T) {
	b, err := New(&fakeBackend{}, Config{TeamID: testTeamID, Permission: PermissionManager, WeekStart: "2025-03-03"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	snap := b.Snapshot()
	if snap.Rows[0][6].Cell.Date != "2025-03-09" {
		t.Fatalf("sunday date: %s", snap.Rows[0][6].Cell.Date)
	}
	if snap.Rows[11][0].Cell.Slot != grid.TimeSlots[11] {
		t.Fatalf("last slot: %s", snap.Rows[11][0].Cell.Slot)
	}
}

// echoBackend reports every create back to the board the way the server's change feed does,
// before the create call returns.
type echoBackend struct {
	fakeBackend
	board *Board
}

func (e *echoBackend) CreateActivity(ctx context.Context, in models.ActivityInput) (models.Activity, error) {
	a, err := e.fakeBackend.CreateActivity(ctx, in)
	if err == nil && e.board != nil {
		e.board.Apply(a, false)
	}
	return a, err
}

func TestBoard_EchoedCreateIsNotDuplicated(t *testing.T) {
	backend := &echoBackend{}
	b, err := New(backend, Config{TeamID: testTeamID, Permission: PermissionManager})
	if err != nil {
		t.Fatalf("new board: %v", err)
	}
	backend.board = b
	if err := b.SelectType(models.ActivityPractice); err != nil {
		t.Fatalf("select type: %v", err)
	}

	pending := drag(b, "Monday", "1:00 PM", "Tuesday", "2:00 PM")
	if pending.Kind != PendingBulkCreate {
		t.Fatalf("pending: %v", pending.Kind)
	}
	if _, err := b.ConfirmCreate(context.Background(), pending.Form); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got := len(b.Activities()); got != 4 {
		t.Fatalf("expected 4 activities, got %d", got)
	}
}

func TestBoard_RefreshAvailability(t *testing.T) {
	backend := &fakeBackend{}
	b := newTestBoard(t, backend, PermissionViewer)
	backend.avail = []models.PlayerWeeklyAvailability{
		{PlayerID: "p1", Availability: models.WeeklyHours{"monday": {"13": true}}},
	}
	if err := b.RefreshAvailability(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if b.Snapshot().PlayerCount != 1 {
		t.Fatalf("availability not refreshed")
	}
}
