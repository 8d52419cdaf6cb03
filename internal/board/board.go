// Package board is the weekly schedule grid widget: it owns the local activity list for one
// team, the drag-selection machine, pending confirmations, and the bulk dispatcher.
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/grid"
	"github.com/rosterforge/rosterforge/internal/models"
)

var (
	ErrReadOnly        = errors.New("board is read-only")
	ErrTeamLocked      = errors.New("team cannot be changed from this board")
	ErrNothingPending  = errors.New("nothing is waiting for confirmation")
	ErrTeamRequired    = errors.New("team is required")
	ErrCellOccupied    = errors.New("cell already has an activity")
	ErrUnknownActivity = errors.New("activity is not on this board")
)

// ValidationError is returned before any backend call is made.
type ValidationError struct {
	Err error
}

func (e ValidationError) Error() string {
	return e.Err.Error()
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// Backend is the remote collaborator holding activities and availability.
type Backend interface {
	Writer
	ListActivities(ctx context.Context, teamID string) ([]models.Activity, error)
	UpdateActivity(ctx context.Context, id string, input models.ActivityInput) (models.Activity, error)
	ListAvailability(ctx context.Context, teamID, weekStart string) ([]models.PlayerWeeklyAvailability, error)
}

// Permission selects which variant of the board is in use.
type Permission string

const (
	// PermissionAdmin can edit any team and switch between them.
	PermissionAdmin Permission = "admin"
	// PermissionManager edits a single fixed team.
	PermissionManager Permission = "manager"
	// PermissionViewer can only look.
	PermissionViewer Permission = "viewer"
)

type Config struct {
	TeamID      string
	Permission  Permission
	WeekStart   string
	MaxInFlight int
	Now         func() time.Time
}

// Form is the content of the create/edit modal.
type Form struct {
	Type        models.ActivityType
	Title       string
	Description string
	Duration    int64
	// OneOff pins new activities to the displayed week's dates instead of repeating weekly.
	OneOff bool
}

func (f Form) input(teamID string, cell grid.Cell) (models.ActivityInput, error) {
	dayIdx, err := grid.DayIndex(cell.Day)
	if err != nil {
		return models.ActivityInput{}, err
	}
	in := models.ActivityInput{
		TeamID:      teamID,
		Type:        f.Type,
		Title:       f.Title,
		Description: f.Description,
		DayOfWeek:   dayIdx,
		TimeSlot:    cell.Slot,
		Duration:    f.Duration,
	}
	if f.OneOff && cell.Date != "" {
		in.ActivityDate = cell.Date
	}
	in.Normalize()
	return in, nil
}

func defaultForm(t models.ActivityType) Form {
	if !t.Valid() {
		t = models.ActivityPractice
	}
	return Form{Type: t, Title: t.DisplayName(), Duration: models.MinActivityDuration}
}

// PendingKind names the modal or dialog currently open.
type PendingKind int

const (
	PendingNone PendingKind = iota
	PendingBulkCreate
	PendingBulkDelete
	PendingSingleCreate
	PendingEdit
)

// Pending is a confirmation waiting on the user.
type Pending struct {
	Kind        PendingKind
	Cells       []grid.Cell
	ActivityIDs []string
	Form        Form
	Activity    models.Activity
}

// CellView is the render model for one cell.
type CellView struct {
	Cell      grid.Cell
	Activity  *models.Activity
	Selected  bool
	Available int
}

// Snapshot is a consistent copy of the board for rendering.
type Snapshot struct {
	TeamID       string
	Permission   Permission
	WeekStart    string
	Mode         Mode
	SelectedType models.ActivityType
	Dragging     bool
	Pending      Pending
	LastReport   *BatchReport
	Rows         [][]CellView
	Activities   []models.Activity
	PlayerCount  int
}

// Board is one schedule grid. All methods are safe for concurrent use.
type Board struct {
	mu sync.Mutex

	backend    Backend
	dispatcher *Dispatcher
	selector   *Selector
	permission Permission
	now        func() time.Time

	teamID         string
	layout         grid.Layout
	activities     []models.Activity
	availabilities []models.PlayerWeeklyAvailability
	mode           Mode
	selectedType   models.ActivityType
	pending        Pending
	lastReport     *BatchReport
	// press is a cell pressed without starting a drag. Releasing on it is a click.
	press    grid.Cell
	hasPress bool
}

func New(backend Backend, cfg Config) (*Board, error) {
	if backend == nil {
		return nil, errors.New("board requires a backend")
	}
	if strings.TrimSpace(cfg.TeamID) == "" {
		return nil, ErrTeamRequired
	}
	switch cfg.Permission {
	case PermissionAdmin, PermissionManager, PermissionViewer:
	case "":
		cfg.Permission = PermissionViewer
	default:
		return nil, fmt.Errorf("unknown permission %q", cfg.Permission)
	}
	layout, err := grid.NewLayout(cfg.WeekStart)
	if err != nil {
		return nil, err
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Board{
		backend:    backend,
		dispatcher: NewDispatcher(backend, cfg.MaxInFlight),
		selector:   NewSelector(),
		permission: cfg.Permission,
		now:        now,
		teamID:     strings.TrimSpace(cfg.TeamID),
		layout:     layout,
		mode:       ModeCreate,
	}, nil
}

// Load fetches activities and availability for the current team and week.
func (b *Board) Load(ctx context.Context) error {
	b.mu.Lock()
	teamID := b.teamID
	week := b.availabilityWeek()
	b.mu.Unlock()

	activities, err := b.backend.ListActivities(ctx, teamID)
	if err != nil {
		return fmt.Errorf("load activities: %w", err)
	}
	availabilities, err := b.backend.ListAvailability(ctx, teamID, week)
	if err != nil {
		// The headcount overlay is optional; the grid still works without it.
		log.Ctx(ctx).Warn().Err(err).Str("team_id", teamID).Str("week_start", week).Msg("Failed to load player availability")
		availabilities = nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.teamID != teamID {
		return nil
	}
	b.activities = activities
	b.availabilities = availabilities
	b.selector.Cancel()
	b.hasPress = false
	return nil
}

func (b *Board) availabilityWeek() string {
	if ws := b.layout.WeekStart(); ws != "" {
		return ws
	}
	return grid.WeekStart(b.now())
}

// SetTeam switches the board to another team. Only admin boards can do this.
func (b *Board) SetTeam(ctx context.Context, teamID string) error {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return ErrTeamRequired
	}
	b.mu.Lock()
	if b.permission != PermissionAdmin {
		b.mu.Unlock()
		return ErrTeamLocked
	}
	b.teamID = teamID
	b.activities = nil
	b.availabilities = nil
	b.pending = Pending{}
	b.lastReport = nil
	b.selector.Cancel()
	b.hasPress = false
	b.mu.Unlock()
	return b.Load(ctx)
}

// SetWeek changes the displayed week; an empty week shows the recurring view.
func (b *Board) SetWeek(ctx context.Context, weekStart string) error {
	layout, err := grid.NewLayout(strings.TrimSpace(weekStart))
	if err != nil {
		return ValidationError{Err: err}
	}
	b.mu.Lock()
	b.layout = layout
	b.pending = Pending{}
	b.selector.Cancel()
	b.hasPress = false
	teamID := b.teamID
	week := b.availabilityWeek()
	b.mu.Unlock()

	availabilities, err := b.backend.ListAvailability(ctx, teamID, week)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("team_id", teamID).Str("week_start", week).Msg("Failed to load player availability")
		availabilities = nil
	}
	b.mu.Lock()
	b.availabilities = availabilities
	b.mu.Unlock()
	return nil
}

func (b *Board) SetMode(mode Mode) error {
	if !mode.Valid() {
		return ValidationError{Err: fmt.Errorf("unknown mode %q", mode)}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = mode
	b.pending = Pending{}
	b.selector.Cancel()
	b.hasPress = false
	return nil
}

// SelectType arms create-mode drags with an activity type. An empty type disarms.
func (b *Board) SelectType(t models.ActivityType) error {
	if t != "" && !t.Valid() {
		return ValidationError{Err: fmt.Errorf("%w: %q", models.ErrUnknownActivityType, t)}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selectedType = t
	return nil
}

func (b *Board) view() View {
	return View{Layout: b.layout, Index: grid.NewIndex(b.activities)}
}

func (b *Board) resolve(day, slot string) (grid.Cell, error) {
	cell, err := b.layout.Resolve(day, slot)
	if err != nil {
		return grid.Cell{}, ValidationError{Err: err}
	}
	return cell, nil
}

// PointerDown starts a drag on the named cell. It reports whether a drag began. A press that
// cannot anchor a drag (occupied cell in create mode, no type armed, empty cell in delete
// mode) is remembered so the matching PointerUp opens the cell instead.
func (b *Board) PointerDown(day, slot string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hasPress = false
	if b.permission == PermissionViewer || b.pending.Kind != PendingNone {
		return false
	}
	cell, err := b.resolve(day, slot)
	if err != nil {
		return false
	}
	if b.selector.PointerDown(b.view(), b.mode, b.selectedType != "", cell) {
		return true
	}
	b.press, b.hasPress = cell, true
	return false
}

// PointerEnter extends the current drag. Moving off a remembered press drops it.
func (b *Board) PointerEnter(day, slot string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	cell, err := b.resolve(day, slot)
	if err != nil {
		return b.selector.State() != StateIdle
	}
	if b.hasPress && cell.Key() != b.press.Key() {
		b.hasPress = false
	}
	return b.selector.PointerEnter(b.view(), cell)
}

// PointerUp ends the drag and opens the matching confirmation. The drag state is reset
// before this returns, so repeated calls never open a second confirmation.
func (b *Board) PointerUp() Pending {
	b.mu.Lock()
	defer b.mu.Unlock()

	press, hadPress := b.press, b.hasPress
	b.hasPress = false

	release := b.selector.PointerUp()
	switch release.Kind {
	case ReleaseCreate:
		b.pending = Pending{Kind: PendingBulkCreate, Cells: release.Cells, Form: defaultForm(b.selectedType)}
	case ReleaseDelete:
		b.pending = Pending{Kind: PendingBulkDelete, ActivityIDs: release.ActivityIDs}
	case ReleaseClick:
		b.openLocked(release.Anchor)
	default:
		if hadPress && b.pending.Kind == PendingNone {
			b.openLocked(press)
		}
	}
	return b.pending
}

// Cancel abandons an in-progress drag, e.g. when the page loses focus.
func (b *Board) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selector.Cancel()
	b.hasPress = false
}

// Open is the click path: an empty cell opens the single-create modal and an occupied
// cell opens the edit modal.
func (b *Board) Open(day, slot string) (Pending, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selector.State() != StateIdle {
		return b.pending, nil
	}
	cell, err := b.resolve(day, slot)
	if err != nil {
		return Pending{}, err
	}
	b.openLocked(cell)
	return b.pending, nil
}

func (b *Board) openLocked(cell grid.Cell) {
	if activity, ok := grid.NewIndex(b.activities).Lookup(cell); ok {
		b.pending = Pending{
			Kind:     PendingEdit,
			Cells:    []grid.Cell{cell},
			Activity: activity,
			Form: Form{
				Type:        activity.Type,
				Title:       activity.Title,
				Description: activity.Description,
				Duration:    activity.Duration,
				OneOff:      activity.IsDated(),
			},
		}
		return
	}
	if b.permission == PermissionViewer {
		return
	}
	b.pending = Pending{Kind: PendingSingleCreate, Cells: []grid.Cell{cell}, Form: defaultForm(b.selectedType)}
}

// DismissPending closes whatever confirmation is open.
func (b *Board) DismissPending() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = Pending{}
}

func validateForm(f Form) error {
	if !f.Type.Valid() {
		return ValidationError{Err: fmt.Errorf("%w: %q", models.ErrUnknownActivityType, f.Type)}
	}
	if strings.TrimSpace(f.Title) == "" {
		return ValidationError{Err: models.ErrTitleRequired}
	}
	if f.Duration < models.MinActivityDuration || f.Duration > models.MaxActivityDuration {
		return ValidationError{Err: fmt.Errorf("duration must be between %d and %d hours", models.MinActivityDuration, models.MaxActivityDuration)}
	}
	return nil
}

// ConfirmCreate submits the bulk-create modal: one create per selected cell, each with
// duration 1. Only records the backend accepted are added to the board.
func (b *Board) ConfirmCreate(ctx context.Context, form Form) (BatchReport, error) {
	form.Duration = models.MinActivityDuration
	if err := validateForm(form); err != nil {
		return BatchReport{}, err
	}

	b.mu.Lock()
	if b.permission == PermissionViewer {
		b.mu.Unlock()
		return BatchReport{}, ErrReadOnly
	}
	if b.pending.Kind != PendingBulkCreate {
		b.mu.Unlock()
		return BatchReport{}, ErrNothingPending
	}
	cells := b.pending.Cells
	teamID := b.teamID
	b.pending = Pending{}

	items := make([]keyedInput, 0, len(cells))
	for _, cell := range cells {
		in, err := form.input(teamID, cell)
		if err != nil {
			continue
		}
		items = append(items, keyedInput{key: cell.Key(), input: in})
	}
	b.mu.Unlock()

	outcomes := b.dispatcher.CreateAll(ctx, items)
	report := newReport(ReleaseCreate, outcomes)

	b.mu.Lock()
	if b.teamID == teamID {
		for _, o := range outcomes {
			if o.OK() {
				b.upsertLocked(o.Activity)
			}
		}
	}
	b.lastReport = &report
	b.mu.Unlock()

	logBatch(ctx, teamID, report)
	return report, nil
}

// ConfirmDelete accepts the delete dialog and removes every marked activity whose delete
// actually succeeded.
func (b *Board) ConfirmDelete(ctx context.Context) (BatchReport, error) {
	b.mu.Lock()
	if b.permission == PermissionViewer {
		b.mu.Unlock()
		return BatchReport{}, ErrReadOnly
	}
	if b.pending.Kind != PendingBulkDelete {
		b.mu.Unlock()
		return BatchReport{}, ErrNothingPending
	}
	ids := b.pending.ActivityIDs
	teamID := b.teamID
	b.pending = Pending{}
	b.mu.Unlock()

	outcomes := b.dispatcher.DeleteAll(ctx, ids)
	report := newReport(ReleaseDelete, outcomes)

	deleted := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			deleted[o.Key] = struct{}{}
		}
	}

	b.mu.Lock()
	if b.teamID == teamID {
		b.removeLocked(deleted)
	}
	b.lastReport = &report
	b.mu.Unlock()

	logBatch(ctx, teamID, report)
	return report, nil
}

// CreateOne submits the single-cell create modal.
func (b *Board) CreateOne(ctx context.Context, form Form) (models.Activity, error) {
	if err := validateForm(form); err != nil {
		return models.Activity{}, err
	}

	b.mu.Lock()
	if b.permission == PermissionViewer {
		b.mu.Unlock()
		return models.Activity{}, ErrReadOnly
	}
	if b.pending.Kind != PendingSingleCreate || len(b.pending.Cells) != 1 {
		b.mu.Unlock()
		return models.Activity{}, ErrNothingPending
	}
	cell := b.pending.Cells[0]
	if grid.NewIndex(b.activities).Occupied(cell) {
		b.pending = Pending{}
		b.mu.Unlock()
		return models.Activity{}, ErrCellOccupied
	}
	teamID := b.teamID
	in, err := form.input(teamID, cell)
	if err != nil {
		b.mu.Unlock()
		return models.Activity{}, ValidationError{Err: err}
	}
	b.pending = Pending{}
	b.mu.Unlock()

	activity, err := b.backend.CreateActivity(ctx, in)
	if err != nil {
		return models.Activity{}, fmt.Errorf("create activity: %w", err)
	}

	b.mu.Lock()
	if b.teamID == teamID {
		b.upsertLocked(activity)
	}
	b.mu.Unlock()
	return activity, nil
}

// Update submits the edit modal for an existing activity.
func (b *Board) Update(ctx context.Context, id string, form Form) (models.Activity, error) {
	if err := validateForm(form); err != nil {
		return models.Activity{}, err
	}

	b.mu.Lock()
	if b.permission == PermissionViewer {
		b.mu.Unlock()
		return models.Activity{}, ErrReadOnly
	}
	current, ok := b.findLocked(id)
	if !ok {
		b.mu.Unlock()
		return models.Activity{}, ErrUnknownActivity
	}
	in := models.ActivityInput{
		Type:        form.Type,
		Title:       form.Title,
		Description: form.Description,
		DayOfWeek:   current.DayOfWeek,
		TimeSlot:    current.TimeSlot,
		Duration:    form.Duration,
	}
	if form.OneOff {
		in.ActivityDate = current.ActivityDate
		if in.ActivityDate == "" && b.layout.WeekStart() != "" {
			in.ActivityDate = grid.DateFor(b.layout.WeekStart(), current.DayOfWeek)
		}
	}
	in.Normalize()
	b.mu.Unlock()

	updated, err := b.backend.UpdateActivity(ctx, id, in)
	if err != nil {
		return models.Activity{}, fmt.Errorf("update activity: %w", err)
	}

	b.mu.Lock()
	if updated.TeamID == "" || updated.TeamID == b.teamID {
		b.upsertLocked(updated)
	}
	if b.pending.Kind == PendingEdit && b.pending.Activity.ID == id {
		b.pending = Pending{}
	}
	b.mu.Unlock()
	return updated, nil
}

// Delete removes one activity.
func (b *Board) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	if b.permission == PermissionViewer {
		b.mu.Unlock()
		return ErrReadOnly
	}
	if _, ok := b.findLocked(id); !ok {
		b.mu.Unlock()
		return ErrUnknownActivity
	}
	b.mu.Unlock()

	if err := b.backend.DeleteActivity(ctx, id); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}

	b.mu.Lock()
	b.removeLocked(map[string]struct{}{id: {}})
	if b.pending.Kind == PendingEdit && b.pending.Activity.ID == id {
		b.pending = Pending{}
	}
	b.mu.Unlock()
	return nil
}

// Apply merges a change made elsewhere (another tab, another manager) into the local list.
func (b *Board) Apply(activity models.Activity, deleted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if activity.TeamID != "" && activity.TeamID != b.teamID {
		return
	}
	if deleted {
		b.removeLocked(map[string]struct{}{activity.ID: {}})
		return
	}
	b.upsertLocked(activity)
}

// RefreshAvailability reloads availability for the displayed week after a player changed theirs.
func (b *Board) RefreshAvailability(ctx context.Context) error {
	b.mu.Lock()
	teamID := b.teamID
	week := b.availabilityWeek()
	b.mu.Unlock()

	availabilities, err := b.backend.ListAvailability(ctx, teamID, week)
	if err != nil {
		return fmt.Errorf("load availability: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.teamID == teamID && b.availabilityWeek() == week {
		b.availabilities = availabilities
	}
	return nil
}

// upsertLocked replaces the activity with the same id or appends it, so a change that
// reaches the board twice (local write plus live feed) is applied once.
func (b *Board) upsertLocked(activity models.Activity) {
	for i := range b.activities {
		if b.activities[i].ID == activity.ID {
			b.activities[i] = activity
			return
		}
	}
	b.activities = append(b.activities, activity)
}

func (b *Board) findLocked(id string) (models.Activity, bool) {
	for _, a := range b.activities {
		if a.ID == id {
			return a, true
		}
	}
	return models.Activity{}, false
}

func (b *Board) removeLocked(ids map[string]struct{}) {
	kept := make([]models.Activity, 0, len(b.activities))
	for _, a := range b.activities {
		if _, gone := ids[a.ID]; gone {
			continue
		}
		kept = append(kept, a)
	}
	b.activities = kept
}

// Activities returns a copy of the local activity list.
func (b *Board) Activities() []models.Activity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Activity(nil), b.activities...)
}

func (b *Board) TeamID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.teamID
}

// Snapshot joins the activity list against the cell space for rendering.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	ix := grid.NewIndex(b.activities)
	rows := make([][]CellView, len(grid.TimeSlots))
	for s := range grid.TimeSlots {
		row := make([]CellView, len(grid.Days))
		for d := range grid.Days {
			cell := b.layout.Cell(d, s)
			view := CellView{
				Cell:      cell,
				Available: grid.AvailableCount(b.availabilities, cell.Day, cell.Slot),
			}
			activityID := ""
			if activity, ok := ix.Lookup(cell); ok {
				a := activity
				view.Activity = &a
				activityID = a.ID
			}
			view.Selected = b.selector.Selected(cell, activityID)
			row[d] = view
		}
		rows[s] = row
	}

	snap := Snapshot{
		TeamID:       b.teamID,
		Permission:   b.permission,
		WeekStart:    b.layout.WeekStart(),
		Mode:         b.mode,
		SelectedType: b.selectedType,
		Dragging:     b.selector.State() != StateIdle,
		Pending:      b.pending,
		Rows:         rows,
		Activities:   append([]models.Activity(nil), b.activities...),
		PlayerCount:  len(b.availabilities),
	}
	if b.lastReport != nil {
		report := *b.lastReport
		snap.LastReport = &report
	}
	return snap
}

func logBatch(ctx context.Context, teamID string, report BatchReport) {
	event := log.Ctx(ctx).Info()
	if report.Failed > 0 {
		event = log.Ctx(ctx).Warn()
	}
	event.
		Str("team_id", teamID).
		Int("requested", report.Requested).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Msg("Schedule batch dispatched")
}
