package schedule

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/rosterforge/rosterforge/internal/board"
	"github.com/rosterforge/rosterforge/internal/grid"
	"github.com/rosterforge/rosterforge/internal/models"
)

type TeamOption struct {
	ID   string
	Name string
}

// BoardView is everything the board fragment renders from.
type BoardView struct {
	Snapshot  board.Snapshot
	TeamName  string
	Teams     []TeamOption
	CSRFToken string
	Error     string
}

var typeColors = map[models.ActivityType]string{
	models.ActivityPractice:           "bg-blue-100 text-blue-900",
	models.ActivityIndividualTraining: "bg-teal-100 text-teal-900",
	models.ActivityGroupTraining:      "bg-green-100 text-green-900",
	models.ActivityOfficialMatch:      "bg-red-100 text-red-900",
	models.ActivityTournament:         "bg-amber-100 text-amber-900",
	models.ActivityMeeting:            "bg-purple-100 text-purple-900",
}

// Board renders the whole board fragment. Every board action swaps this element.
func Board(view BoardView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, boardHTML(view))
		return err
	})
}

// TeamList is the admin landing page.
func TeamList(teams []TeamOption) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		buf.WriteString(`<h1 class="mb-4 text-xl font-semibold">Teams</h1>`)
		if len(teams) == 0 {
			buf.WriteString(`<p class="text-gray-600">No teams yet.</p>`)
		}
		buf.WriteString(`<ul class="divide-y rounded border bg-white">`)
		for _, team := range teams {
			buf.WriteString(fmt.Sprintf(`<li class="p-3"><a class="text-blue-700" href="%s">%s</a></li>`,
				html.EscapeString(pagePath(team.ID)), html.EscapeString(team.Name)))
		}
		buf.WriteString(`</ul>`)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func pagePath(teamID string) string {
	return "/teams/" + teamID + "/schedule"
}

func actionPath(teamID, action string) string {
	return pagePath(teamID) + "/board/" + action
}

func boardHTML(view BoardView) string {
	snap := view.Snapshot
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf(
		`<div id="board" data-team-id="%s" data-permission="%s" data-action-base="%s" hx-target="#board" hx-swap="outerHTML" hx-headers='{"X-CSRF-Token": "%s"}'>`,
		html.EscapeString(snap.TeamID),
		html.EscapeString(string(snap.Permission)),
		html.EscapeString(pagePath(snap.TeamID)+"/board/"),
		html.EscapeString(view.CSRFToken),
	))

	title := view.TeamName
	if title == "" {
		title = snap.TeamID
	}
	buf.WriteString(`<div class="mb-3 flex flex-wrap items-center gap-3">`)
	buf.WriteString(`<h1 class="text-xl font-semibold">` + html.EscapeString(title) + `</h1>`)
	writeTeamSwitcher(&buf, view)
	writeWeekNav(&buf, snap)
	buf.WriteString(fmt.Sprintf(`<a class="text-sm text-blue-700" href="/api/schedule/export?team_id=%s&amp;week_start=%s">Export</a>`,
		html.EscapeString(snap.TeamID), html.EscapeString(snap.WeekStart)))
	buf.WriteString(`</div>`)

	if view.Error != "" {
		buf.WriteString(`<p class="mb-3 rounded bg-red-50 p-2 text-sm text-red-700" role="alert">` + html.EscapeString(view.Error) + `</p>`)
	}
	if snap.LastReport != nil {
		buf.WriteString(`<p class="mb-3 rounded bg-gray-100 p-2 text-sm" role="status">` + html.EscapeString(snap.LastReport.String()) + `</p>`)
	}

	if snap.Permission != board.PermissionViewer {
		writeToolbar(&buf, snap)
	}
	writeGrid(&buf, snap)
	writePending(&buf, view)

	buf.WriteString(`</div>`)
	return buf.String()
}

func writeTeamSwitcher(buf *bytes.Buffer, view BoardView) {
	snap := view.Snapshot
	if snap.Permission != board.PermissionAdmin || len(view.Teams) == 0 {
		return
	}
	buf.WriteString(fmt.Sprintf(`<select name="team" class="rounded border px-2 py-1 text-sm" hx-post="%s" hx-trigger="change">`,
		html.EscapeString(actionPath(snap.TeamID, "team"))))
	for _, team := range view.Teams {
		selected := ""
		if team.ID == snap.TeamID {
			selected = " selected"
		}
		buf.WriteString(fmt.Sprintf(`<option value="%s"%s>%s</option>`, html.EscapeString(team.ID), selected, html.EscapeString(team.Name)))
	}
	buf.WriteString(`</select>`)
}

func writeWeekNav(buf *bytes.Buffer, snap board.Snapshot) {
	path := html.EscapeString(actionPath(snap.TeamID, "week"))
	buf.WriteString(`<div class="flex items-center gap-1 text-sm">`)
	if snap.WeekStart == "" {
		buf.WriteString(`<span class="font-medium">Every week</span>`)
		buf.WriteString(fmt.Sprintf(`<button class="rounded border px-2" hx-post="%s" hx-vals='{"shift":"current"}'>This week</button>`, path))
		buf.WriteString(`</div>`)
		return
	}
	buf.WriteString(fmt.Sprintf(`<button class="rounded border px-2" hx-post="%s" hx-vals='{"shift":"-1"}' aria-label="Previous week">&larr;</button>`, path))
	buf.WriteString(`<span class="font-medium">Week of ` + html.EscapeString(snap.WeekStart) + `</span>`)
	buf.WriteString(fmt.Sprintf(`<button class="rounded border px-2" hx-post="%s" hx-vals='{"shift":"1"}' aria-label="Next week">&rarr;</button>`, path))
	buf.WriteString(fmt.Sprintf(`<button class="rounded border px-2" hx-post="%s" hx-vals='{"week_start":""}'>Every week</button>`, path))
	buf.WriteString(`</div>`)
}

func writeToolbar(buf *bytes.Buffer, snap board.Snapshot) {
	buf.WriteString(`<div class="mb-3 flex flex-wrap items-center gap-2 text-sm">`)
	for _, mode := range []board.Mode{board.ModeCreate, board.ModeDelete} {
		class := "rounded border px-2 py-1"
		if snap.Mode == mode {
			class += " bg-gray-900 text-white"
		}
		label := "Add"
		if mode == board.ModeDelete {
			label = "Remove"
		}
		buf.WriteString(fmt.Sprintf(`<button class="%s" hx-post="%s" hx-vals='{"mode":"%s"}'>%s</button>`,
			class, html.EscapeString(actionPath(snap.TeamID, "mode")), mode, label))
	}
	if snap.Mode == board.ModeCreate {
		buf.WriteString(`<span class="ml-2 text-gray-600">Type:</span>`)
		for _, t := range models.ActivityTypes {
			class := "rounded px-2 py-1 " + typeColors[t]
			if snap.SelectedType == t {
				class += " ring-2 ring-gray-900"
			}
			buf.WriteString(fmt.Sprintf(`<button class="%s" hx-post="%s" hx-vals='{"type":"%s"}'>%s</button>`,
				class, html.EscapeString(actionPath(snap.TeamID, "type")), t, html.EscapeString(t.DisplayName())))
		}
	}
	buf.WriteString(`</div>`)
}

func writeGrid(buf *bytes.Buffer, snap board.Snapshot) {
	buf.WriteString(`<table class="w-full table-fixed select-none border-collapse text-xs" data-board-grid>`)
	buf.WriteString(`<thead><tr><th class="w-20"></th>`)
	for d, day := range grid.Days {
		label := html.EscapeString(day)
		if len(snap.Rows) > 0 && snap.Rows[0][d].Cell.Date != "" {
			label += `<br><span class="font-normal text-gray-500">` + html.EscapeString(snap.Rows[0][d].Cell.Date) + `</span>`
		}
		buf.WriteString(`<th class="border p-1">` + label + `</th>`)
	}
	buf.WriteString(`</tr></thead><tbody>`)

	for s, row := range snap.Rows {
		buf.WriteString(`<tr><th class="border p-1 font-normal">` + html.EscapeString(grid.TimeSlots[s]) + `</th>`)
		for _, cv := range row {
			writeCell(buf, snap, cv)
		}
		buf.WriteString(`</tr>`)
	}
	buf.WriteString(`</tbody></table>`)
}

func writeCell(buf *bytes.Buffer, snap board.Snapshot, cv board.CellView) {
	classes := []string{"h-10", "border", "p-1", "align-top"}
	if cv.Selected {
		classes = append(classes, "ring-2", "ring-inset", "ring-blue-500")
	}
	if cv.Activity != nil {
		classes = append(classes, typeColors[cv.Activity.Type])
	}
	buf.WriteString(fmt.Sprintf(`<td class="%s" data-cell data-day="%s" data-slot="%s" data-date="%s">`,
		strings.Join(classes, " "),
		html.EscapeString(cv.Cell.Day),
		html.EscapeString(cv.Cell.Slot),
		html.EscapeString(cv.Cell.Date),
	))
	if cv.Activity != nil {
		a := cv.Activity
		buf.WriteString(`<div class="truncate font-medium" title="` + html.EscapeString(a.Description) + `">` + html.EscapeString(a.Title) + `</div>`)
		if a.Duration > 1 {
			buf.WriteString(fmt.Sprintf(`<div class="text-[10px]">%dh</div>`, a.Duration))
		}
		if a.IsDated() {
			buf.WriteString(`<div class="text-[10px] italic">one-off</div>`)
		}
	}
	if snap.PlayerCount > 0 {
		buf.WriteString(fmt.Sprintf(`<div class="text-[10px] text-gray-500">%d/%d available</div>`, cv.Available, snap.PlayerCount))
	}
	buf.WriteString(`</td>`)
}

func writePending(buf *bytes.Buffer, view BoardView) {
	snap := view.Snapshot
	pending := snap.Pending
	if pending.Kind == board.PendingNone {
		return
	}
	buf.WriteString(`<div class="fixed inset-0 z-50 flex items-center justify-center bg-black/40" data-modal>`)
	buf.WriteString(`<div class="w-full max-w-lg rounded-lg bg-white p-6 shadow-lg">`)

	switch pending.Kind {
	case board.PendingBulkDelete:
		buf.WriteString(`<h2 class="mb-3 text-lg font-semibold">Remove activities</h2>`)
		buf.WriteString(fmt.Sprintf(`<p class="mb-4">Remove %d selected %s?</p>`, len(pending.ActivityIDs), plural(len(pending.ActivityIDs), "activity", "activities")))
		buf.WriteString(`<div class="flex justify-end gap-2">`)
		writeDismiss(buf, snap.TeamID)
		buf.WriteString(fmt.Sprintf(`<button class="rounded bg-red-600 px-3 py-1 text-white" hx-post="%s">Remove</button>`,
			html.EscapeString(actionPath(snap.TeamID, "confirm-delete"))))
		buf.WriteString(`</div>`)

	case board.PendingBulkCreate:
		buf.WriteString(fmt.Sprintf(`<h2 class="mb-3 text-lg font-semibold">Add %d %s</h2>`, len(pending.Cells), plural(len(pending.Cells), "activity", "activities")))
		writeForm(buf, snap, pending.Form, "confirm-create", "", false)

	case board.PendingSingleCreate:
		heading := "New activity"
		if len(pending.Cells) == 1 {
			heading += " · " + pending.Cells[0].Day + " " + pending.Cells[0].Slot
		}
		buf.WriteString(`<h2 class="mb-3 text-lg font-semibold">` + html.EscapeString(heading) + `</h2>`)
		writeForm(buf, snap, pending.Form, "create-one", "", true)

	case board.PendingEdit:
		a := pending.Activity
		buf.WriteString(`<h2 class="mb-1 text-lg font-semibold">` + html.EscapeString(a.Title) + `</h2>`)
		buf.WriteString(`<p class="mb-3 text-sm text-gray-600">` + html.EscapeString(fmt.Sprintf("%s · %s · %s", a.Type.DisplayName(), grid.Days[a.DayOfWeek], a.TimeSlot)) + `</p>`)
		if rendered := DescriptionHTML(a.Description); rendered != "" {
			buf.WriteString(`<div class="prose prose-sm mb-3">` + rendered + `</div>`)
		}
		if snap.Permission == board.PermissionViewer {
			buf.WriteString(`<div class="flex justify-end">`)
			writeDismiss(buf, snap.TeamID)
			buf.WriteString(`</div>`)
			break
		}
		writeForm(buf, snap, pending.Form, "update", a.ID, true)
	}

	buf.WriteString(`</div></div>`)
}

func writeForm(buf *bytes.Buffer, snap board.Snapshot, form board.Form, action, activityID string, withDuration bool) {
	buf.WriteString(fmt.Sprintf(`<form class="space-y-3" hx-post="%s">`, html.EscapeString(actionPath(snap.TeamID, action))))
	if activityID != "" {
		buf.WriteString(`<input type="hidden" name="activity_id" value="` + html.EscapeString(activityID) + `">`)
	}

	buf.WriteString(`<label class="block text-sm">Type<select name="type" class="mt-1 block w-full rounded border px-2 py-1">`)
	for _, t := range models.ActivityTypes {
		selected := ""
		if form.Type == t {
			selected = " selected"
		}
		buf.WriteString(fmt.Sprintf(`<option value="%s"%s>%s</option>`, t, selected, html.EscapeString(t.DisplayName())))
	}
	buf.WriteString(`</select></label>`)

	buf.WriteString(`<label class="block text-sm">Title<input name="title" required maxlength="120" class="mt-1 block w-full rounded border px-2 py-1" value="` + html.EscapeString(form.Title) + `"></label>`)
	buf.WriteString(`<label class="block text-sm">Description<textarea name="description" rows="3" class="mt-1 block w-full rounded border px-2 py-1">` + html.EscapeString(form.Description) + `</textarea></label>`)

	if withDuration {
		buf.WriteString(`<label class="block text-sm">Duration (hours)<select name="duration" class="mt-1 block w-full rounded border px-2 py-1">`)
		for d := models.MinActivityDuration; d <= models.MaxActivityDuration; d++ {
			selected := ""
			if form.Duration == d {
				selected = " selected"
			}
			buf.WriteString(fmt.Sprintf(`<option value="%d"%s>%d</option>`, d, selected, d))
		}
		buf.WriteString(`</select></label>`)
	}

	if snap.WeekStart != "" {
		checked := ""
		if form.OneOff {
			checked = " checked"
		}
		buf.WriteString(`<label class="flex items-center gap-2 text-sm"><input type="checkbox" name="one_off" value="true"` + checked + `> This week only</label>`)
	}

	buf.WriteString(`<div class="flex justify-end gap-2">`)
	if action == "update" {
		buf.WriteString(fmt.Sprintf(`<button type="button" class="mr-auto rounded border border-red-600 px-3 py-1 text-red-700" hx-post="%s" hx-vals='{"activity_id":"%s"}'>Delete</button>`,
			html.EscapeString(actionPath(snap.TeamID, "delete")), html.EscapeString(activityID)))
	}
	writeDismiss(buf, snap.TeamID)
	buf.WriteString(`<button type="submit" class="rounded bg-blue-600 px-3 py-1 text-white">Save</button>`)
	buf.WriteString(`</div></form>`)
}

func writeDismiss(buf *bytes.Buffer, teamID string) {
	buf.WriteString(fmt.Sprintf(`<button type="button" class="rounded border px-3 py-1" hx-post="%s">Cancel</button>`,
		html.EscapeString(actionPath(teamID, "dismiss"))))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
