// Package grid addresses the weekly schedule grid: seven day columns by twelve
// one-hour slots, each cell holding at most one activity.
package grid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rosterforge/rosterforge/internal/models"
)

var (
	ErrUnknownDay  = errors.New("unknown day")
	ErrUnknownSlot = errors.New("unknown time slot")
)

// Days are the grid columns; the index is the stored day_of_week.
var Days = []string{
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
	"Sunday",
}

// TimeSlots are the grid rows, 1 PM through midnight.
var TimeSlots = []string{
	"1:00 PM",
	"2:00 PM",
	"3:00 PM",
	"4:00 PM",
	"5:00 PM",
	"6:00 PM",
	"7:00 PM",
	"8:00 PM",
	"9:00 PM",
	"10:00 PM",
	"11:00 PM",
	"12:00 AM",
}

// CellCount is the size of the addressable cell space.
var CellCount = len(Days) * len(TimeSlots)

// Cell is one addressable grid position. Date is set only when a concrete week is displayed.
type Cell struct {
	Day  string
	Slot string
	Date string
}

// Key is the set-membership identifier "{date-or-day}-{timeSlot}".
func (c Cell) Key() string {
	prefix := c.Day
	if c.Date != "" {
		prefix = c.Date
	}
	return prefix + "-" + c.Slot
}

// DayIndex returns the column index for a day label, case-insensitively.
func DayIndex(day string) (int, error) {
	for i, d := range Days {
		if strings.EqualFold(d, strings.TrimSpace(day)) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownDay, day)
}

// SlotIndex returns the row index for a time slot label.
func SlotIndex(slot string) (int, error) {
	normalized := strings.ToUpper(strings.TrimSpace(slot))
	for i, s := range TimeSlots {
		if s == normalized {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
}

// ValidSlot reports whether slot is one of the fixed labels.
func ValidSlot(slot string) bool {
	_, err := SlotIndex(slot)
	return err == nil
}

// Validate checks that the cell names a real day and slot.
func (c Cell) Validate() error {
	if _, err := DayIndex(c.Day); err != nil {
		return err
	}
	if _, err := SlotIndex(c.Slot); err != nil {
		return err
	}
	return nil
}

// position returns (dayIndex, slotIndex); callers validate first.
func (c Cell) position() (int, int) {
	d, _ := DayIndex(c.Day)
	s, _ := SlotIndex(c.Slot)
	return d, s
}

// Index resolves cells to activities.
type Index struct {
	activities []models.Activity
}

func NewIndex(activities []models.Activity) *Index {
	return &Index{activities: activities}
}

// Lookup returns the activity occupying cell. A dated activity on the cell's date wins
// over a recurring one on the same weekday; among equals the first in list order wins.
func (ix *Index) Lookup(cell Cell) (models.Activity, bool) {
	if ix == nil {
		return models.Activity{}, false
	}
	dayIdx, err := DayIndex(cell.Day)
	if err != nil {
		return models.Activity{}, false
	}

	if cell.Date != "" {
		for _, a := range ix.activities {
			if a.ActivityDate == cell.Date && sameSlot(a.TimeSlot, cell.Slot) {
				return a, true
			}
		}
	}
	for _, a := range ix.activities {
		if a.IsDated() {
			continue
		}
		if a.DayOfWeek == dayIdx && sameSlot(a.TimeSlot, cell.Slot) {
			return a, true
		}
	}
	return models.Activity{}, false
}

// Occupied reports whether any activity resolves to cell.
func (ix *Index) Occupied(cell Cell) bool {
	_, ok := ix.Lookup(cell)
	return ok
}

func sameSlot(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Layout is the set of cells for one rendering of the grid.
type Layout struct {
	weekStart string
}

// NewLayout builds a layout. An empty weekStart yields the recurring (date-less) view.
func NewLayout(weekStart string) (Layout, error) {
	if weekStart == "" {
		return Layout{}, nil
	}
	if _, err := ParseWeekStart(weekStart); err != nil {
		return Layout{}, err
	}
	return Layout{weekStart: weekStart}, nil
}

func (l Layout) WeekStart() string {
	return l.weekStart
}

// Cell builds the cell at (dayIdx, slotIdx), filling the date when a week is displayed.
func (l Layout) Cell(dayIdx, slotIdx int) Cell {
	cell := Cell{Day: Days[dayIdx], Slot: TimeSlots[slotIdx]}
	if l.weekStart != "" {
		cell.Date = DateFor(l.weekStart, dayIdx)
	}
	return cell
}

// Resolve completes a cell named by day and slot with this layout's date.
func (l Layout) Resolve(day, slot string) (Cell, error) {
	d, err := DayIndex(day)
	if err != nil {
		return Cell{}, err
	}
	s, err := SlotIndex(slot)
	if err != nil {
		return Cell{}, err
	}
	return l.Cell(d, s), nil
}

// Rect returns every cell in the inclusive axis-aligned rectangle spanned by a and b,
// row-major by slot then day.
func (l Layout) Rect(a, b Cell) []Cell {
	ad, as := a.position()
	bd, bs := b.position()
	minDay, maxDay := minMax(ad, bd)
	minSlot, maxSlot := minMax(as, bs)

	cells := make([]Cell, 0, (maxDay-minDay+1)*(maxSlot-minSlot+1))
	for s := minSlot; s <= maxSlot; s++ {
		for d := minDay; d <= maxDay; d++ {
			cells = append(cells, l.Cell(d, s))
		}
	}
	return cells
}

// All returns every cell of the grid, row-major.
func (l Layout) All() []Cell {
	return l.Rect(l.Cell(0, 0), l.Cell(len(Days)-1, len(TimeSlots)-1))
}

func minMax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}
