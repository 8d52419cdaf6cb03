package board

import (
	"github.com/rosterforge/rosterforge/internal/grid"
)

// Mode decides what a drag does.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeDelete Mode = "delete"
)

func (m Mode) Valid() bool {
	return m == ModeCreate || m == ModeDelete
}

// State of the drag-selection machine.
type State int

const (
	StateIdle State = iota
	StateAnchored
	StateSpanning
)

func (s State) String() string {
	switch s {
	case StateAnchored:
		return "anchored"
	case StateSpanning:
		return "spanning"
	default:
		return "idle"
	}
}

// View is what the selector needs to classify cells.
type View struct {
	Layout grid.Layout
	Index  *grid.Index
}

// ReleaseKind tells the board which path a pointer-up takes.
type ReleaseKind int

const (
	ReleaseNone ReleaseKind = iota
	// ReleaseClick is a create-mode press and release on the anchor cell without moving.
	ReleaseClick
	ReleaseCreate
	ReleaseDelete
)

// Release is the result of ending a drag.
type Release struct {
	Kind        ReleaseKind
	Anchor      grid.Cell
	Cells       []grid.Cell
	ActivityIDs []string
}

// Selector is the drag-selection state machine. It is owned by one board for the board's
// lifetime and is not safe for concurrent use on its own.
type Selector struct {
	state   State
	mode    Mode
	anchor  grid.Cell
	current grid.Cell

	cells   []grid.Cell
	keys    map[string]struct{}
	ids     []string
	idIndex map[string]struct{}
}

func NewSelector() *Selector {
	return &Selector{}
}

func (s *Selector) State() State {
	return s.state
}

// Mode returns the mode captured when the current drag was anchored.
func (s *Selector) Mode() Mode {
	return s.mode
}

// PointerDown anchors a drag on cell. In create mode the caller must be armed with an
// activity type and the cell must be empty; in delete mode the cell must be occupied.
// A disqualified press leaves the machine idle and returns false.
func (s *Selector) PointerDown(v View, mode Mode, armed bool, cell grid.Cell) bool {
	if s.state != StateIdle {
		return false
	}
	if err := cell.Validate(); err != nil {
		return false
	}
	occupied := v.Index.Occupied(cell)
	switch mode {
	case ModeCreate:
		if !armed || occupied {
			return false
		}
	case ModeDelete:
		if !occupied {
			return false
		}
	default:
		return false
	}

	s.state = StateAnchored
	s.mode = mode
	s.anchor = cell
	s.current = cell
	s.recompute(v)
	return true
}

// PointerEnter extends the drag to cell and re-derives the selection over the whole
// rectangle. It returns true when the machine is mid-drag.
func (s *Selector) PointerEnter(v View, cell grid.Cell) bool {
	if s.state == StateIdle {
		return false
	}
	if err := cell.Validate(); err != nil {
		return true
	}
	if cell.Key() == s.current.Key() {
		return true
	}
	s.current = cell
	if cell.Key() != s.anchor.Key() {
		s.state = StateSpanning
	}
	s.recompute(v)
	return true
}

// PointerUp ends the drag. The machine is back to idle before this returns, so a repeated
// pointer-up yields ReleaseNone.
func (s *Selector) PointerUp() Release {
	if s.state == StateIdle {
		return Release{}
	}
	moved := s.state == StateSpanning
	release := Release{Anchor: s.anchor}

	switch s.mode {
	case ModeCreate:
		if !moved {
			release.Kind = ReleaseClick
			break
		}
		if len(s.cells) > 0 {
			release.Kind = ReleaseCreate
			release.Cells = append([]grid.Cell(nil), s.cells...)
		}
	case ModeDelete:
		if len(s.ids) > 0 {
			release.Kind = ReleaseDelete
			release.ActivityIDs = append([]string(nil), s.ids...)
		}
	}

	s.reset()
	return release
}

// Cancel drops an in-progress drag without releasing anything.
func (s *Selector) Cancel() {
	s.reset()
}

// Selected reports whether cell is part of the current drag. In delete mode a cell counts
// when the activity occupying it is marked.
func (s *Selector) Selected(cell grid.Cell, activityID string) bool {
	if s.state == StateIdle {
		return false
	}
	if s.mode == ModeDelete {
		if activityID == "" {
			return false
		}
		_, ok := s.idIndex[activityID]
		return ok
	}
	_, ok := s.keys[cell.Key()]
	return ok
}

// Size is the number of cells (create) or activities (delete) currently selected.
func (s *Selector) Size() int {
	if s.mode == ModeDelete {
		return len(s.ids)
	}
	return len(s.cells)
}

func (s *Selector) recompute(v View) {
	s.cells = s.cells[:0]
	s.keys = make(map[string]struct{})
	s.ids = s.ids[:0]
	s.idIndex = make(map[string]struct{})

	for _, cell := range v.Layout.Rect(s.anchor, s.current) {
		activity, occupied := v.Index.Lookup(cell)
		switch s.mode {
		case ModeCreate:
			if occupied {
				continue
			}
			if _, seen := s.keys[cell.Key()]; seen {
				continue
			}
			s.keys[cell.Key()] = struct{}{}
			s.cells = append(s.cells, cell)
		case ModeDelete:
			if !occupied {
				continue
			}
			if _, seen := s.idIndex[activity.ID]; seen {
				continue
			}
			s.idIndex[activity.ID] = struct{}{}
			s.ids = append(s.ids, activity.ID)
		}
	}
}

func (s *Selector) reset() {
	s.state = StateIdle
	s.anchor = grid.Cell{}
	s.current = grid.Cell{}
	s.cells = nil
	s.keys = nil
	s.ids = nil
	s.idIndex = nil
}
