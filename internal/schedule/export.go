package schedule

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/rosterforge/rosterforge/internal/grid"
	"github.com/rosterforge/rosterforge/internal/models"
)

const (
	ScheduleSheet     = "Schedule"
	AvailabilitySheet = "Availability"
	XLSXContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportFilename is the attachment name for a team's week export.
func ExportFilename(teamSlug, weekStart string) string {
	if weekStart == "" {
		weekStart = "weekly"
	}
	return fmt.Sprintf("schedule_%s_%s.xlsx", teamSlug, weekStart)
}

// BuildWorkbook lays the week out as the board shows it: one column per day, one row per slot.
// The second sheet holds the available-player headcount for each cell.
func BuildWorkbook(weekStart string, activities []models.Activity, availabilities []models.PlayerWeeklyAvailability) (*excelize.File, error) {
	layout, err := grid.NewLayout(weekStart)
	if err != nil {
		return nil, err
	}
	ix := grid.NewIndex(activities)

	f := excelize.NewFile()
	index, err := f.NewSheet(ScheduleSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if _, err := f.NewSheet(AvailabilitySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for _, sheet := range []string{ScheduleSheet, AvailabilitySheet} {
		if err := writeHeader(f, sheet, layout); err != nil {
			f.Close()
			return nil, err
		}
	}

	for s, slot := range grid.TimeSlots {
		row := s + 2
		for _, sheet := range []string{ScheduleSheet, AvailabilitySheet} {
			cellName, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetCellValue(sheet, cellName, slot); err != nil {
				f.Close()
				return nil, fmt.Errorf("write slot label: %w", err)
			}
		}
		for d := range grid.Days {
			cell := layout.Cell(d, s)
			cellName, _ := excelize.CoordinatesToCellName(d+2, row)
			if activity, ok := ix.Lookup(cell); ok {
				if err := f.SetCellValue(ScheduleSheet, cellName, activityLabel(activity)); err != nil {
					f.Close()
					return nil, fmt.Errorf("write activity: %w", err)
				}
			}
			count := grid.AvailableCount(availabilities, cell.Day, cell.Slot)
			if err := f.SetCellValue(AvailabilitySheet, cellName, count); err != nil {
				f.Close()
				return nil, fmt.Errorf("write availability: %w", err)
			}
		}
	}

	if err := f.SetColWidth(ScheduleSheet, "B", "H", 24); err != nil {
		f.Close()
		return nil, fmt.Errorf("set column width: %w", err)
	}
	return f, nil
}

// WriteWorkbook builds the export and streams it to w.
func WriteWorkbook(w io.Writer, weekStart string, activities []models.Activity, availabilities []models.PlayerWeeklyAvailability) error {
	f, err := BuildWorkbook(weekStart, activities, availabilities)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, layout grid.Layout) error {
	if err := f.SetCellValue(sheet, "A1", "Time"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for d, day := range grid.Days {
		label := day
		if date := layout.Cell(d, 0).Date; date != "" {
			label = day + " " + date
		}
		cellName, _ := excelize.CoordinatesToCellName(d+2, 1)
		if err := f.SetCellValue(sheet, cellName, label); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	return nil
}

func activityLabel(a models.Activity) string {
	label := fmt.Sprintf("%s (%s)", a.Title, a.Type.DisplayName())
	if a.Duration > 1 {
		label += fmt.Sprintf(" %dh", a.Duration)
	}
	return label
}
