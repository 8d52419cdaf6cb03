package email

import (
	"fmt"
	"strings"

	"github.com/rosterforge/rosterforge/internal/grid"
	"github.com/rosterforge/rosterforge/internal/models"
)

// Message is a rendered plain-text email.
type Message struct {
	Subject string
	Body    string
}

// BuildWeeklyDigest lists a team's activities for the week, one block per day.
func BuildWeeklyDigest(teamName, weekStart string, activities []models.Activity) (Message, error) {
	layout, err := grid.NewLayout(weekStart)
	if err != nil {
		return Message{}, err
	}
	index := grid.NewIndex(activities)

	var b strings.Builder
	fmt.Fprintf(&b, "Schedule for %s, week of %s\n", teamName, weekStart)

	total := 0
	for dayIdx, day := range grid.Days {
		var lines []string
		for slotIdx := range grid.TimeSlots {
			cell := layout.Cell(dayIdx, slotIdx)
			activity, ok := index.Lookup(cell)
			if !ok {
				continue
			}
			line := fmt.Sprintf("  %-8s %s (%s)", cell.Slot, activity.Title, activity.Type.DisplayName())
			if activity.Duration > 1 {
				line += fmt.Sprintf(", %dh", activity.Duration)
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}
		total += len(lines)
		fmt.Fprintf(&b, "\n%s %s\n", day, grid.DateFor(weekStart, dayIdx))
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	if total == 0 {
		b.WriteString("\nNothing is scheduled this week.\n")
	}

	return Message{
		Subject: fmt.Sprintf("%s schedule: week of %s", teamName, weekStart),
		Body:    b.String(),
	}, nil
}
