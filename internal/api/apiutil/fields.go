package apiutil

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rosterforge/rosterforge/internal/grid"
)

const (
	teamIDQueryKey    = "team_id"
	weekStartQueryKey = "week_start"
)

func TeamIDFromQuery(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(teamIDQueryKey))
	if raw == "" {
		return "", fmt.Errorf("%s is required", teamIDQueryKey)
	}
	return raw, nil
}

// WeekStartFromQuery reads week_start. When absent it returns fallback unchanged.
func WeekStartFromQuery(r *http.Request, fallback string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(weekStartQueryKey))
	if raw == "" {
		return fallback, nil
	}
	if _, err := grid.ParseWeekStart(raw); err != nil {
		return "", fmt.Errorf("%s must be a Monday in YYYY-MM-DD form", weekStartQueryKey)
	}
	return raw, nil
}

// PathID returns a trimmed, non-empty path value.
func PathID(r *http.Request, name string) (string, error) {
	id := strings.TrimSpace(r.PathValue(name))
	if id == "" {
		return "", fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
