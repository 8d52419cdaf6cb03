//go:build smoke

package smoke

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rosterforge/rosterforge/internal/api/auth"
	"github.com/rosterforge/rosterforge/internal/db"
	dbgen "github.com/rosterforge/rosterforge/internal/db/generated"
	"github.com/rosterforge/rosterforge/internal/models"
	"github.com/rosterforge/rosterforge/internal/scheduleclient"
	"github.com/rosterforge/rosterforge/internal/testutil"
)

func seedScheduleDB(t *testing.T, dbPath string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("failed to create db directory: %v", err)
	}
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	defer database.Close()

	testutil.SeedTeam(t, database, "team-smoke", "Smoke FC")
	hash, err := auth.HashPassword("smoke-password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	testutil.SeedUser(t, database, dbgen.CreateUserParams{
		ID:           "u-coach",
		Username:     "coach",
		PasswordHash: hash,
		Role:         "manager",
		TeamID:       testutil.NullString("team-smoke"),
	})
}

func TestScheduleAPISmoke(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db", "smoke.db")
	seedScheduleDB(t, dbPath)
	proc := startServer(t, dbPath)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := scheduleclient.New(proc.baseURL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.ListActivities(ctx, "team-smoke"); !scheduleclient.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 before login, got %v", err)
	}
	if _, err := client.Login(ctx, "coach", "smoke-password"); err != nil {
		t.Fatalf("login: %v\n%s", err, proc.logs())
	}

	created, err := client.CreateActivity(ctx, models.ActivityInput{
		TeamID:    "team-smoke",
		Type:      models.ActivityPractice,
		Title:     "Practice",
		DayOfWeek: 0,
		TimeSlot:  "3:00 PM",
		Duration:  2,
	})
	if err != nil {
		t.Fatalf("create: %v\n%s", err, proc.logs())
	}

	list, err := client.ListActivities(ctx, "team-smoke")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("list: %+v", list)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proc.baseURL+"/api/schedule/export?team_id=team-smoke&week_start=2024-01-01", nil)
	if err != nil {
		t.Fatalf("build export request: %v", err)
	}
	req.Header = client.AuthHeader()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export request: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status: %d\n%s", resp.StatusCode, proc.logs())
	}

	if err := client.DeleteActivity(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := client.DeleteActivity(ctx, created.ID); !scheduleclient.IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404 on second delete, got %v", err)
	}
}
