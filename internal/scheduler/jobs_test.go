package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rosterforge/rosterforge/internal/config"
	dbgen "github.com/rosterforge/rosterforge/internal/db/generated"
	"github.com/rosterforge/rosterforge/internal/models"
	"github.com/rosterforge/rosterforge/internal/schedule"
	"github.com/rosterforge/rosterforge/internal/testutil"
)

type captureSender struct {
	mu       sync.Mutex
	subjects map[string]string
	bodies   map[string]string
	fail     string
}

func (c *captureSender) Send(ctx context.Context, recipient, subject, body string) error {
	return c.SendFrom(ctx, recipient, subject, body, "")
}

func (c *captureSender) SendFrom(ctx context.Context, recipient, subject, body, sender string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if recipient == c.fail {
		return errors.New("bounced")
	}
	if c.subjects == nil {
		c.subjects = map[string]string{}
		c.bodies = map[string]string{}
	}
	c.subjects[recipient] = subject
	c.bodies[recipient] = body
	return nil
}

// Sunday 2024-01-07 18:00 UTC.
var sundayEvening = time.Date(2024, 1, 7, 18, 0, 0, 0, time.UTC)

func newJobsStore(t *testing.T) *schedule.Store {
	t.Helper()
	database := testutil.NewTestDB(t)
	testutil.SeedTeam(t, database, "team-a", "Falcons")
	testutil.SeedTeam(t, database, "team-b", "Herons")
	testutil.SeedPlayer(t, database, "team-a", "player-1", "Jordan")
	testutil.SeedUser(t, database, dbgen.CreateUserParams{
		ID: "u-manager", Username: "coach", PasswordHash: "x", Role: "manager",
		TeamID: testutil.NullString("team-a"), Email: testutil.NullString("coach@example.com"),
	})
	testutil.SeedUser(t, database, dbgen.CreateUserParams{
		ID: "u-player", Username: "jordan", PasswordHash: "x", Role: "player",
		TeamID: testutil.NullString("team-a"), PlayerID: testutil.NullString("player-1"),
		Email: testutil.NullString("jordan@example.com"),
	})
	testutil.SeedUser(t, database, dbgen.CreateUserParams{
		ID: "u-quiet", Username: "quiet", PasswordHash: "x", Role: "player",
		TeamID: testutil.NullString("team-a"),
	})
	return schedule.NewStore(database, nil)
}

func activityInput(day int, slot, date string) models.ActivityInput {
	return models.ActivityInput{
		TeamID:       "team-a",
		Type:         models.ActivityPractice,
		Title:        "Practice " + slot,
		DayOfWeek:    day,
		TimeSlot:     slot,
		Duration:     1,
		ActivityDate: date,
	}
}

func TestPruneCutoff(t *testing.T) {
	cutoff, err := PruneCutoff(sundayEvening, 2)
	if err != nil {
		t.Fatalf("cutoff: %v", err)
	}
	if cutoff != "2023-12-18" {
		t.Fatalf("cutoff: %s", cutoff)
	}
	if _, err := PruneCutoff(sundayEvening, 0); err == nil {
		t.Fatalf("expected error for zero retention")
	}
}

func TestDigestWeek(t *testing.T) {
	if got := DigestWeek(sundayEvening); got != "2024-01-08" {
		t.Fatalf("sunday digest week: %s", got)
	}
	wednesday := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	if got := DigestWeek(wednesday); got != "2024-01-01" {
		t.Fatalf("midweek digest week: %s", got)
	}
}

func TestJobs_PruneDatedActivities(t *testing.T) {
	store := newJobsStore(t)
	ctx := context.Background()

	old, err := store.CreateActivity(ctx, activityInput(0, "1:00 PM", "2023-12-11"))
	if err != nil {
		t.Fatalf("create old: %v", err)
	}
	kept, err := store.CreateActivity(ctx, activityInput(0, "2:00 PM", "2023-12-18"))
	if err != nil {
		t.Fatalf("create kept: %v", err)
	}
	recurring, err := store.CreateActivity(ctx, activityInput(0, "3:00 PM", ""))
	if err != nil {
		t.Fatalf("create recurring: %v", err)
	}

	jobs := Jobs{Store: store, Now: func() time.Time { return sundayEvening }}
	removed, err := jobs.PruneDatedActivities(ctx, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed: %d", removed)
	}
	if _, err := store.GetActivity(ctx, old.ID); !errors.Is(err, schedule.ErrNotFound) {
		t.Fatalf("old activity still present: %v", err)
	}
	for _, id := range []string{kept.ID, recurring.ID} {
		if _, err := store.GetActivity(ctx, id); err != nil {
			t.Fatalf("activity %s removed: %v", id, err)
		}
	}
}

func TestJobs_SendWeeklyDigests(t *testing.T) {
	store := newJobsStore(t)
	ctx := context.Background()
	if _, err := store.CreateActivity(ctx, activityInput(2, "6:00 PM", "")); err != nil {
		t.Fatalf("create: %v", err)
	}

	sender := &captureSender{}
	jobs := Jobs{Store: store, Sender: sender, Now: func() time.Time { return sundayEvening }}
	sent, err := jobs.SendWeeklyDigests(ctx)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if sent != 2 {
		t.Fatalf("sent: %d", sent)
	}
	subject := sender.subjects["coach@example.com"]
	if subject != "Falcons schedule: week of 2024-01-08" {
		t.Fatalf("subject: %q", subject)
	}
	if !strings.Contains(sender.bodies["jordan@example.com"], "Practice 6:00 PM") {
		t.Fatalf("body: %q", sender.bodies["jordan@example.com"])
	}
}

func TestJobs_SendWeeklyDigestsReportsFailures(t *testing.T) {
	store := newJobsStore(t)
	sender := &captureSender{fail: "coach@example.com"}
	jobs := Jobs{Store: store, Sender: sender, Now: func() time.Time { return sundayEvening }}

	sent, err := jobs.SendWeeklyDigests(context.Background())
	if sent != 1 {
		t.Fatalf("sent: %d", sent)
	}
	if err == nil || !strings.Contains(err.Error(), "team-a") {
		t.Fatalf("err: %v", err)
	}
}

func TestJobs_Register(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop() })

	jobs := Jobs{Store: newJobsStore(t), Sender: &captureSender{}}
	if err := jobs.Register(svc, config.JobsConfig{PruneCron: "0 3 * * *", PruneRetentionWeeks: 4, DigestCron: "0 18 * * 0"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if n := len(svc.cron.Jobs()); n != 2 {
		t.Fatalf("jobs: %d", n)
	}

	if err := (Jobs{}).Register(svc, config.JobsConfig{}); err == nil {
		t.Fatalf("expected error without store")
	}
}

func TestService_AddJobValidation(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop() })

	if _, err := svc.AddJob(" ", "* * * * *", func(context.Context) error { return nil }); !errors.Is(err, ErrEmptyJobName) {
		t.Fatalf("err: %v", err)
	}
	if _, err := svc.AddJob("job", "", func(context.Context) error { return nil }); !errors.Is(err, ErrEmptyCronExpr) {
		t.Fatalf("err: %v", err)
	}
	if _, err := svc.AddJob("job", "not a cron", func(context.Context) error { return nil }); err == nil {
		t.Fatalf("expected invalid cron error")
	}
	var nilSvc *Service
	if _, err := nilSvc.AddJob("job", "* * * * *", func(context.Context) error { return nil }); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err: %v", err)
	}
}

func TestService_RunCancelledByStop(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- svc.run("blocking", func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("run context has no deadline")
			}
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	<-started
	if err := svc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not observe stop")
	}
}
