package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/config"
	"github.com/rosterforge/rosterforge/internal/email"
	"github.com/rosterforge/rosterforge/internal/grid"
	"github.com/rosterforge/rosterforge/internal/schedule"
)

const (
	pruneJobName  = "prune_dated_activities"
	digestJobName = "weekly_digest"
)

// Jobs holds what the maintenance jobs read from and write to.
type Jobs struct {
	Store  *schedule.Store
	Sender email.EmailSender
	Now    func() time.Time
}

func (j Jobs) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// Register adds the prune job and, when a sender is set, the digest job. An empty cron
// expression disables that job.
func (j Jobs) Register(svc *Service, cfg config.JobsConfig) error {
	if j.Store == nil {
		return fmt.Errorf("scheduler jobs require a schedule store")
	}
	if cfg.PruneCron != "" {
		if _, err := svc.AddJob(pruneJobName, cfg.PruneCron, func(ctx context.Context) error {
			removed, err := j.PruneDatedActivities(ctx, cfg.PruneRetentionWeeks)
			if err != nil {
				return err
			}
			log.Ctx(ctx).Info().Int64("removed", removed).Msg("Pruned dated activities")
			return nil
		}); err != nil {
			return fmt.Errorf("add prune job: %w", err)
		}
	}
	if cfg.DigestCron != "" && j.Sender != nil {
		if _, err := svc.AddJob(digestJobName, cfg.DigestCron, func(ctx context.Context) error {
			sent, err := j.SendWeeklyDigests(ctx)
			log.Ctx(ctx).Info().Int("sent", sent).Msg("Weekly digest sent")
			return err
		}); err != nil {
			return fmt.Errorf("add digest job: %w", err)
		}
	}
	return nil
}

// PruneCutoff is the Monday retentionWeeks before the current week. Dated activities before it
// are removed.
func PruneCutoff(now time.Time, retentionWeeks int) (string, error) {
	if retentionWeeks < 1 {
		return "", fmt.Errorf("retention must be at least one week")
	}
	return grid.ShiftWeek(grid.WeekStart(now), -retentionWeeks)
}

// PruneDatedActivities deletes one-off activities older than the retention window.
// Recurring activities are never touched.
func (j Jobs) PruneDatedActivities(ctx context.Context, retentionWeeks int) (int64, error) {
	cutoff, err := PruneCutoff(j.now(), retentionWeeks)
	if err != nil {
		return 0, err
	}
	log.Ctx(ctx).Debug().Str("cutoff", cutoff).Msg("Pruning dated activities")
	return j.Store.PruneDatedBefore(ctx, cutoff)
}

// DigestWeek is the week the digest describes: the week starting after today, so a Sunday
// run announces the coming week.
func DigestWeek(now time.Time) string {
	return grid.WeekStart(now.AddDate(0, 0, 1))
}

// SendWeeklyDigests mails each team's grid for the digest week to its managers and players.
// A failing team does not stop the others.
func (j Jobs) SendWeeklyDigests(ctx context.Context) (int, error) {
	if j.Sender == nil {
		return 0, fmt.Errorf("email sender is required")
	}
	teams, err := j.Store.ListTeams(ctx)
	if err != nil {
		return 0, err
	}
	week := DigestWeek(j.now())

	total := 0
	var errs []error
	for _, team := range teams {
		teamLogger := log.Ctx(ctx).With().Str("team_id", team.ID).Str("week_start", week).Logger()
		teamCtx := teamLogger.WithContext(ctx)

		recipients, err := j.Store.DigestRecipients(teamCtx, team.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("team %s: %w", team.ID, err))
			continue
		}
		if len(recipients) == 0 {
			teamLogger.Debug().Msg("No digest recipients")
			continue
		}
		activities, err := j.Store.ListActivities(teamCtx, team.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("team %s: %w", team.ID, err))
			continue
		}
		msg, err := email.BuildWeeklyDigest(team.Name, week, activities)
		if err != nil {
			errs = append(errs, fmt.Errorf("team %s: %w", team.ID, err))
			continue
		}
		sent, err := email.SendToAll(teamCtx, j.Sender, recipients, msg)
		total += sent
		if err != nil {
			errs = append(errs, fmt.Errorf("team %s: %w", team.ID, err))
		}
		teamLogger.Info().Int("sent", sent).Int("recipients", len(recipients)).Msg("Team digest delivered")
	}
	return total, errors.Join(errs...)
}
