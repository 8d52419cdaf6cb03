// Package scheduler runs the server's periodic maintenance jobs on gocron.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
)

// runTimeout bounds a single run of any job.
const runTimeout = 2 * time.Minute

// Task is one run of a job. The context is cancelled when the scheduler stops.
type Task func(ctx context.Context) error

// Service owns the gocron scheduler and the context every run derives from.
type Service struct {
	cron   gocron.Scheduler
	base   context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
	stopErr  error
}

func New() (*Service, error) {
	cron, err := gocron.NewScheduler(
		gocron.WithLocation(time.Local),
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithError(func(_ uuid.UUID, name string, err error) {
					log.Error().Err(err).Str("job_name", name).Msg("Scheduled job failed")
				}),
				gocron.AfterJobRunsWithPanic(func(_ uuid.UUID, name string, recovered any) {
					log.Error().Str("job_name", name).Interface("panic", recovered).Msg("Scheduled job panicked")
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	base, cancel := context.WithCancel(context.Background())
	return &Service{cron: cron, base: base, cancel: cancel}, nil
}

func (s *Service) Start() {
	if s == nil {
		log.Error().Msg("Scheduler start requested before initialization")
		return
	}
	log.Info().Int("jobs", len(s.cron.Jobs())).Msg("Scheduler starting")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return. Later calls return the first result.
func (s *Service) Stop() error {
	if s == nil {
		return ErrNotInitialized
	}
	s.stopOnce.Do(func() {
		s.cancel()
		s.stopErr = s.cron.Shutdown()
		log.Info().Err(s.stopErr).Msg("Scheduler stopped")
	})
	return s.stopErr
}

// AddJob schedules task on a five-field cron expression. A run still in progress when the
// next one is due pushes that one to the following slot.
func (s *Service) AddJob(name, cronExpr string, task Task) (gocron.Job, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	name, cronExpr = strings.TrimSpace(name), strings.TrimSpace(cronExpr)
	switch {
	case name == "":
		return nil, ErrEmptyJobName
	case cronExpr == "":
		return nil, ErrEmptyCronExpr
	}

	job, err := s.cron.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(s.run, name, task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}
	log.Info().Str("job_name", name).Str("cron", cronExpr).Msg("Scheduled job registered")
	return job, nil
}

// run is what gocron invokes. A returned error reaches the AfterJobRunsWithError listener.
func (s *Service) run(name string, task Task) error {
	logger := log.With().Str("job_name", name).Logger()
	ctx, cancel := context.WithTimeout(s.base, runTimeout)
	defer cancel()

	began := time.Now()
	err := task(logger.WithContext(ctx))
	logger.Debug().Dur("elapsed", time.Since(began)).Bool("ok", err == nil).Msg("Scheduled job finished")
	return err
}
