// Package maintenance runs scheduled housekeeping sweeps: expiring stale
// invites and failing generations stuck in processing.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/studioshot/platform/internal/app/services/generations"
	"github.com/studioshot/platform/internal/app/services/teams"
	"github.com/studioshot/platform/internal/app/storage"
	"github.com/studioshot/platform/internal/app/system"
	"github.com/studioshot/platform/pkg/logger"
)

var _ system.Service = (*Sweeper)(nil)

// Sweeper schedules the housekeeping sweeps with cron.
type Sweeper struct {
	teams       *teams.Service
	generations *generations.Service
	store       storage.GenerationStore
	schedule    string
	stuckAfter  time.Duration
	log         *logger.Logger

	cron *cron.Cron
}

// NewSweeper constructs a sweeper. schedule is a cron expression (robfig
// syntax, "@every 10m" style included); stuckAfter is how long a generation
// may sit in processing before it is declared dead.
func NewSweeper(teamSvc *teams.Service, genSvc *generations.Service, store storage.GenerationStore,
	schedule string, stuckAfter time.Duration, log *logger.Logger) *Sweeper {
	if schedule == "" {
		schedule = "@every 10m"
	}
	if stuckAfter <= 0 {
		stuckAfter = 15 * time.Minute
	}
	if log == nil {
		log = logger.NewDefault("maintenance")
	}
	return &Sweeper{
		teams:       teamSvc,
		generations: genSvc,
		store:       store,
		schedule:    schedule,
		stuckAfter:  stuckAfter,
		log:         log,
	}
}

func (s *Sweeper) Name() string { return "maintenance-sweeper" }

func (s *Sweeper) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.log.WithField("schedule", s.schedule).Info("maintenance sweeper started")
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("maintenance sweeper stopped")
	return nil
}

// Sweep runs both sweeps once.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	expired, err := s.teams.ExpireInvites(ctx, now)
	if err != nil {
		s.log.WithError(err).Warn("invite sweep failed")
	} else if expired > 0 {
		s.log.WithField("count", expired).Info("expired stale invites")
	}

	failed, err := s.FailStuck(ctx, now)
	if err != nil {
		s.log.WithError(err).Warn("stuck generation sweep failed")
	} else if failed > 0 {
		s.log.WithField("count", failed).Warn("failed stuck generations")
	}
}

// FailStuck fails generations that have sat in processing beyond the
// deadline and returns how many were flipped. Failing refunds any charged
// credit.
func (s *Sweeper) FailStuck(ctx context.Context, now time.Time) (int, error) {
	processing, err := s.store.ListProcessingGenerations(ctx)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, g := range processing {
		started := g.StartedAt
		if started.IsZero() {
			started = g.UpdatedAt
		}
		if now.Sub(started) < s.stuckAfter {
			continue
		}
		if _, err := s.generations.Fail(ctx, g.ID, "timed out in processing"); err != nil {
			s.log.WithError(err).WithField("generation_id", g.ID).Warn("failed to fail stuck generation")
			continue
		}
		failed++
	}
	return failed, nil
}
