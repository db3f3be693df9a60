// Package jobs runs recurring background maintenance.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aim840912/haode-api/pkg/logger"
)

// CacheWarmer re-primes hot cache keys.
type CacheWarmer interface {
	WarmUpCache(ctx context.Context, ttl time.Duration) int
}

// AuditSweeper prunes audit entries older than the retention window.
type AuditSweeper interface {
	Sweep(ctx context.Context, retention time.Duration) (int, error)
}

// Options tunes the schedules. Zero values fall back to defaults.
type Options struct {
	WarmInterval   time.Duration // default 10m
	WarmTTL        time.Duration // default 5m
	SweepSchedule  string        // cron spec, default "0 3 * * *"
	AuditRetention time.Duration // default 90 days
}

// Scheduler drives periodic cache warm-up and audit retention on a
// cron runner. It satisfies the lifecycle Service interface so the
// system manager starts and stops it with everything else.
type Scheduler struct {
	cron    *cron.Cron
	warmer  CacheWarmer
	sweeper AuditSweeper
	opts    Options
	log     *logger.Logger
}

func New(warmer CacheWarmer, sweeper AuditSweeper, opts Options, log *logger.Logger) *Scheduler {
	if opts.WarmInterval <= 0 {
		opts.WarmInterval = 10 * time.Minute
	}
	if opts.WarmTTL <= 0 {
		opts.WarmTTL = 5 * time.Minute
	}
	if opts.SweepSchedule == "" {
		opts.SweepSchedule = "0 3 * * *"
	}
	if opts.AuditRetention <= 0 {
		opts.AuditRetention = 90 * 24 * time.Hour
	}
	if log == nil {
		log = logger.NewDefault("jobs")
	}
	return &Scheduler{
		cron:    cron.New(),
		warmer:  warmer,
		sweeper: sweeper,
		opts:    opts,
		log:     log,
	}
}

func (s *Scheduler) Name() string { return "scheduler" }

// Start registers the jobs and launches the cron runner. The warm-up
// also fires once immediately so a fresh process serves from cache.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.warmer != nil {
		spec := fmt.Sprintf("@every %s", s.opts.WarmInterval)
		if _, err := s.cron.AddFunc(spec, s.warmCache); err != nil {
			return fmt.Errorf("schedule cache warm-up: %w", err)
		}
		go s.warmCache()
	}
	if s.sweeper != nil {
		if _, err := s.cron.AddFunc(s.opts.SweepSchedule, s.sweepAudit); err != nil {
			return fmt.Errorf("schedule audit sweep: %w", err)
		}
	}
	s.cron.Start()
	s.log.WithFields(map[string]any{
		"warm_interval":  s.opts.WarmInterval.String(),
		"sweep_schedule": s.opts.SweepSchedule,
	}).Info("scheduler started")
	return nil
}

// Stop halts the cron runner and waits for running jobs to finish,
// bounded by the caller's context.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) warmCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	primed := s.warmer.WarmUpCache(ctx, s.opts.WarmTTL)
	s.log.WithField("primed", primed).Debugf("cache warm-up complete")
}

func (s *Scheduler) sweepAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	removed, err := s.sweeper.Sweep(ctx, s.opts.AuditRetention)
	if err != nil {
		s.log.WithError(err).Warnf("audit sweep failed")
		return
	}
	if removed > 0 {
		s.log.WithField("removed", removed).Info("audit sweep pruned old entries")
	}
}
