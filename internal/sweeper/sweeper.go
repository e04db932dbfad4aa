// Package sweeper runs the periodic jobs: persisting expiry of overdue
// chores and reconciling cached balances against the ledger.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 2 * time.Minute

// Jobs is the work the sweeper schedules.
type Jobs interface {
	// Sweep persists EXPIRED for overdue chores and reports how many changed.
	Sweep(ctx context.Context) (int, error)
	// ReconcileAll checks every family's balances against the ledger.
	ReconcileAll(ctx context.Context) error
}

type Sweeper struct {
	jobs   Jobs
	cron   *cron.Cron
	logger *slog.Logger
}

// New schedules jobs on the given cron specs. An empty spec disables that
// job.
func New(jobs Jobs, sweepSpec, reconcileSpec string, logger *slog.Logger) (*Sweeper, error) {
	logger = logger.With("component", "sweeper")
	cl := cronLogger{logger}
	s := &Sweeper{
		jobs:   jobs,
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger: logger,
	}
	if sweepSpec != "" {
		if _, err := s.cron.AddFunc(sweepSpec, s.sweep); err != nil {
			return nil, fmt.Errorf("schedule sweep %q: %w", sweepSpec, err)
		}
	}
	if reconcileSpec != "" {
		if _, err := s.cron.AddFunc(reconcileSpec, s.reconcile); err != nil {
			return nil, fmt.Errorf("schedule reconcile %q: %w", reconcileSpec, err)
		}
	}
	return s, nil
}

// Start runs one sweep immediately, to catch chores that expired while the
// process was down, then starts the schedule.
func (s *Sweeper) Start() {
	s.sweep()
	s.cron.Start()
	s.logger.Info("sweeper started", "jobs", len(s.cron.Entries()))
}

// Stop stops the schedule and waits for running jobs to finish or ctx to
// end.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.jobs.Sweep(ctx)
	if err != nil {
		s.logger.Error("sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired overdue chores", "count", n)
	}
}

func (s *Sweeper) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.jobs.ReconcileAll(ctx); err != nil {
		s.logger.Error("reconcile failed", "error", err)
	}
}

// cronLogger adapts slog to cron's logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
