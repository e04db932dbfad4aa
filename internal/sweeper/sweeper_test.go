package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukerupert/marinda/internal/logging"
)

type countingJobs struct {
	sweeps     atomic.Int32
	reconciles atomic.Int32
	sweepErr   error
}

func (j *countingJobs) Sweep(context.Context) (int, error) {
	j.sweeps.Add(1)
	return 1, j.sweepErr
}

func (j *countingJobs) ReconcileAll(context.Context) error {
	j.reconciles.Add(1)
	return nil
}

func TestNewRejectsBadSpec(t *testing.T) {
	if _, err := New(&countingJobs{}, "every minute", "", logging.Discard()); err == nil {
		t.Error("expected error for invalid sweep spec")
	}
	if _, err := New(&countingJobs{}, "", "61 * * * *", logging.Discard()); err == nil {
		t.Error("expected error for invalid reconcile spec")
	}
}

func TestStartSweepsImmediately(t *testing.T) {
	jobs := &countingJobs{}
	s, err := New(jobs, "@hourly", "@hourly", logging.Discard())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()
	defer s.Stop(context.Background())

	if got := jobs.sweeps.Load(); got != 1 {
		t.Errorf("sweeps after start = %d, want 1", got)
	}
	if got := len(s.cron.Entries()); got != 2 {
		t.Errorf("scheduled entries = %d, want 2", got)
	}
}

func TestScheduleRunsJobs(t *testing.T) {
	jobs := &countingJobs{sweepErr: errors.New("database is locked")}
	s, err := New(jobs, "@every 1s", "@every 1s", logging.Discard())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(5 * time.Second)
	for jobs.reconciles.Load() == 0 || jobs.sweeps.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("jobs did not run: sweeps=%d reconciles=%d", jobs.sweeps.Load(), jobs.reconciles.Load())
		}
		time.Sleep(50 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestEmptySpecsDisableJobs(t *testing.T) {
	s, err := New(&countingJobs{}, "", "", logging.Discard())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := len(s.cron.Entries()); got != 0 {
		t.Errorf("entries = %d, want 0", got)
	}
}
