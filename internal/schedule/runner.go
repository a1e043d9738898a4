// Package schedule re-runs ingestion on a cron expression and serves the
// loader's metrics and health while it waits.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bowerhall/graphcol/internal/logger"
)

// parser accepts standard 5-field cron expressions.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Parse validates a cron expression.
func Parse(spec string) (cron.Schedule, error) {
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Job is one scheduled ingestion.
type Job func(ctx context.Context) error

// Status describes the runner for health checks.
type Status struct {
	Schedule  string    `json:"schedule"`
	Running   bool      `json:"running"`
	NextRun   time.Time `json:"nextRun"`
	LastRun   time.Time `json:"lastRun,omitzero"`
	LastError string    `json:"lastError,omitempty"`
	Runs      int       `json:"runs"`
}

// Runner fires a Job whenever its schedule comes due. Jobs never overlap: a
// run that takes longer than the interval delays the next one.
type Runner struct {
	spec  string
	sched cron.Schedule
	job   Job
	loc   *time.Location

	// Tick is how often the schedule is checked.
	Tick time.Duration
	now  func() time.Time

	mu     sync.Mutex
	status Status
}

func NewRunner(spec string, loc *time.Location, job Job) (*Runner, error) {
	sched, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	r := &Runner{
		spec:  spec,
		sched: sched,
		job:   job,
		loc:   loc,
		Tick:  10 * time.Second,
		now:   time.Now,
	}
	r.status = Status{Schedule: spec, NextRun: sched.Next(r.now().In(loc))}

	return r, nil
}

// Status returns a snapshot of the runner state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Run checks the schedule every Tick until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Tick)
	defer ticker.Stop()

	logger.Info("schedule started", "schedule", r.spec, "next", r.Status().NextRun)

	for {
		select {
		case <-ctx.Done():
			logger.Debug("schedule stopping")
			return
		case <-ticker.C:
			r.check(ctx)
		}
	}
}

// check fires the job if it is due and reports whether it did.
func (r *Runner) check(ctx context.Context) bool {
	now := r.now().In(r.loc)

	r.mu.Lock()
	due := !now.Before(r.status.NextRun)
	if due {
		r.status.Running = true
	}
	r.mu.Unlock()

	if !due {
		return false
	}

	logger.Info("scheduled ingestion starting", "schedule", r.spec)
	err := r.job(ctx)
	if err != nil {
		logger.Error("scheduled ingestion failed", "error", err)
	}

	finished := r.now().In(r.loc)

	r.mu.Lock()
	r.status.Running = false
	r.status.LastRun = finished
	r.status.Runs++
	r.status.LastError = ""
	if err != nil {
		r.status.LastError = err.Error()
	}
	r.status.NextRun = r.sched.Next(finished)
	next := r.status.NextRun
	r.mu.Unlock()

	logger.Debug("schedule next run", "next", next)
	return true
}
