// Package scheduler runs periodic store maintenance on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/wfgraph/internal/logging"
	"github.com/rendis/wfgraph/pkg/schema"
)

// Task is the unit of work a job runs.
type Task func(ctx context.Context) error

// Maintainer is the part of the store the vacuum task needs.
type Maintainer interface {
	Vacuum(ctx context.Context) error
}

// VacuumTask compacts m on every run.
func VacuumTask(m Maintainer) Task {
	return func(ctx context.Context) error { return m.Vacuum(ctx) }
}

// Job is a named task with its cron schedule and last outcome.
type Job struct {
	Name          string
	Cron          string
	NextRunAt     time.Time
	LastRunAt     *time.Time
	LastRunStatus string // success | error
	LastError     string

	task Task
}

// Scheduler checks registered jobs on a fixed interval and runs those that
// are due.
type Scheduler struct {
	parser   cron.Parser
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	jobsMu sync.Mutex
	jobs   map[string]*Job

	inflightMu sync.Mutex
	inflight   map[string]struct{} // job names currently executing (dedup)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets how often due jobs are checked. Default one minute.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Scheduler. A nil logger discards output.
func New(logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Scheduler{
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:   logger,
		interval: time.Minute,
		now:      func() time.Time { return time.Now().UTC() },
		jobs:     make(map[string]*Job),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers task under name. Re-adding a name replaces the job.
func (s *Scheduler) Add(name, cronExpr string, task Task) error {
	if name == "" || task == nil {
		return schema.NewError(schema.ErrCodeValidation, "scheduler: job needs a name and a task")
	}
	next, err := s.CalculateNextRun(cronExpr, s.now())
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "scheduler: job %q", name).WithCause(err)
	}

	s.jobsMu.Lock()
	s.jobs[name] = &Job{Name: name, Cron: cronExpr, NextRunAt: next, task: task}
	s.jobsMu.Unlock()

	s.logger.Info("job scheduled",
		slog.String("job", name),
		slog.String("cron", cronExpr),
		slog.Time("next_run_at", next))
	return nil
}

// Jobs returns copies of the registered jobs sorted by name.
func (s *Scheduler) Jobs() []Job {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		cp := *j
		cp.task = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Start launches the background loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs every job whose NextRunAt has passed.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	for _, name := range s.dueJobs(now) {
		if !s.tryAcquire(name) {
			continue // already running (dedup)
		}
		if err := s.runJob(ctx, name, now); err != nil {
			s.logger.Error("scheduled job failed",
				slog.String("job", name),
				slog.String("error", err.Error()))
		}
		s.releaseJob(name)
	}
}

func (s *Scheduler) dueJobs(now time.Time) []string {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	var due []string
	for name, j := range s.jobs {
		if !j.NextRunAt.After(now) {
			due = append(due, name)
		}
	}
	sort.Strings(due)
	return due
}

// RunNow runs the named job immediately, outside its schedule. The next
// scheduled run is recomputed from now.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.jobsMu.Lock()
	_, ok := s.jobs[name]
	s.jobsMu.Unlock()
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "scheduler: job %q not found", name)
	}
	if !s.tryAcquire(name) {
		return fmt.Errorf("scheduler: job %q is already running", name)
	}
	defer s.releaseJob(name)
	return s.runJob(ctx, name, s.now())
}

// runJob executes the task and records its outcome. The returned error is
// the task's own.
func (s *Scheduler) runJob(ctx context.Context, name string, now time.Time) error {
	s.jobsMu.Lock()
	job, ok := s.jobs[name]
	if !ok {
		s.jobsMu.Unlock()
		return nil
	}
	task, cronExpr := job.task, job.Cron
	s.jobsMu.Unlock()

	s.logger.Info("running scheduled job", slog.String("job", name))
	runErr := task(ctx)

	next, err := s.CalculateNextRun(cronExpr, now)
	if err != nil {
		return fmt.Errorf("calculate next run for job %q: %w", name, err)
	}

	s.jobsMu.Lock()
	if j, ok := s.jobs[name]; ok {
		ran := now
		j.LastRunAt = &ran
		j.NextRunAt = next
		j.LastRunStatus = "success"
		j.LastError = ""
		if runErr != nil {
			j.LastRunStatus = "error"
			j.LastError = runErr.Error()
		}
	}
	s.jobsMu.Unlock()
	return runErr
}

// tryAcquire returns true and marks the job as in-flight if it is not already running.
func (s *Scheduler) tryAcquire(name string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[name]; ok {
		return false
	}
	s.inflight[name] = struct{}{}
	return true
}

// releaseJob removes the job from the in-flight set.
func (s *Scheduler) releaseJob(name string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, name)
}

// CalculateNextRun computes the next run time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}
