package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/gauge-data-etl/internal/domain"
	"github.com/couchcryptid/gauge-data-etl/internal/observability"
)

// ErrJobBusy means another job held the store lock when a scheduled run was due.
var ErrJobBusy = errors.New("another job is running")

// JobFunc is one run of a job.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	schedule string
	run      JobFunc
	entry    cron.EntryID
	status   domain.JobStatus
}

// Runner schedules the ingest and migrate jobs. At most one job touches the
// stores at a time: a scheduled run that finds another job running is skipped,
// and cron never re-enters a job whose previous run is still active.
type Runner struct {
	cron    *cron.Cron
	logger  *slog.Logger
	metrics *observability.Metrics

	// exclusive serializes job runs across all jobs.
	exclusive sync.Mutex

	mu   sync.Mutex
	jobs []*job
	ctx  context.Context
}

// NewRunner creates a Runner with an empty schedule.
func NewRunner(logger *slog.Logger, metrics *observability.Metrics) *Runner {
	cl := cronLogger{logger: logger}
	return &Runner{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		metrics: metrics,
		ctx:     context.Background(),
	}
}

// Register adds a job. An empty schedule registers the job for Trigger only.
func (r *Runner) Register(name, schedule string, fn JobFunc) error {
	j := &job{
		name:     name,
		schedule: schedule,
		run:      fn,
		status:   domain.JobStatus{Name: name, Schedule: schedule},
	}
	if schedule != "" {
		id, err := r.cron.AddFunc(schedule, func() { r.scheduled(j) })
		if err != nil {
			return fmt.Errorf("schedule %s %q: %w", name, schedule, err)
		}
		j.entry = id
	}
	r.mu.Lock()
	r.jobs = append(r.jobs, j)
	r.mu.Unlock()
	return nil
}

// Start begins running scheduled jobs with ctx as their parent context.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
	r.cron.Start()
	r.logger.Info("scheduler started", "jobs", len(r.jobs))
}

// Stop halts the schedule and waits for a running job, scheduled or
// triggered, to finish or ctx to expire, whichever comes first.
func (r *Runner) Stop(ctx context.Context) error {
	cronDone := r.cron.Stop()
	idle := make(chan struct{})
	go func() {
		<-cronDone.Done()
		r.exclusive.Lock()
		r.exclusive.Unlock() //nolint:staticcheck // wait for a triggered run
		close(idle)
	}()
	select {
	case <-idle:
		r.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// Trigger runs a registered job now, waiting for any other running job to
// finish first.
func (r *Runner) Trigger(ctx context.Context, name string) error {
	j := r.lookup(name)
	if j == nil {
		return fmt.Errorf("unknown job %q", name)
	}
	r.exclusive.Lock()
	defer r.exclusive.Unlock()
	return r.execute(ctx, j)
}

func (r *Runner) scheduled(j *job) {
	if !r.exclusive.TryLock() {
		r.logger.Warn("skipping scheduled run", "job", j.name, "error", ErrJobBusy)
		r.metrics.JobRuns.WithLabelValues(j.name, "skipped").Inc()
		return
	}
	defer r.exclusive.Unlock()

	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	_ = r.execute(ctx, j)
}

func (r *Runner) execute(ctx context.Context, j *job) error {
	start := time.Now()
	r.mu.Lock()
	j.status.Running = true
	j.status.LastStart = domain.Now().UTC()
	r.mu.Unlock()
	r.metrics.JobRunning.WithLabelValues(j.name).Set(1)
	r.logger.Info("job started", "job", j.name)

	err := j.run(ctx)

	elapsed := time.Since(start)
	r.metrics.JobRunning.WithLabelValues(j.name).Set(0)
	r.metrics.JobDuration.WithLabelValues(j.name).Observe(elapsed.Seconds())

	r.mu.Lock()
	j.status.Running = false
	j.status.LastEnd = domain.Now().UTC()
	j.status.Runs++
	if err != nil {
		j.status.Failures++
		j.status.LastError = err.Error()
	} else {
		j.status.LastError = ""
	}
	r.mu.Unlock()

	if err != nil {
		r.metrics.JobRuns.WithLabelValues(j.name, "error").Inc()
		r.logger.Error("job failed", "job", j.name, "duration", elapsed, "error", err)
		return err
	}
	r.metrics.JobRuns.WithLabelValues(j.name, "success").Inc()
	r.metrics.JobLastSuccess.WithLabelValues(j.name).SetToCurrentTime()
	r.logger.Info("job finished", "job", j.name, "duration", elapsed)
	return nil
}

func (r *Runner) lookup(name string) *job {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.name == name {
			return j
		}
	}
	return nil
}

// CheckReadiness returns nil once every scheduled job has completed at least
// one successful run.
func (r *Runner) CheckReadiness(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.schedule == "" {
			continue
		}
		if j.status.Runs-j.status.Failures == 0 {
			return fmt.Errorf("job %s has not succeeded yet", j.name)
		}
	}
	return nil
}

// JobStatuses returns a snapshot of every registered job in registration order.
func (r *Runner) JobStatuses() []domain.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.JobStatus, 0, len(r.jobs))
	for _, j := range r.jobs {
		st := j.status
		if j.entry != 0 {
			st.NextRun = r.cron.Entry(j.entry).Next
		}
		out = append(out, st)
	}
	return out
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
