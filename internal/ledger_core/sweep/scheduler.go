package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fincontrol-ledger/internal/config"
	"github.com/robfig/cron/v3"
)

// Job represents a scheduled job
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler runs background jobs on cron schedules. A job that is still
// running when its next tick fires is skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *slog.Logger
}

func NewScheduler(ctx context.Context, logger *slog.Logger) *Scheduler {
	logger = logger.With("component", "scheduler")
	cronLogger := slogCronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		ctx:    ctx,
		logger: logger,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// AddJob registers job under a schedule accepted by config.ParseSchedule,
// e.g. "@every 1h", "0 */5 * * * *" or "@daily"
func (s *Scheduler) AddJob(schedule string, job Job) error {
	parsed, err := config.ParseSchedule(schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}

	s.cron.Schedule(parsed, cron.FuncJob(func() {
		s.run(job)
	}))

	s.logger.Info("Job registered", "schedule", schedule, "job", job.Name())
	return nil
}

// RunNow executes a job immediately, outside its schedule
func (s *Scheduler) RunNow(job Job) error {
	s.logger.Info("Running job immediately", "job", job.Name())
	return job.Run(s.ctx)
}

func (s *Scheduler) run(job Job) {
	if s.ctx.Err() != nil {
		return
	}
	started := time.Now()
	s.logger.Debug("Running job", "job", job.Name())

	if err := job.Run(s.ctx); err != nil {
		s.logger.Error("Job failed", "job", job.Name(), "error", err)
		return
	}
	s.logger.Debug("Job completed", "job", job.Name(), "duration", time.Since(started).String())
}

// slogCronLogger adapts slog to cron.Logger
type slogCronLogger struct {
	logger *slog.Logger
}

func (l slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
