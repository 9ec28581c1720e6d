package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is the unit of work run on every tick.
type Job func(ctx context.Context)

// Scheduler runs a job on a cron schedule. A tick that fires while the previous run is
// still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	schedule string
	job      Job
	logger   *zap.Logger
	running  atomic.Bool
}

// New creates a scheduler for a standard five-field cron expression or a descriptor
// such as "@every 5m".
func New(schedule string, job Job, logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger.Sugar()})),
		),
		ctx:      ctx,
		cancel:   cancel,
		schedule: schedule,
		job:      job,
		logger:   logger,
	}
}

// Start registers the job and starts ticking.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.logger.Debug("scheduled refresh triggered")
		s.job(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running.Store(true)
	s.logger.Info("scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop stops ticking and waits for a running job to return.
func (s *Scheduler) Stop() {
	s.running.Store(false)
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// IsRunning reports whether the scheduler has been started and not yet stopped.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
