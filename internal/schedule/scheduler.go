// Package schedule runs the extract and transform stages on cron schedules.
package schedule

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pipeline is the unit of work the scheduler drives: an extract followed by a
// full transform.
type Pipeline interface {
	RunFrequent(ctx context.Context) error
	RunDaily(ctx context.Context) error
}

// Scheduler wraps a cron runner. Jobs that are still running when their next
// tick arrives are skipped rather than stacked.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

func New(log *zap.Logger) *Scheduler {
	log = log.Named("schedule")
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger{log}),
			cron.Recover(cronLogger{log}),
		)),
		log: log,
	}
}

// Register installs the frequent and daily jobs. The context passed here
// bounds every job execution.
func (s *Scheduler) Register(ctx context.Context, p Pipeline, frequentSpec, dailySpec string) error {
	if _, err := s.cron.AddFunc(frequentSpec, func() {
		if err := p.RunFrequent(ctx); err != nil {
			s.log.Error("frequent pipeline run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(dailySpec, func() {
		if err := p.RunDaily(ctx); err != nil {
			s.log.Error("daily pipeline run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	return nil
}

// Start begins scheduling and blocks until the context is done, then waits
// for any running job to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}
