package scheduler

import (
	"context"
	"fmt"
	"time"

	"contract_workflow_backend/platform/logger"

	"github.com/robfig/cron/v3"
)

// LocalSweep runs the sweep in-process when no Redis is configured. Only one
// replica may run it.
type LocalSweep struct {
	worker   *Worker
	schedule cron.Schedule
	log      *logger.Logger
}

// NewLocalSweep parses cronSpec with the standard five-field cron syntax
// (descriptors such as "@daily" included), the same syntax the asynq
// scheduler accepts. Times are evaluated in the sweeper's timezone.
func NewLocalSweep(cronSpec string, sweeper Sweeper, log *logger.Logger) (*LocalSweep, error) {
	schedule, err := cron.ParseStandard(cronSpec)
	if err != nil {
		return nil, fmt.Errorf("parse sla sweep schedule %q: %w", cronSpec, err)
	}
	return &LocalSweep{worker: newWorker(sweeper, nil, log), schedule: schedule, log: log}, nil
}

func (l *LocalSweep) Run(ctx context.Context) {
	for {
		now := l.worker.now()
		wait := l.nextRun(now).Sub(now)
		l.log.Info("next sla sweep scheduled", "in", wait.Round(time.Second).String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			task, err := NewSLASweepTask(SLASweepPayload{})
			if err != nil {
				l.log.Error("build sweep task", "error", err)
				continue
			}
			if err := l.worker.handleSLASweep(ctx, task); err != nil {
				l.log.Error("sla sweep failed", "error", err)
			}
		}
	}
}

// nextRun is the first scheduled time strictly after now, in the sweeper's
// timezone.
func (l *LocalSweep) nextRun(now time.Time) time.Time {
	return l.schedule.Next(now.In(l.worker.sweeper.Location()))
}
