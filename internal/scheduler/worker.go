package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contract_workflow_backend/internal/deadlines"
	"contract_workflow_backend/internal/events"
	"contract_workflow_backend/platform/config"
	"contract_workflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Sweeper runs one SLA sweep for a day.
type Sweeper interface {
	Sweep(ctx context.Context, today time.Time) (deadlines.SweepResult, error)
	Location() *time.Location
}

// Worker consumes sweep tasks and registers the daily periodic sweep.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	sweeper   Sweeper
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

func NewWorker(cfg config.SchedulerConfig, sweeper Sweeper, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := queueName(cfg)
	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 4
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	periodic := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: sweeper.Location(),
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
				log.Error("periodic sweep enqueue failed", "error", err)
			}
		},
	})
	task, err := NewSLASweepTask(SLASweepPayload{})
	if err != nil {
		return nil, err
	}
	if _, err := periodic.Register(cfg.GetSLASweepCron(), task, sweepOptions(queue)...); err != nil {
		return nil, fmt.Errorf("register sla sweep %q: %w", cfg.GetSLASweepCron(), err)
	}

	mux := asynq.NewServeMux()
	w := newWorker(sweeper, bus, log)
	w.server = server
	w.scheduler = periodic
	w.mux = mux

	mux.HandleFunc(TaskSLASweep, w.handleSLASweep)

	return w, nil
}

func newWorker(sweeper Sweeper, bus events.Bus, log *logger.Logger) *Worker {
	return &Worker{sweeper: sweeper, bus: bus, log: log, now: time.Now}
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if err := w.scheduler.Start(); err != nil {
		w.log.Error("periodic scheduler failed to start", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		w.scheduler.Shutdown()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleSLASweep runs the sweep. Failures are never retried: a missed day
// is not back-filled.
func (w *Worker) handleSLASweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSLASweepPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	today, err := payload.sweepDate(w.now(), w.sweeper.Location())
	if err != nil {
		return fmt.Errorf("%w: sweep date %q: %v", asynq.SkipRetry, payload.Date, err)
	}

	res, err := w.sweeper.Sweep(ctx, today)
	if errors.Is(err, deadlines.ErrSweepInProgress) {
		w.log.Warn("sla sweep skipped, another run in progress", "date", res.Date)
		return nil
	}

	w.log.WorkflowEvent("sla_sweep", outcome(err),
		"date", res.Date, "checked", res.Checked, "alerted", res.Alerted, "deleted", res.Deleted)
	if w.bus != nil {
		w.bus.Publish(ctx, events.DeadlineSwept{
			BaseEvent: events.NewBaseEvent(),
			Date:      res.Date,
			Checked:   res.Checked,
			Alerted:   res.Alerted,
			Deleted:   res.Deleted,
		})
	}
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "partial"
	}
	return "completed"
}
