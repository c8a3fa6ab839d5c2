package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"contract_workflow_backend/internal/bootstrap"
	"contract_workflow_backend/internal/scheduler"
	"contract_workflow_backend/platform/config"
	"contract_workflow_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "cron", cfg.GetSLASweepCron(), "timezone", cfg.GetTargetTimezone())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize components", "error", err)
		panic("failed to initialize components: " + err.Error())
	}
	defer comps.Close()

	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; running the SLA sweep in-process (single replica only)")
		local, err := scheduler.NewLocalSweep(cfg.GetSLASweepCron(), comps.Sweeper, log)
		if err != nil {
			log.Error("failed to initialize local sweep", "error", err)
			panic("failed to initialize local sweep: " + err.Error())
		}
		local.Run(ctx)
		return
	}

	worker, err := scheduler.NewWorker(cfg, comps.Sweeper, comps.Bus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	comps.Bus.Wait()
}
