package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"contract_workflow_backend/internal/bootstrap"
	apphttp "contract_workflow_backend/internal/http"
	"contract_workflow_backend/internal/http/router"
	"contract_workflow_backend/internal/webhook"
	"contract_workflow_backend/platform/config"
	"contract_workflow_backend/platform/logger"
	"contract_workflow_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.GetHTTPAddr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize components", "error", err)
		panic("failed to initialize components: " + err.Error())
	}
	defer comps.Close()
	comps.Bus.SetAsyncTimeout(2 * cfg.GetReasoningTimeout())

	// ========================================================================
	// Workflow
	// ========================================================================

	workflowSvc, err := comps.Workflow()
	if err != nil {
		log.Error("failed to initialize workflow", "error", err)
		panic("failed to initialize workflow: " + err.Error())
	}

	webhookSvc := webhook.NewService(comps.DedupCache(), comps.Bus, workflowSvc, comps.Notifier, comps.Graph, cfg, log)
	webhookModule := webhook.NewModule(webhookSvc, validator.New(), log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: comps.Health(),
		Modules: []apphttp.Module{
			webhookModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.GetHTTPAddr())
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown", "error", err)
		}
		// In-flight notifications finish before stores close.
		comps.Bus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}
