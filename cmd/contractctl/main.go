package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"contract_workflow_backend/internal/bootstrap"
	"contract_workflow_backend/internal/cli"
	"contract_workflow_backend/platform/config"
	"contract_workflow_backend/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	load := func(ctx context.Context) (*bootstrap.Components, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		// Logs go to stderr so JSON output stays clean.
		log := logger.NewWithWriter(cfg.Env, io.Writer(os.Stderr))
		return bootstrap.Build(ctx, cfg, log)
	}

	if err := cli.NewRootCommand(load).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
