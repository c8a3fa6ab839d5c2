// Package db opens the Postgres pool and the embedded SQLite database and
// applies their migrations.
package db

import (
	"context"
	"fmt"
	"time"

	"contract_workflow_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "contract-workflow"

// NewPool connects to Postgres and verifies the connection with a ping.
// Sessions run in UTC; civil datetimes are stored as strings in the
// target timezone by the stores themselves.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pc.MaxConns = 8
	pc.MinConns = 1
	pc.MaxConnIdleTime = 15 * time.Minute
	pc.HealthCheckPeriod = time.Minute
	pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	pc.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
