// Package http assembles the gin router from modules. Each module mounts its
// own routes; the router only owns the shared middleware chain and the
// health endpoints.
package http

import (
	"context"

	"contract_workflow_backend/platform/config"
	"contract_workflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// HealthChecker backs /api/ready. A nil checker means always ready.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what the composition root hands to router.New.
type App struct {
	Config  config.HTTPConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}

// Module mounts one bounded context's routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is passed to Module.RegisterRoutes.
type RouterContext struct {
	Engine *gin.Engine
	V1     *gin.RouterGroup
	// Internal sits under V1 behind rate limiting and service-token auth.
	Internal *gin.RouterGroup
	Config   config.HTTPConfig
}
