// Package router builds the gin engine from the registered modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "contract_workflow_backend/internal/http"
	"contract_workflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	internalRatePerSecond = 5
	internalBurst         = 20
	healthTimeout         = 2 * time.Second
)

// New creates the engine: shared middleware, health endpoints, and each
// module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(httpkit.RequestLogger(app.Logger))

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/ready", func(c *gin.Context) {
		if app.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := app.Health.Ping(ctx); err != nil {
				app.Logger.Warn("readiness check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := engine.Group("/api/v1")
	limiter := httpkit.NewIPRateLimiter(rate.Limit(internalRatePerSecond), internalBurst, app.Logger)
	internal := v1.Group("")
	internal.Use(limiter.RateLimit(), httpkit.ServiceAuthRequired(app.Config))

	rctx := &apphttp.RouterContext{
		Engine:   engine,
		V1:       v1,
		Internal: internal,
		Config:   app.Config,
	}
	for _, m := range app.Modules {
		m.RegisterRoutes(rctx)
		app.Logger.Debug("module routes registered", "module", m.Name())
	}
	return engine
}
