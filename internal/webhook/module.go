// Package webhook is the ingress for mailbox change notifications and the
// internal mail API.
package webhook

import (
	apphttp "contract_workflow_backend/internal/http"
	"contract_workflow_backend/platform/httpkit"
	"contract_workflow_backend/platform/logger"
	"contract_workflow_backend/platform/validator"
)

// Scopes required on the internal endpoints.
const (
	ScopeProcess   = "mail:process"
	ScopeSend      = "mail:send"
	ScopeSubscribe = "mail:subscribe"
)

const (
	notificationBodyLimit = 1 << 20
	ingestionBodyLimit    = 64 << 20
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the webhook module.
func NewModule(service *Service, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(service, val, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public notification endpoint (clientState checked per notification)
	notifications := ctx.Engine.Group("/webhook", MaxBodyBytes(notificationBodyLimit))
	notifications.GET("", m.handler.HandleNotification)
	notifications.POST("", m.handler.HandleNotification)

	// Internal mail API (service token)
	ctx.Internal.POST("/incoming-email", MaxBodyBytes(ingestionBodyLimit), httpkit.RequireScope(ScopeProcess), m.handler.HandleIncomingEmail)
	ctx.Internal.POST("/send-email", httpkit.RequireScope(ScopeSend), m.handler.HandleSendEmail)
	ctx.Internal.GET("/subscribe", httpkit.RequireScope(ScopeSubscribe), m.handler.HandleSubscribe)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
