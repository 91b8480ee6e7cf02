package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"call-receptionist/internal/config"
	"call-receptionist/internal/httpapi"
	"call-receptionist/internal/metrics"
	"call-receptionist/internal/rbac"
	"call-receptionist/internal/telephony"
	"call-receptionist/pkg/logger"
)

const (
	voicePath  = "/webhooks/twilio/voice"
	gatherPath = "/webhooks/twilio/gather"
)

type publicDeps struct {
	cfg     config.Config
	engine  telephony.TurnHandler
	metrics *metrics.Recorder
	health  func(ctx context.Context) error
}

// registerPublicRoutes wires health, metrics and the Twilio webhooks.
// Keep this file free of business logic.
func registerPublicRoutes(r *gin.Engine, d publicDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		if d.health != nil {
			if err := d.health(c.Request.Context()); err != nil {
				logger.FromGin(c).Warn("health check failed", "err", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(d.metrics.Handler()))

	h := telephony.TwilioWebhookHandler{
		Engine: d.engine,
		Gather: telephony.GatherOptions{Action: d.cfg.App.PublicBaseURL + gatherPath},
	}
	hooks := r.Group("")
	if d.cfg.Twilio.ValidateSignature {
		hooks.Use(telephony.RequireTwilioSignature(d.cfg.Twilio.AuthToken, d.cfg.App.PublicBaseURL))
	}
	hooks.POST(voicePath, h.HandleVoice)
	hooks.POST(gatherPath, h.HandleGather)
}

// registerProtectedRoutes wires the tenant-scoped operator API.
func registerProtectedRoutes(r *gin.Engine, authMW, rateMW gin.HandlerFunc, h httpapi.Handlers) {
	v1 := r.Group("/v1")
	v1.Use(rateMW, authMW)
	v1.Use(httpapi.RequireTenantAndAnyRole(rbac.RoleOwner, rbac.RoleStaff)...)
	{
		v1.GET("/calls", h.ListCalls)
		v1.GET("/messages", h.ListMessages)
		v1.GET("/reports/summary", h.Summary)
	}
}
