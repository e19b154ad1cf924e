package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-ledger-api/internal/middleware"
	"github.com/noah-isme/roster-ledger-api/internal/service"
)

// Handlers groups everything the API routes need.
type Handlers struct {
	Auth    *AuthHandler
	Roster  *RosterHandler
	Import  *ImportHandler
	Export  *ExportHandler
	Audit   *AuditHandler
	Admin   *AdminHandler
	Metrics *MetricsHandler
}

// Register mounts the probes at the root and the API under prefix.
func Register(r *gin.Engine, prefix string, auth *service.AuthService, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth), middleware.WithResponseMeta())
	{
		secured.GET("/auth/me", h.Auth.Me)
		secured.GET("/roster", h.Roster.List)
		secured.GET("/roster/persons/:id", h.Roster.Person)
	}

	admin := secured.Group("")
	admin.Use(middleware.AdminOnly())
	{
		admin.POST("/roster/workers", h.Roster.Add)
		admin.POST("/roster/persons/:id/transfer", h.Roster.Transfer)
		admin.POST("/roster/persons/:id/remove", h.Roster.Remove)
		admin.POST("/roster/persons/:id/edit", h.Roster.Edit)
		admin.POST("/roster/import", h.Import.Upload)
		admin.GET("/roster/export", h.Export.Download)
		admin.GET("/roster/audit", h.Audit.List)
		admin.POST("/admin/rebuild", h.Admin.Rebuild)
		admin.POST("/admin/wipe", h.Admin.Wipe)
		admin.GET("/admin/status", h.Admin.Status)
	}
}
