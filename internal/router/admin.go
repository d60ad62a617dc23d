package router

import (
	"keybroker/internal/handler"
	"keybroker/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AdminRouter struct {
	adminAuth       *middleware.AdminAuth
	providerHandler *handler.AdminProviderHandler
	poolHandler     *handler.AdminPoolHandler
	sessionHandler  *handler.AdminSessionHandler
	usageHandler    *handler.AdminUsageHandler
	systemHandler   *handler.AdminSystemHandler
}

func NewAdminRouter(
	adminAuth *middleware.AdminAuth,
	providerHandler *handler.AdminProviderHandler,
	poolHandler *handler.AdminPoolHandler,
	sessionHandler *handler.AdminSessionHandler,
	usageHandler *handler.AdminUsageHandler,
	systemHandler *handler.AdminSystemHandler,
) *AdminRouter {
	return &AdminRouter{
		adminAuth:       adminAuth,
		providerHandler: providerHandler,
		poolHandler:     poolHandler,
		sessionHandler:  sessionHandler,
		usageHandler:    usageHandler,
		systemHandler:   systemHandler,
	}
}

func (ar *AdminRouter) RegisterRoutes(r *gin.Engine) {
	admin := r.Group("/admin")
	admin.Use(ar.adminAuth.Handler())
	{
		admin.GET("/providers", ar.providerHandler.List)
		admin.GET("/providers/:name", ar.providerHandler.Get)
		admin.PUT("/providers", ar.providerHandler.Upsert)
		admin.DELETE("/providers/:name", ar.providerHandler.Delete)

		admin.GET("/pools", ar.poolHandler.List)
		admin.POST("/pools", ar.poolHandler.Create)
		admin.PUT("/pools/:poolID", ar.poolHandler.Update)
		admin.GET("/pools/:poolID/health", ar.poolHandler.Health)
		admin.GET("/allocations", ar.poolHandler.Allocations)

		admin.GET("/sessions", ar.sessionHandler.List)
		admin.DELETE("/sessions/:userID", ar.sessionHandler.Kick)
		admin.POST("/notify", ar.sessionHandler.Notify)

		admin.GET("/usage/:userID", ar.usageHandler.Get)
		admin.PUT("/usage/:userID", ar.usageHandler.Update)

		admin.GET("/stats", ar.systemHandler.Summary)
		admin.GET("/dynamic-key", ar.systemHandler.GetDynamicKey)
		admin.POST("/dynamic-key", ar.systemHandler.RotateDynamicKey)
	}
}
