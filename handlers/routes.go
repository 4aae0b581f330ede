package handlers

import (
	"github.com/gin-gonic/gin"
)

// Register mounts every route on router
func (h *Handler) Register(router *gin.Engine) {
	router.GET("/health", h.GetSystemHealth)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	// WebSocket endpoint
	router.GET("/ws", h.WebSocketEndpoint)

	router.POST("/api/auth/login", h.Login)

	api := router.Group("/api", h.RequireAuth())
	admin := api.Group("", h.RequireAdmin())
	{
		// Auth
		api.POST("/auth/logout", h.Logout)
		api.GET("/auth/me", h.Me)

		// Parameters
		api.GET("/parameters", h.GetParameters)
		api.GET("/parameters/:id", h.GetParameter)
		api.GET("/parameters/:id/stats", h.GetParameterStats)
		admin.POST("/parameters", h.CreateParameter)
		admin.PUT("/parameters/:id", h.UpdateParameter)
		admin.DELETE("/parameters/:id", h.DeleteParameter)

		// Alerts
		api.GET("/alerts", h.GetAlerts)
		api.PUT("/alerts/:id/acknowledge", h.AcknowledgeAlert)
		admin.DELETE("/alerts", h.ClearAlerts)

		// History
		api.GET("/history/:id", h.GetHistory)
		api.GET("/history/:id/export", h.ExportHistory)

		// Settings
		api.GET("/settings/connection", h.GetConnectionSettings)
		admin.PUT("/settings/connection", h.UpdateConnectionSettings)
		api.GET("/settings/policy", h.GetCollectionPolicy)
		admin.PUT("/settings/policy", h.UpdateCollectionPolicy)

		// Connection
		api.GET("/connection", h.GetConnectionStatus)
		admin.POST("/connection/reconnect", h.Reconnect)
		api.GET("/stats", h.GetStats)

		// Users
		admin.GET("/users", h.GetUsers)
		admin.POST("/users", h.CreateUser)
		admin.PUT("/users/:id/role", h.UpdateUserRole)
		admin.DELETE("/users/:id", h.DeleteUser)
	}
}
