package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"plcvisualizer/models"
	"plcvisualizer/services"
)

// GetConnectionSettings returns the active PLC connection settings
func (h *Handler) GetConnectionSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.monitor.Settings()})
}

// UpdateConnectionSettings stores new settings and reconnects the feed
func (h *Handler) UpdateConnectionSettings(c *gin.Context) {
	settings := h.monitor.Settings()
	if err := c.ShouldBindJSON(&settings); err != nil {
		h.badRequest(c, "Invalid connection settings", err)
		return
	}

	if err := h.monitor.ApplySettings(c.Request.Context(), settings); err != nil {
		h.fail(c, "Failed to apply connection settings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Connection settings updated successfully",
		"settings": settings,
	})
}

// GetCollectionPolicy returns the active data collection policy
func (h *Handler) GetCollectionPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"policy": h.recorder.Policy()})
}

// UpdateCollectionPolicy validates, persists and activates a policy
func (h *Handler) UpdateCollectionPolicy(c *gin.Context) {
	policy := h.recorder.Policy()
	if err := c.ShouldBindJSON(&policy); err != nil {
		h.badRequest(c, "Invalid collection policy", err)
		return
	}

	if _, err := services.CompilePolicy(policy); err != nil {
		h.fail(c, "Invalid collection policy", err)
		return
	}
	if err := h.policies.SaveCollectionPolicy(c.Request.Context(), policy); err != nil {
		h.fail(c, "Failed to save collection policy", err)
		return
	}
	if err := h.recorder.SetPolicy(policy); err != nil {
		h.fail(c, "Failed to apply collection policy", err)
		return
	}

	h.logger.Info("Collection policy updated",
		zap.Bool("enabled", policy.Enabled),
		zap.Int("sample_interval_ms", policy.SampleIntervalMs),
		zap.Int("retention_days", policy.RetentionDays),
		zap.String("filter", policy.Filter),
	)
	c.JSON(http.StatusOK, gin.H{
		"message": "Collection policy updated successfully",
		"policy":  policy,
	})
}

// GetConnectionStatus returns the live feed state
func (h *Handler) GetConnectionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connection": h.monitor.State()})
}

// Reconnect restarts the live feed
func (h *Handler) Reconnect(c *gin.Context) {
	h.monitor.Reconnect()
	c.JSON(http.StatusAccepted, gin.H{
		"message":    "Reconnecting",
		"connection": models.ConnectionState{Status: models.ConnectionConnecting, Protocol: h.monitor.Settings().Protocol},
	})
}
