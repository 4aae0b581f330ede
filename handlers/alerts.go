package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"plcvisualizer/models"
)

// GetAlerts lists alerts newest first
func (h *Handler) GetAlerts(c *gin.Context) {
	filter := models.AlertFilter{
		UnacknowledgedOnly: c.Query("unacknowledged") == "true",
		ParameterID:        c.Query("parameter_id"),
		Limit:              50,
	}
	if l := c.Query("limit"); l != "" {
		if parsedLimit, err := strconv.Atoi(l); err == nil && parsedLimit > 0 {
			filter.Limit = parsedLimit
		}
	}

	alerts, err := h.alerts.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "Failed to retrieve alerts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// AcknowledgeAlert acknowledges a specific alert
func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	alertID := c.Param("id")
	user := currentUser(c)

	alert, err := h.alerts.Acknowledge(c.Request.Context(), alertID, user.Username)
	if err != nil {
		h.fail(c, "Failed to acknowledge alert", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Alert acknowledged successfully",
		"alert":   alert,
	})
}

// ClearAlerts deletes every alert
func (h *Handler) ClearAlerts(c *gin.Context) {
	deleted, err := h.alerts.ClearAll(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to clear alerts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Alerts cleared",
		"deleted": deleted,
	})
}
