package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plcvisualizer/models"
	"plcvisualizer/services"
)

type parameterRequest struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	Unit        string            `json:"unit"`
	Value       float64           `json:"value"`
	Thresholds  models.Thresholds `json:"thresholds"`
	Category    string            `json:"category"`
}

func (r parameterRequest) parameter() models.Parameter {
	return models.Parameter{
		Name:        r.Name,
		Description: r.Description,
		Unit:        r.Unit,
		Value:       r.Value,
		Thresholds:  r.Thresholds,
		Category:    r.Category,
	}
}

// GetParameters returns the live parameter list with the connection state
func (h *Handler) GetParameters(c *gin.Context) {
	snapshot := h.monitor.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"parameters": snapshot.Parameters,
		"count":      len(snapshot.Parameters),
		"connection": snapshot.Connection,
	})
}

// GetParameter returns one parameter
func (h *Handler) GetParameter(c *gin.Context) {
	p, ok := h.monitor.Parameter(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Parameter not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"parameter": p})
}

// GetParameterStats returns sliding window statistics of recent live values
func (h *Handler) GetParameterStats(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.monitor.Parameter(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Parameter not found",
		})
		return
	}

	stats, ok := h.monitor.Trend(id)
	if !ok {
		stats = services.TrendStats{ParameterID: id}
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// CreateParameter adds a parameter
func (h *Handler) CreateParameter(c *gin.Context) {
	var req parameterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid parameter data", err)
		return
	}

	created, err := h.monitor.CreateParameter(c.Request.Context(), req.parameter())
	if err != nil {
		h.fail(c, "Failed to create parameter", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Parameter created successfully",
		"parameter": created,
		"offline":   h.monitor.State().Offline,
	})
}

// UpdateParameter replaces a parameter's editable fields
func (h *Handler) UpdateParameter(c *gin.Context) {
	var req parameterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid parameter data", err)
		return
	}

	p := req.parameter()
	p.ID = c.Param("id")

	updated, err := h.monitor.UpdateParameter(c.Request.Context(), p)
	if err != nil {
		h.fail(c, "Failed to update parameter", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Parameter updated successfully",
		"parameter": updated,
		"offline":   h.monitor.State().Offline,
	})
}

// DeleteParameter removes a parameter
func (h *Handler) DeleteParameter(c *gin.Context) {
	id := c.Param("id")
	if err := h.monitor.DeleteParameter(c.Request.Context(), id); err != nil {
		h.fail(c, "Failed to delete parameter", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Parameter deleted successfully",
		"parameter_id": id,
		"offline":      h.monitor.State().Offline,
	})
}
