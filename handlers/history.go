package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"plcvisualizer/export"
	"plcvisualizer/models"
)

const (
	defaultHistoryLimit = 500
	maxHistoryLimit     = 10000
)

// parseSince turns 1h, 24h, 7d, 30d or any Go duration into a start time.
// Unparseable values fall back to 24 hours.
func parseSince(sinceParam string, now time.Time) time.Time {
	switch sinceParam {
	case "1h":
		return now.Add(-1 * time.Hour)
	case "24h":
		return now.Add(-24 * time.Hour)
	case "7d":
		return now.Add(-7 * 24 * time.Hour)
	case "30d":
		return now.Add(-30 * 24 * time.Hour)
	}
	if duration, err := time.ParseDuration(sinceParam); err == nil && duration > 0 {
		return now.Add(-duration)
	}
	return now.Add(-24 * time.Hour)
}

func (h *Handler) historyQuery(c *gin.Context) (models.Parameter, []models.Reading, string, bool) {
	id := c.Param("id")
	param, ok := h.monitor.Parameter(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Parameter not found",
		})
		return param, nil, "", false
	}

	limit := defaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		if parsedLimit, err := strconv.Atoi(l); err == nil && parsedLimit > 0 && parsedLimit <= maxHistoryLimit {
			limit = parsedLimit
		}
	}

	sinceParam := c.DefaultQuery("since", "24h")
	now := h.now()
	readings, err := h.history.GetReadings(c.Request.Context(), id, parseSince(sinceParam, now), now, limit)
	if err != nil {
		h.fail(c, "Failed to retrieve history", err)
		return param, nil, "", false
	}
	return param, readings, sinceParam, true
}

// GetHistory returns recorded readings of a parameter, oldest first
func (h *Handler) GetHistory(c *gin.Context) {
	param, readings, sinceParam, ok := h.historyQuery(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"parameter": param,
		"readings":  readings,
		"count":     len(readings),
		"period": gin.H{
			"duration": sinceParam,
		},
	})
}

// ExportHistory downloads the readings as an XLSX workbook
func (h *Handler) ExportHistory(c *gin.Context) {
	param, readings, _, ok := h.historyQuery(c)
	if !ok {
		return
	}

	buf, err := export.ExportXLSX([]models.Parameter{param}, readings)
	if err != nil {
		h.fail(c, "Failed to export history", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(param, h.now())+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
