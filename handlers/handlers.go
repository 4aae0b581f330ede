package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"plcvisualizer/models"
	"plcvisualizer/services"
	"plcvisualizer/websocket"
)

const userKey = "user"

// Pinger reports backend reachability for the health endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the HTTP surface is built on
type Deps struct {
	Monitor  *services.Monitor
	Alerts   *services.AlertService
	Recorder *services.HistoryRecorder
	History  services.HistoryStore
	Policies services.PolicyStore
	Auth     services.Authenticator
	Users    services.UserAdmin
	Hub      *websocket.Hub
	Backend  Pinger
	Metrics  http.Handler
	Logger   *zap.Logger
}

// Handler contains all the dependencies needed for HTTP handlers
type Handler struct {
	monitor  *services.Monitor
	alerts   *services.AlertService
	recorder *services.HistoryRecorder
	history  services.HistoryStore
	policies services.PolicyStore
	auth     services.Authenticator
	users    services.UserAdmin
	hub      *websocket.Hub
	backend  Pinger
	metrics  http.Handler
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a new handler instance
func New(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		monitor:  d.Monitor,
		alerts:   d.Alerts,
		recorder: d.Recorder,
		history:  d.History,
		policies: d.Policies,
		auth:     d.Auth,
		users:    d.Users,
		hub:      d.Hub,
		backend:  d.Backend,
		metrics:  d.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message,
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func (h *Handler) badRequest(c *gin.Context, message string, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// RequireAuth resolves the bearer token to a user profile
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.auth.Profile(c.Request.Context(), bearerToken(c))
		if err != nil {
			h.fail(c, "Authentication required", err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// RequireAdmin rejects users without the admin role
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || user.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin role required",
			})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.UserProfile {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.UserProfile)
	return user
}

// GetSystemHealth returns overall system health information
func (h *Handler) GetSystemHealth(c *gin.Context) {
	state := h.monitor.State()
	health := gin.H{
		"status":    "healthy",
		"timestamp": h.now(),
		"websocket": gin.H{
			"connected_clients": h.hub.GetClientCount(),
		},
		"connection": state,
		"backend": gin.H{
			"status": "connected",
		},
	}

	if h.backend != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.backend.Ping(ctx); err != nil {
			health["backend"] = gin.H{"status": "unreachable", "details": err.Error()}
			health["status"] = "degraded"
		}
	}
	if state.Offline {
		health["status"] = "degraded"
	}

	c.JSON(http.StatusOK, health)
}

// GetStats returns per-status counts and trend statistics
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":             h.monitor.Stats(),
		"connected_clients": h.hub.GetClientCount(),
	})
}

// WebSocketEndpoint handles WebSocket connections
func (h *Handler) WebSocketEndpoint(c *gin.Context) {
	h.hub.HandleWebSocket(c.Writer, c.Request)
}
