package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plcvisualizer/models"
)

// Login exchanges credentials for a session token
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid login request", err)
		return
	}

	session, err := h.auth.SignIn(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, "Login failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Logout ends the caller's session
func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.SignOut(c.Request.Context(), bearerToken(c)); err != nil {
		h.fail(c, "Logout failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// Me returns the caller's profile
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

// GetUsers lists all users
func (h *Handler) GetUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to retrieve users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// CreateUser registers a new user
func (h *Handler) CreateUser(c *gin.Context) {
	var req struct {
		Username string      `json:"username" binding:"required"`
		Password string      `json:"password" binding:"required"`
		Role     models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid user data", err)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		h.fail(c, "Failed to create user", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    user,
	})
}

// UpdateUserRole changes a user's role
func (h *Handler) UpdateUserRole(c *gin.Context) {
	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid role", err)
		return
	}

	id := c.Param("id")
	if err := h.users.UpdateUserRole(c.Request.Context(), id, req.Role); err != nil {
		h.fail(c, "Failed to update user role", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "User role updated successfully",
		"user_id": id,
		"role":    req.Role,
	})
}

// DeleteUser removes a user. Admins cannot delete themselves.
func (h *Handler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if user := currentUser(c); user != nil && user.ID == id {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cannot delete the signed-in user",
		})
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		h.fail(c, "Failed to delete user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
		"user_id": id,
	})
}
