package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// NotificationHandler manages notification preferences and push tokens.
type NotificationHandler struct {
	users repositories.UserRepository
	audit *telemetry.AuditEmitter
}

// NewNotificationHandler builds a NotificationHandler.
func NewNotificationHandler(users repositories.UserRepository, audit *telemetry.AuditEmitter) *NotificationHandler {
	return &NotificationHandler{users: users, audit: audit}
}

// GetPreferences returns the caller's notification flags.
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	userID := c.GetString("userID")

	prefs, err := h.users.GetNotificationPreferences(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences replaces the caller's notification flags.
func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		MessageNotifications *bool `json:"messageNotifications" binding:"required"`
		CallNotifications    *bool `json:"callNotifications" binding:"required"`
		PushNotifications    *bool `json:"pushNotifications" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := h.users.GetNotificationPreferences(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}

	prefs.MessageNotifications = *req.MessageNotifications
	prefs.CallNotifications = *req.CallNotifications
	prefs.PushNotifications = *req.PushNotifications

	if err := h.users.UpdateNotificationPreferences(c.Request.Context(), userID, prefs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update preferences"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "notification preferences updated",
		requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, prefs)
}

// RegisterPushToken adds a device push token for the caller.
func (h *NotificationHandler) RegisterPushToken(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.AddPushToken(c.Request.Context(), userID, req.Token); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register token"})
		return
	}

	c.Status(http.StatusNoContent)
}
