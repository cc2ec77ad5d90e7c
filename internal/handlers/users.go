package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/presence"
	"messenger-service/internal/repositories"
)

// UserHandler serves account listings and presence queries.
type UserHandler struct {
	users    repositories.UserRepository
	presence *presence.Manager
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users repositories.UserRepository, presenceMgr *presence.Manager) *UserHandler {
	return &UserHandler{users: users, presence: presenceMgr}
}

// GetUserStatus returns one user's presence view.
func (h *UserHandler) GetUserStatus(c *gin.Context) {
	status, err := h.presence.Status(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// ListUsers returns every other account together with its presence text.
func (h *UserHandler) ListUsers(c *gin.Context) {
	userID := c.GetString("userID")

	users, err := h.users.ListUsers(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	type userResponse struct {
		models.User
		IsOnline     bool   `json:"isOnline"`
		LastSeenText string `json:"lastSeenText"`
	}

	now := time.Now().UTC()
	responses := make([]userResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, userResponse{
			User:         u,
			IsOnline:     u.IsOnline(),
			LastSeenText: presence.LastSeenText(u.LastSeen, now),
		})
	}

	c.JSON(http.StatusOK, gin.H{"users": responses})
}
