package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/chatkey"
	"messenger-service/internal/delivery"
	"messenger-service/internal/repositories"
)

// MessageHandler serves chat history and per-message flags.
type MessageHandler struct {
	messages repositories.MessageRepository
	engine   *delivery.Engine
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages repositories.MessageRepository, engine *delivery.Engine) *MessageHandler {
	return &MessageHandler{messages: messages, engine: engine}
}

// GetChatMessages returns the history of the partition shared with another
// user, filtered for the caller, pinned messages first.
func (h *MessageHandler) GetChatMessages(c *gin.Context) {
	userID := c.GetString("userID")

	key, err := chatkey.Derive(userID, c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat participant"})
		return
	}

	msgs, err := h.messages.ListChatMessages(c.Request.Context(), key, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PinMessage marks a message as pinned within its chat.
func (h *MessageHandler) PinMessage(c *gin.Context) {
	h.setPinned(c, true)
}

// UnpinMessage clears the pinned flag.
func (h *MessageHandler) UnpinMessage(c *gin.Context) {
	h.setPinned(c, false)
}

func (h *MessageHandler) setPinned(c *gin.Context, pinned bool) {
	userID := c.GetString("userID")
	if err := h.engine.SetPinned(c.Request.Context(), userID, c.Param("message_id"), pinned); err != nil {
		messageActionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// FavouriteMessage marks a message as a favourite of the caller.
func (h *MessageHandler) FavouriteMessage(c *gin.Context) {
	h.setFavourite(c, true)
}

// UnfavouriteMessage clears the favourite flag.
func (h *MessageHandler) UnfavouriteMessage(c *gin.Context) {
	h.setFavourite(c, false)
}

func (h *MessageHandler) setFavourite(c *gin.Context, favourite bool) {
	userID := c.GetString("userID")
	if err := h.engine.SetFavourite(c.Request.Context(), userID, c.Param("message_id"), favourite); err != nil {
		messageActionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListFavourites returns the caller's favourite messages, newest first.
func (h *MessageHandler) ListFavourites(c *gin.Context) {
	userID := c.GetString("userID")

	msgs, err := h.messages.ListFavourites(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load favourites"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func messageActionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, delivery.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this message"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update message"})
	}
}
