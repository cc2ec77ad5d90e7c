package handlers

import (
	"errors"
	"log"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/chatkey"
	"messenger-service/internal/delivery"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// ConversationHandler serves the aggregated per-partner conversation view.
type ConversationHandler struct {
	conversations repositories.ConversationRepository
	engine        *delivery.Engine
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(conversations repositories.ConversationRepository, engine *delivery.Engine) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, engine: engine}
}

// ListConversations returns one entry per chat partner with the latest
// visible message and the unread counter, newest conversation first.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.GetString("userID")
	ctx := c.Request.Context()

	partners, err := h.conversations.ListPartners(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	conversations := make([]models.Conversation, 0, len(partners))
	for _, partner := range partners {
		key, err := chatkey.Derive(userID, partner)
		if err != nil {
			continue
		}

		last, err := h.conversations.LastMessage(ctx, key, userID)
		if err != nil {
			// A partner whose every message the user deleted has no
			// visible history left.
			if errors.Is(err, repositories.ErrMessageNotFound) {
				continue
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
			return
		}

		unread, err := h.conversations.UnreadCount(ctx, key, partner, userID)
		if err != nil {
			log.Printf("conversations: unread count failed for %s: %v", key, err)
		}

		conversations = append(conversations, models.Conversation{
			UserID:          partner,
			LastMessage:     last.Body,
			LastMessageTime: last.CreatedAt,
			UnseenCount:     unread,
		})
	}

	// Newest conversation first.
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessageTime.After(conversations[j].LastMessageTime)
	})

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// MarkConversationRead marks every unread inbound message from the partner
// as read.
func (h *ConversationHandler) MarkConversationRead(c *gin.Context) {
	userID := c.GetString("userID")
	partnerID := c.Param("user_id")

	if err := h.engine.MarkConversationRead(c.Request.Context(), userID, partnerID); err != nil {
		conversationActionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkConversationUnread resets the latest inbound message from the partner
// back to delivered.
func (h *ConversationHandler) MarkConversationUnread(c *gin.Context) {
	userID := c.GetString("userID")
	partnerID := c.Param("user_id")

	if err := h.engine.MarkUnread(c.Request.Context(), userID, partnerID); err != nil {
		conversationActionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func conversationActionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, repositories.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no messages in conversation"})
	case errors.Is(err, chatkey.ErrSameUser), errors.Is(err, chatkey.ErrEmptyUserID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat participant"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update conversation"})
	}
}
