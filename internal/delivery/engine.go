// Package delivery drives messages through the sent → delivered → read
// state machine and picks the delivery path for each one: in-process to the
// receiver's live connection, or push fallback when there is none.
package delivery

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"messenger-service/internal/chatkey"
	"messenger-service/internal/models"
	"messenger-service/internal/registry"
	"messenger-service/internal/repositories"
)

var (
	ErrEmptyBody      = errors.New("message body is empty")
	ErrNotParticipant = errors.New("user is not a participant of this message")
	ErrNotSender      = errors.New("only the sender may delete for everyone")
)

// SessionRegistry resolves a user's live connection, if any.
type SessionRegistry interface {
	Lookup(userID string) (registry.Session, bool)
}

// RoomBroadcaster publishes an event to everyone subscribed to a chat
// partition.
type RoomBroadcaster interface {
	Broadcast(chatKey, event string, data any)
}

// Notifier is the push fallback. It never reports failure; the message is
// durably stored before it runs.
type Notifier interface {
	Notify(ctx context.Context, receiver models.User, title, body string, data map[string]string)
}

// Engine is the per-message delivery state machine.
type Engine struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	sessions SessionRegistry
	rooms    RoomBroadcaster
	push     Notifier
}

// NewEngine builds an Engine.
func NewEngine(messages repositories.MessageRepository, users repositories.UserRepository, sessions SessionRegistry, rooms RoomBroadcaster, push Notifier) *Engine {
	return &Engine{
		messages: messages,
		users:    users,
		sessions: sessions,
		rooms:    rooms,
		push:     push,
	}
}

// SendMessage validates and persists an outgoing message, acknowledges the
// sender, then either delivers it to the receiver's live connection or
// invokes the push fallback. The chat partition is told about the resulting
// status either way.
func (e *Engine) SendMessage(ctx context.Context, senderID string, req models.SendMessageRequest) error {
	body := strings.TrimSpace(req.Message)
	if body == "" {
		return ErrEmptyBody
	}

	key, err := chatkey.Derive(senderID, req.To)
	if err != nil {
		return err
	}

	receiver, err := e.users.GetUser(ctx, req.To)
	if err != nil {
		return err
	}

	msg, err := e.messages.CreateMessage(ctx, repositories.NewMessageParams{
		FromID:        senderID,
		ToID:          req.To,
		Body:          body,
		ReplyTo:       req.ReplyTo,
		IsForwarded:   req.IsForwarded,
		ForwardedFrom: req.ForwardedFrom,
		ChatKey:       key,
	})
	if err != nil {
		return err
	}

	// Sent acknowledgement carries the durable id so the sender can
	// correlate it with its client-generated temporary id.
	if sess, ok := e.sessions.Lookup(senderID); ok {
		if err := sess.Send(models.EventMessageSent, models.MessageSentAck{
			ClientMessageID: req.ClientMessageID,
			DBID:            msg.ID,
			Status:          msg.Status,
		}); err != nil {
			log.Printf("delivery: sent ack to %s failed: %v", senderID, err)
		}
	}

	status := models.StatusSent
	if delivered := e.deliverInProcess(ctx, msg); delivered {
		status = models.StatusDelivered
	} else {
		e.pushFallback(ctx, receiver, msg, body)
	}

	e.rooms.Broadcast(key, models.EventMessageStatusUpdate, models.StatusUpdateEvent{
		MessageID: msg.ID,
		Status:    status,
	})
	return nil
}

// deliverInProcess pushes the message payload to the receiver's live
// connection. delivered_at is only recorded after a successful write.
func (e *Engine) deliverInProcess(ctx context.Context, msg models.Message) bool {
	sess, ok := e.sessions.Lookup(msg.ToID)
	if !ok {
		return false
	}

	now := time.Now().UTC()
	out := msg
	out.Status = models.StatusDelivered
	out.DeliveredAt = &now
	if err := sess.Send(models.EventReceiveMessage, out); err != nil {
		log.Printf("delivery: in-process delivery to %s failed: %v", msg.ToID, err)
		return false
	}

	if err := e.messages.MarkDelivered(ctx, msg.ID, now); err != nil {
		log.Printf("delivery: persist delivered for %s failed: %v", msg.ID, err)
	}
	return true
}

func (e *Engine) pushFallback(ctx context.Context, receiver models.User, msg models.Message, body string) {
	title := "New message"
	if sender, err := e.users.GetUser(ctx, msg.FromID); err == nil && sender.Name != "" {
		title = sender.Name
	}
	e.push.Notify(ctx, receiver, title, body, map[string]string{
		"chatKey": msg.ChatKey,
		"from":    msg.FromID,
	})
}

// MarkDelivered advances one message to delivered on the receiver's
// explicit acknowledgement and tells the sender's connection, if any.
func (e *Engine) MarkDelivered(ctx context.Context, messageID, fromID string) error {
	now := time.Now().UTC()
	if err := e.messages.MarkDelivered(ctx, messageID, now); err != nil {
		return err
	}
	e.notifyStatus(fromID, messageID, models.StatusDelivered)
	return nil
}

// MarkRead advances a batch of the reader's inbound messages to read.
// Idempotent: only messages not already read produce a status event for the
// sender. The reader gets a conversationUpdate nudge for unread counters.
func (e *Engine) MarkRead(ctx context.Context, readerID string, messageIDs []string, fromID string) error {
	updated, err := e.messages.MarkRead(ctx, messageIDs, readerID, time.Now().UTC())
	if err != nil {
		return err
	}

	for _, id := range updated {
		e.notifyStatus(fromID, id, models.StatusRead)
	}

	if len(updated) > 0 {
		if sess, ok := e.sessions.Lookup(readerID); ok {
			if err := sess.Send(models.EventConversationUpdate, models.ConversationUpdateEvent{
				UserID: fromID,
				Action: "messagesRead",
			}); err != nil {
				log.Printf("delivery: conversation update to %s failed: %v", readerID, err)
			}
		}
	}
	return nil
}

// PromotePending bulk-promotes the user's pending inbound messages to
// delivered with a fresh delivered_at (reconnection catch-up), notifying
// each connected original sender per message. Senders without a connection
// miss the event and reconcile through the conversation listing later.
func (e *Engine) PromotePending(ctx context.Context, userID string) error {
	updates, err := e.messages.PromoteToDelivered(ctx, userID, time.Now().UTC())
	if err != nil {
		return err
	}
	for _, u := range updates {
		e.notifyStatus(u.FromID, u.ID, models.StatusDelivered)
	}
	return nil
}

// MarkUnread resets the latest inbound message from partnerID back to
// delivered. The sole permitted status regression.
func (e *Engine) MarkUnread(ctx context.Context, userID, partnerID string) error {
	key, err := chatkey.Derive(userID, partnerID)
	if err != nil {
		return err
	}
	if _, err := e.users.GetUser(ctx, partnerID); err != nil {
		return err
	}
	return e.messages.MarkUnreadLatest(ctx, key, partnerID, userID)
}

// MarkConversationRead marks every unread inbound message from partnerID as
// read.
func (e *Engine) MarkConversationRead(ctx context.Context, userID, partnerID string) error {
	key, err := chatkey.Derive(userID, partnerID)
	if err != nil {
		return err
	}
	if _, err := e.users.GetUser(ctx, partnerID); err != nil {
		return err
	}
	return e.messages.MarkConversationRead(ctx, key, partnerID, userID, time.Now().UTC())
}

// DeleteForMe hides a message from the acting participant only.
func (e *Engine) DeleteForMe(ctx context.Context, userID, messageID string) error {
	msg, err := e.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if !msg.IsParticipant(userID) {
		return ErrNotParticipant
	}
	if err := e.messages.AddDeletedFor(ctx, messageID, userID); err != nil {
		return err
	}

	if sess, ok := e.sessions.Lookup(userID); ok {
		if err := sess.Send(models.EventMessageDeleted, models.MessageDeletedEvent{
			MessageID: messageID,
			ChatKey:   msg.ChatKey,
		}); err != nil {
			log.Printf("delivery: delete ack to %s failed: %v", userID, err)
		}
	}
	return nil
}

// DeleteForEveryone tombstones a message for both parties. Sender only.
func (e *Engine) DeleteForEveryone(ctx context.Context, userID, messageID string) error {
	msg, err := e.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.FromID != userID {
		return ErrNotSender
	}
	if err := e.messages.MarkDeletedForAll(ctx, messageID); err != nil {
		return err
	}

	e.rooms.Broadcast(msg.ChatKey, models.EventMessageDeleted, models.MessageDeletedEvent{
		MessageID: messageID,
		ChatKey:   msg.ChatKey,
	})
	return nil
}

// SetPinned toggles the pinned flag for a participant.
func (e *Engine) SetPinned(ctx context.Context, userID, messageID string, pinned bool) error {
	msg, err := e.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if !msg.IsParticipant(userID) {
		return ErrNotParticipant
	}
	return e.messages.SetPinned(ctx, messageID, pinned)
}

// SetFavourite toggles the favourite flag for a participant.
func (e *Engine) SetFavourite(ctx context.Context, userID, messageID string, favourite bool) error {
	msg, err := e.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if !msg.IsParticipant(userID) {
		return ErrNotParticipant
	}
	return e.messages.SetFavourite(ctx, messageID, favourite)
}

func (e *Engine) notifyStatus(userID, messageID, status string) {
	sess, ok := e.sessions.Lookup(userID)
	if !ok {
		return
	}
	if err := sess.Send(models.EventMessageStatusUpdate, models.StatusUpdateEvent{
		MessageID: messageID,
		Status:    status,
	}); err != nil {
		log.Printf("delivery: status update to %s failed: %v", userID, err)
	}
}
