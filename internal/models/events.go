package models

import (
	"encoding/json"
	"time"
)

// Event is the frame exchanged over a websocket connection in both
// directions: a name plus a JSON payload.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventUserOnline       = "userOnline"
	EventUserOffline      = "userOffline"
	EventJoinChat         = "joinChat"
	EventSendMessage      = "sendMessage"
	EventMessageDelivered = "messageDelivered"
	EventMessagesRead     = "messagesRead"
	EventDeleteForMe      = "deleteForMe"
	EventDeleteForAll     = "deleteForEveryone"
)

// Outbound event names.
const (
	EventUserCameOnline      = "userCameOnline"
	EventUserWentOffline     = "userWentOffline"
	EventMessageSent         = "messageSent"
	EventReceiveMessage      = "receiveMessage"
	EventMessageStatusUpdate = "messageStatusUpdate"
	EventMessageDeleted      = "messageDeleted"
	EventMessageError        = "messageError"
	EventConversationUpdate  = "conversationUpdate"
)

// SendMessageRequest is the payload of an inbound sendMessage event.
// ClientMessageID is a client-generated correlation id echoed back in the
// messageSent acknowledgement.
type SendMessageRequest struct {
	To              string  `json:"to"`
	Message         string  `json:"message"`
	ClientMessageID string  `json:"clientMessageId"`
	ReplyTo         *string `json:"replyTo"`
	IsForwarded     bool    `json:"isForwarded"`
	ForwardedFrom   *string `json:"forwardedFrom"`
}

// JoinChatRequest subscribes the connection to the partition shared with
// another user.
type JoinChatRequest struct {
	OtherUserID string `json:"otherUserId"`
}

// MessageDeliveredRequest acknowledges receipt of a single message.
type MessageDeliveredRequest struct {
	MessageID string `json:"messageId"`
	From      string `json:"from"`
}

// MessagesReadRequest acknowledges a batch of displayed messages.
type MessagesReadRequest struct {
	MessageIDs []string `json:"messageIds"`
	From       string   `json:"from"`
}

// DeleteMessageRequest targets a single message for deletion.
type DeleteMessageRequest struct {
	MessageID string `json:"messageId"`
}

// PresenceEvent announces a presence change to other connected clients.
type PresenceEvent struct {
	UserID       string     `json:"userId"`
	IsOnline     bool       `json:"isOnline"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
	LastSeenText string     `json:"lastSeenText"`
}

// MessageSentAck confirms persistence to the sender.
type MessageSentAck struct {
	ClientMessageID string `json:"clientMessageId"`
	DBID            string `json:"dbId"`
	Status          string `json:"status"`
}

// StatusUpdateEvent reports a delivery status change for one message.
type StatusUpdateEvent struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// MessageDeletedEvent reports a deletion within a chat partition.
type MessageDeletedEvent struct {
	MessageID string `json:"messageId"`
	ChatKey   string `json:"chatKey"`
}

// MessageErrorEvent reports a failed operation to the originating client.
type MessageErrorEvent struct {
	ClientMessageID string `json:"clientMessageId,omitempty"`
	Error           string `json:"error"`
}

// ConversationUpdateEvent nudges a client to refresh a conversation view.
type ConversationUpdateEvent struct {
	UserID string `json:"userId"`
	Action string `json:"action"`
}
