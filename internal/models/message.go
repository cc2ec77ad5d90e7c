package models

import (
	"time"

	"github.com/lib/pq"
)

// Delivery status values. Status only moves forward except for the explicit
// mark-unread action, which resets the latest inbound message to delivered.
const (
	StatusSending   = "sending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Message represents a one-to-one chat message. Messages are never removed;
// deletion is modeled with deleted_for entries and the is_deleted tombstone.
type Message struct {
	ID            string         `db:"id" json:"id"`
	FromID        string         `db:"from_id" json:"from"`
	ToID          string         `db:"to_id" json:"to"`
	Body          string         `db:"body" json:"message"`
	ReplyTo       *string        `db:"reply_to" json:"replyTo"`
	ForwardedFrom *string        `db:"forwarded_from" json:"forwardedFrom"`
	IsForwarded   bool           `db:"is_forwarded" json:"isForwarded"`
	ChatKey       string         `db:"chat_key" json:"chatKey"`
	Status        string         `db:"status" json:"status"`
	DeliveredAt   *time.Time     `db:"delivered_at" json:"deliveredAt"`
	ReadAt        *time.Time     `db:"read_at" json:"readAt"`
	DeletedFor    pq.StringArray `db:"deleted_for" json:"-"`
	IsDeleted     bool           `db:"is_deleted" json:"-"`
	Pinned        bool           `db:"pinned" json:"pinned"`
	Favourite     bool           `db:"favourite" json:"favourite"`
	CreatedAt     time.Time      `db:"created_at" json:"timestamp"`
}

// IsParticipant reports whether userID is one of the two parties.
func (m Message) IsParticipant(userID string) bool {
	return m.FromID == userID || m.ToID == userID
}

// StatusUpdate identifies a message whose delivery status changed, paired
// with the sender that should be notified.
type StatusUpdate struct {
	ID     string `db:"id"`
	FromID string `db:"from_id"`
}

// Conversation is one entry of the per-partner conversation listing.
type Conversation struct {
	UserID          string    `json:"userId"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	UnseenCount     int       `json:"unseenCount"`
}
