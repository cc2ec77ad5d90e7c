package models

import (
	"time"

	"github.com/lib/pq"
)

// User represents a messenger account. lastSeen == nil means the user is
// online right now; any non-nil value is the moment of the last disconnect.
type User struct {
	ID                   string         `db:"id" json:"id"`
	Name                 string         `db:"name" json:"name"`
	Email                string         `db:"email" json:"email"`
	Bio                  string         `db:"bio" json:"bio"`
	AvatarURL            *string        `db:"avatar_url" json:"avatarUrl"`
	LastSeen             *time.Time     `db:"last_seen" json:"lastSeen"`
	PushTokens           pq.StringArray `db:"push_tokens" json:"-"`
	MessageNotifications bool           `db:"message_notifications" json:"-"`
	CallNotifications    bool           `db:"call_notifications" json:"-"`
	PushNotifications    bool           `db:"push_notifications" json:"-"`
	CreatedAt            time.Time      `db:"created_at" json:"-"`
}

// IsOnline reports whether the user currently holds a connection according
// to durable state.
func (u User) IsOnline() bool {
	return u.LastSeen == nil
}

// NotificationPreferences holds the per-user notification flags.
type NotificationPreferences struct {
	MessageNotifications bool `db:"message_notifications" json:"messageNotifications"`
	CallNotifications    bool `db:"call_notifications" json:"callNotifications"`
	PushNotifications    bool `db:"push_notifications" json:"pushNotifications"`
}

// PresenceStatus is the REST view of a user's presence.
type PresenceStatus struct {
	UserID            string     `json:"userId"`
	IsOnline          bool       `json:"isOnline"`
	LastSeen          *time.Time `json:"lastSeen"`
	LastSeenText      string     `json:"lastSeenText"`
	LastSeenFormatted string     `json:"lastSeenFormatted"`
}
