// Package presence keeps the durable last-seen state in step with the
// ephemeral connection lifecycle and announces changes to everyone else.
package presence

import (
	"context"
	"log"
	"time"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// Broadcaster publishes a presence event to every connected client except
// the user it concerns.
type Broadcaster interface {
	BroadcastToOthers(userID, event string, data any)
}

// Promoter drives the reconnect catch-up of pending inbound messages.
type Promoter interface {
	PromotePending(ctx context.Context, userID string) error
}

// Manager reacts to connection lifecycle and explicit foreground/background
// signals. Persistence failures are logged, never surfaced: the delivery
// guarantee of the system is "durably stored", not "presence updated".
type Manager struct {
	users     repositories.UserRepository
	broadcast Broadcaster
	promoter  Promoter
}

// NewManager builds a Manager.
func NewManager(users repositories.UserRepository, broadcast Broadcaster, promoter Promoter) *Manager {
	return &Manager{users: users, broadcast: broadcast, promoter: promoter}
}

// HandleConnect marks the user online and announces it.
func (m *Manager) HandleConnect(ctx context.Context, userID string) {
	if err := m.users.SetLastSeen(ctx, userID, nil); err != nil {
		log.Printf("presence: mark online failed for %s: %v", userID, err)
	}
	m.broadcast.BroadcastToOthers(userID, models.EventUserOnline, models.PresenceEvent{
		UserID:       userID,
		IsOnline:     true,
		LastSeenText: "Online",
	})
}

// HandleForeground marks the user online again after the client app returns
// to the foreground and promotes their pending inbound messages.
func (m *Manager) HandleForeground(ctx context.Context, userID string) {
	if err := m.users.SetLastSeen(ctx, userID, nil); err != nil {
		log.Printf("presence: mark online failed for %s: %v", userID, err)
	}
	if err := m.promoter.PromotePending(ctx, userID); err != nil {
		log.Printf("presence: promote pending failed for %s: %v", userID, err)
	}
	m.broadcast.BroadcastToOthers(userID, models.EventUserCameOnline, models.PresenceEvent{
		UserID:       userID,
		IsOnline:     true,
		LastSeenText: "Online",
	})
}

// HandleBackground records the moment the client app went to the background.
func (m *Manager) HandleBackground(ctx context.Context, userID string) {
	m.markOffline(ctx, userID, models.EventUserWentOffline)
}

// HandleDisconnect records a transport-level disconnect.
func (m *Manager) HandleDisconnect(ctx context.Context, userID string) {
	m.markOffline(ctx, userID, models.EventUserOffline)
}

func (m *Manager) markOffline(ctx context.Context, userID, event string) {
	now := time.Now().UTC()
	if err := m.users.SetLastSeen(ctx, userID, &now); err != nil {
		log.Printf("presence: mark offline failed for %s: %v", userID, err)
	}
	m.broadcast.BroadcastToOthers(userID, event, models.PresenceEvent{
		UserID:       userID,
		IsOnline:     false,
		LastSeen:     &now,
		LastSeenText: LastSeenText(&now, now),
	})
}

// Status answers the REST presence query for a user.
func (m *Manager) Status(ctx context.Context, userID string) (models.PresenceStatus, error) {
	user, err := m.users.GetUser(ctx, userID)
	if err != nil {
		return models.PresenceStatus{}, err
	}

	now := time.Now().UTC()
	return models.PresenceStatus{
		UserID:            user.ID,
		IsOnline:          user.IsOnline(),
		LastSeen:          user.LastSeen,
		LastSeenText:      LastSeenText(user.LastSeen, now),
		LastSeenFormatted: LastSeenDetailed(user.LastSeen, now),
	}, nil
}
