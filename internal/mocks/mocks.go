package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/delivery"
	"messenger-service/internal/models"
	"messenger-service/internal/registry"
	"messenger-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ListUsers(ctx context.Context, excludeID string) ([]models.User, error) {
	args := m.Called(ctx, excludeID)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) SetLastSeen(ctx context.Context, userID string, lastSeen *time.Time) error {
	args := m.Called(ctx, userID, lastSeen)
	return args.Error(0)
}

func (m *UserRepositoryMock) AddPushToken(ctx context.Context, userID string, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetNotificationPreferences(ctx context.Context, userID string) (models.NotificationPreferences, error) {
	args := m.Called(ctx, userID)
	var prefs models.NotificationPreferences
	if val := args.Get(0); val != nil {
		prefs = val.(models.NotificationPreferences)
	}
	return prefs, args.Error(1)
}

func (m *UserRepositoryMock) UpdateNotificationPreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error {
	args := m.Called(ctx, userID, prefs)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, params repositories.NewMessageParams) (models.Message, error) {
	args := m.Called(ctx, params)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) MarkDelivered(ctx context.Context, messageID string, at time.Time) error {
	args := m.Called(ctx, messageID, at)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, messageIDs []string, toID string, at time.Time) ([]string, error) {
	args := m.Called(ctx, messageIDs, toID, at)
	var updated []string
	if val := args.Get(0); val != nil {
		updated = val.([]string)
	}
	return updated, args.Error(1)
}

func (m *MessageRepositoryMock) PromoteToDelivered(ctx context.Context, toID string, at time.Time) ([]models.StatusUpdate, error) {
	args := m.Called(ctx, toID, at)
	var updates []models.StatusUpdate
	if val := args.Get(0); val != nil {
		updates = val.([]models.StatusUpdate)
	}
	return updates, args.Error(1)
}

func (m *MessageRepositoryMock) MarkUnreadLatest(ctx context.Context, chatKey, fromID, toID string) error {
	args := m.Called(ctx, chatKey, fromID, toID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkConversationRead(ctx context.Context, chatKey, fromID, toID string, at time.Time) error {
	args := m.Called(ctx, chatKey, fromID, toID, at)
	return args.Error(0)
}

func (m *MessageRepositoryMock) AddDeletedFor(ctx context.Context, messageID, userID string) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkDeletedForAll(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) SetPinned(ctx context.Context, messageID string, pinned bool) error {
	args := m.Called(ctx, messageID, pinned)
	return args.Error(0)
}

func (m *MessageRepositoryMock) SetFavourite(ctx context.Context, messageID string, favourite bool) error {
	args := m.Called(ctx, messageID, favourite)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ListChatMessages(ctx context.Context, chatKey, userID string) ([]models.Message, error) {
	args := m.Called(ctx, chatKey, userID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ListFavourites(ctx context.Context, userID string) ([]models.Message, error) {
	args := m.Called(ctx, userID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) ListPartners(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	var partners []string
	if val := args.Get(0); val != nil {
		partners = val.([]string)
	}
	return partners, args.Error(1)
}

func (m *ConversationRepositoryMock) LastMessage(ctx context.Context, chatKey, userID string) (models.Message, error) {
	args := m.Called(ctx, chatKey, userID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ConversationRepositoryMock) UnreadCount(ctx context.Context, chatKey, partnerID, userID string) (int, error) {
	args := m.Called(ctx, chatKey, partnerID, userID)
	return args.Int(0), args.Error(1)
}

// SessionMock stands in for a live websocket connection.
type SessionMock struct {
	mock.Mock
	ID string
}

func (m *SessionMock) UserID() string {
	return m.ID
}

func (m *SessionMock) Send(event string, data any) error {
	args := m.Called(event, data)
	return args.Error(0)
}

// RegistryMock stands in for the connection registry lookup.
type RegistryMock struct {
	mock.Mock
}

func (m *RegistryMock) Lookup(userID string) (registry.Session, bool) {
	args := m.Called(userID)
	var sess registry.Session
	if val := args.Get(0); val != nil {
		sess = val.(registry.Session)
	}
	return sess, args.Bool(1)
}

// RoomBroadcasterMock stands in for the hub's chat partition broadcast.
type RoomBroadcasterMock struct {
	mock.Mock
}

func (m *RoomBroadcasterMock) Broadcast(chatKey, event string, data any) {
	m.Called(chatKey, event, data)
}

// NotifierMock stands in for the push fallback dispatcher.
type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Notify(ctx context.Context, receiver models.User, title, body string, data map[string]string) {
	m.Called(ctx, receiver, title, body, data)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ registry.Session = (*SessionMock)(nil)
var _ delivery.SessionRegistry = (*RegistryMock)(nil)
var _ delivery.RoomBroadcaster = (*RoomBroadcasterMock)(nil)
var _ delivery.Notifier = (*NotifierMock)(nil)
