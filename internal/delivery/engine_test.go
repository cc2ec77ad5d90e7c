package delivery_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/delivery"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type engineFixture struct {
	messages *mocks.MessageRepositoryMock
	users    *mocks.UserRepositoryMock
	sessions *mocks.RegistryMock
	rooms    *mocks.RoomBroadcasterMock
	push     *mocks.NotifierMock
	engine   *delivery.Engine
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		messages: new(mocks.MessageRepositoryMock),
		users:    new(mocks.UserRepositoryMock),
		sessions: new(mocks.RegistryMock),
		rooms:    new(mocks.RoomBroadcasterMock),
		push:     new(mocks.NotifierMock),
	}
	f.engine = delivery.NewEngine(f.messages, f.users, f.sessions, f.rooms, f.push)
	return f
}

func (f *engineFixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.messages.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
	f.rooms.AssertExpectations(t)
	f.push.AssertExpectations(t)
}

func TestSendMessageDeliversToOnlineReceiver(t *testing.T) {
	f := newEngineFixture()

	receiver := models.User{ID: "bob", Name: "Bob"}
	stored := models.Message{ID: "m1", FromID: "alice", ToID: "bob", Body: "hi", ChatKey: "alice-bob", Status: models.StatusSent}

	f.users.On("GetUser", mock.Anything, "bob").Return(receiver, nil).Once()
	f.messages.On("CreateMessage", mock.Anything, repositories.NewMessageParams{
		FromID: "alice", ToID: "bob", Body: "hi", ChatKey: "alice-bob",
	}).Return(stored, nil).Once()

	senderSess := &mocks.SessionMock{ID: "alice"}
	senderSess.On("Send", models.EventMessageSent, models.MessageSentAck{
		ClientMessageID: "tmp-1", DBID: "m1", Status: models.StatusSent,
	}).Return(nil).Once()

	receiverSess := &mocks.SessionMock{ID: "bob"}
	receiverSess.On("Send", models.EventReceiveMessage, mock.MatchedBy(func(out models.Message) bool {
		return out.ID == "m1" && out.Status == models.StatusDelivered && out.DeliveredAt != nil
	})).Return(nil).Once()

	f.sessions.On("Lookup", "alice").Return(senderSess, true).Once()
	f.sessions.On("Lookup", "bob").Return(receiverSess, true).Once()
	f.messages.On("MarkDelivered", mock.Anything, "m1", mock.Anything).Return(nil).Once()
	f.rooms.On("Broadcast", "alice-bob", models.EventMessageStatusUpdate, models.StatusUpdateEvent{
		MessageID: "m1", Status: models.StatusDelivered,
	}).Once()

	err := f.engine.SendMessage(context.Background(), "alice", models.SendMessageRequest{
		To: "bob", Message: "hi", ClientMessageID: "tmp-1",
	})
	require.NoError(t, err)

	f.assertExpectations(t)
	senderSess.AssertExpectations(t)
	receiverSess.AssertExpectations(t)
}

func TestSendMessageOfflineReceiverTriggersPushFallback(t *testing.T) {
	f := newEngineFixture()

	receiver := models.User{
		ID: "bob", Name: "Bob",
		PushTokens:           []string{"tok-1"},
		MessageNotifications: true,
		PushNotifications:    true,
	}
	stored := models.Message{ID: "m1", FromID: "alice", ToID: "bob", Body: "hi", ChatKey: "alice-bob", Status: models.StatusSent}

	f.users.On("GetUser", mock.Anything, "bob").Return(receiver, nil).Once()
	f.users.On("GetUser", mock.Anything, "alice").Return(models.User{ID: "alice", Name: "Alice"}, nil).Once()
	f.messages.On("CreateMessage", mock.Anything, mock.Anything).Return(stored, nil).Once()

	f.sessions.On("Lookup", "alice").Return(nil, false).Once()
	f.sessions.On("Lookup", "bob").Return(nil, false).Once()

	f.push.On("Notify", mock.Anything, receiver, "Alice", "hi", map[string]string{
		"chatKey": "alice-bob", "from": "alice",
	}).Once()
	f.rooms.On("Broadcast", "alice-bob", models.EventMessageStatusUpdate, models.StatusUpdateEvent{
		MessageID: "m1", Status: models.StatusSent,
	}).Once()

	err := f.engine.SendMessage(context.Background(), "alice", models.SendMessageRequest{
		To: "bob", Message: "hi", ClientMessageID: "tmp-1",
	})
	require.NoError(t, err)

	f.assertExpectations(t)
}

func TestSendMessageRejectsEmptyBody(t *testing.T) {
	f := newEngineFixture()

	err := f.engine.SendMessage(context.Background(), "alice", models.SendMessageRequest{
		To: "bob", Message: "   ",
	})
	assert.ErrorIs(t, err, delivery.ErrEmptyBody)
}

func TestSendMessageRejectsUnknownReceiver(t *testing.T) {
	f := newEngineFixture()

	f.users.On("GetUser", mock.Anything, "ghost").Return(models.User{}, repositories.ErrUserNotFound).Once()

	err := f.engine.SendMessage(context.Background(), "alice", models.SendMessageRequest{
		To: "ghost", Message: "hi",
	})
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
	f.assertExpectations(t)
}

func TestMarkReadNotifiesSenderPerUpdatedMessage(t *testing.T) {
	f := newEngineFixture()

	ids := []string{"m1", "m2", "m3"}
	f.messages.On("MarkRead", mock.Anything, ids, "bob", mock.Anything).Return([]string{"m1", "m2"}, nil).Once()

	senderSess := &mocks.SessionMock{ID: "alice"}
	senderSess.On("Send", models.EventMessageStatusUpdate, models.StatusUpdateEvent{MessageID: "m1", Status: models.StatusRead}).Return(nil).Once()
	senderSess.On("Send", models.EventMessageStatusUpdate, models.StatusUpdateEvent{MessageID: "m2", Status: models.StatusRead}).Return(nil).Once()

	readerSess := &mocks.SessionMock{ID: "bob"}
	readerSess.On("Send", models.EventConversationUpdate, models.ConversationUpdateEvent{UserID: "alice", Action: "messagesRead"}).Return(nil).Once()

	f.sessions.On("Lookup", "alice").Return(senderSess, true).Twice()
	f.sessions.On("Lookup", "bob").Return(readerSess, true).Once()

	err := f.engine.MarkRead(context.Background(), "bob", ids, "alice")
	require.NoError(t, err)

	f.assertExpectations(t)
	senderSess.AssertExpectations(t)
	readerSess.AssertExpectations(t)
}

func TestMarkReadIdempotentWhenNothingUpdated(t *testing.T) {
	f := newEngineFixture()

	ids := []string{"m1"}
	f.messages.On("MarkRead", mock.Anything, ids, "bob", mock.Anything).Return([]string{}, nil).Once()

	err := f.engine.MarkRead(context.Background(), "bob", ids, "alice")
	require.NoError(t, err)

	f.sessions.AssertNotCalled(t, "Lookup", mock.Anything)
	f.assertExpectations(t)
}

func TestPromotePendingNotifiesConnectedSenders(t *testing.T) {
	f := newEngineFixture()

	updates := []models.StatusUpdate{
		{ID: "m1", FromID: "alice"},
		{ID: "m2", FromID: "alice"},
		{ID: "m3", FromID: "carol"},
	}
	f.messages.On("PromoteToDelivered", mock.Anything, "bob", mock.Anything).Return(updates, nil).Once()

	aliceSess := &mocks.SessionMock{ID: "alice"}
	aliceSess.On("Send", models.EventMessageStatusUpdate, models.StatusUpdateEvent{MessageID: "m1", Status: models.StatusDelivered}).Return(nil).Once()
	aliceSess.On("Send", models.EventMessageStatusUpdate, models.StatusUpdateEvent{MessageID: "m2", Status: models.StatusDelivered}).Return(nil).Once()

	f.sessions.On("Lookup", "alice").Return(aliceSess, true).Twice()
	f.sessions.On("Lookup", "carol").Return(nil, false).Once()

	err := f.engine.PromotePending(context.Background(), "bob")
	require.NoError(t, err)

	f.assertExpectations(t)
	aliceSess.AssertExpectations(t)
}

func TestDeleteForEveryoneRejectsNonSender(t *testing.T) {
	f := newEngineFixture()

	msg := models.Message{ID: "m1", FromID: "alice", ToID: "bob", ChatKey: "alice-bob"}
	f.messages.On("GetMessage", mock.Anything, "m1").Return(msg, nil).Once()

	err := f.engine.DeleteForEveryone(context.Background(), "bob", "m1")
	assert.ErrorIs(t, err, delivery.ErrNotSender)

	f.messages.AssertNotCalled(t, "MarkDeletedForAll", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestDeleteForEveryoneBroadcastsToPartition(t *testing.T) {
	f := newEngineFixture()

	msg := models.Message{ID: "m1", FromID: "alice", ToID: "bob", ChatKey: "alice-bob"}
	f.messages.On("GetMessage", mock.Anything, "m1").Return(msg, nil).Once()
	f.messages.On("MarkDeletedForAll", mock.Anything, "m1").Return(nil).Once()
	f.rooms.On("Broadcast", "alice-bob", models.EventMessageDeleted, models.MessageDeletedEvent{
		MessageID: "m1", ChatKey: "alice-bob",
	}).Once()

	err := f.engine.DeleteForEveryone(context.Background(), "alice", "m1")
	require.NoError(t, err)

	f.assertExpectations(t)
}

func TestDeleteForMeRequiresParticipant(t *testing.T) {
	f := newEngineFixture()

	msg := models.Message{ID: "m1", FromID: "alice", ToID: "bob", ChatKey: "alice-bob"}
	f.messages.On("GetMessage", mock.Anything, "m1").Return(msg, nil).Once()

	err := f.engine.DeleteForMe(context.Background(), "mallory", "m1")
	assert.ErrorIs(t, err, delivery.ErrNotParticipant)
	f.assertExpectations(t)
}

func TestSetPinnedRequiresParticipant(t *testing.T) {
	f := newEngineFixture()

	msg := models.Message{ID: "m1", FromID: "alice", ToID: "bob"}
	f.messages.On("GetMessage", mock.Anything, "m1").Return(msg, nil).Twice()
	f.messages.On("SetPinned", mock.Anything, "m1", true).Return(nil).Once()

	require.NoError(t, f.engine.SetPinned(context.Background(), "bob", "m1", true))
	assert.ErrorIs(t, f.engine.SetPinned(context.Background(), "mallory", "m1", true), delivery.ErrNotParticipant)

	f.assertExpectations(t)
}

func TestMarkUnreadValidatesPartner(t *testing.T) {
	f := newEngineFixture()

	f.users.On("GetUser", mock.Anything, "alice").Return(models.User{ID: "alice"}, nil).Once()
	f.messages.On("MarkUnreadLatest", mock.Anything, "alice-bob", "alice", "bob").Return(nil).Once()

	require.NoError(t, f.engine.MarkUnread(context.Background(), "bob", "alice"))
	f.assertExpectations(t)
}
