package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/delivery"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "me")
		c.Next()
	})
	r.GET("/chats/:user_id/messages", handler.GetChatMessages)
	r.GET("/messages/favourites", handler.ListFavourites)
	r.POST("/messages/:message_id/pin", handler.PinMessage)
	r.POST("/messages/:message_id/favourite", handler.FavouriteMessage)
	return r
}

func newMessageEngine(messageRepo *mocks.MessageRepositoryMock) *delivery.Engine {
	return delivery.NewEngine(messageRepo, new(mocks.UserRepositoryMock),
		new(mocks.RegistryMock), new(mocks.RoomBroadcasterMock), new(mocks.NotifierMock))
}

func TestGetChatMessages(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, newMessageEngine(messageRepo))
	router := setupMessageRouter(handler)

	messageRepo.On("ListChatMessages", mock.Anything, "alice-me", "me").
		Return([]models.Message{{ID: "m1", FromID: "alice", ToID: "me", Body: "hi"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/alice/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "m1", resp.Messages[0].ID)
	messageRepo.AssertExpectations(t)
}

func TestGetChatMessagesWithSelf(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, newMessageEngine(messageRepo))
	router := setupMessageRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/chats/me/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPinMessageAsParticipant(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, newMessageEngine(messageRepo))
	router := setupMessageRouter(handler)

	messageRepo.On("GetMessage", mock.Anything, "m1").
		Return(models.Message{ID: "m1", FromID: "alice", ToID: "me"}, nil).Once()
	messageRepo.On("SetPinned", mock.Anything, "m1", true).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/m1/pin", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestPinMessageForbiddenForOutsider(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, newMessageEngine(messageRepo))
	router := setupMessageRouter(handler)

	messageRepo.On("GetMessage", mock.Anything, "m1").
		Return(models.Message{ID: "m1", FromID: "alice", ToID: "bob"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/m1/pin", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestFavouriteMessageNotFound(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, newMessageEngine(messageRepo))
	router := setupMessageRouter(handler)

	messageRepo.On("GetMessage", mock.Anything, "missing").
		Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/missing/favourite", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestListFavourites(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, newMessageEngine(messageRepo))
	router := setupMessageRouter(handler)

	messageRepo.On("ListFavourites", mock.Anything, "me").
		Return([]models.Message{{ID: "m2", Favourite: true}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages/favourites", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messageRepo.AssertExpectations(t)
}
