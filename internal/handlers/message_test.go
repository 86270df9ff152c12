package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meetup-chat/internal/mocks"
	"meetup-chat/internal/models"
	"meetup-chat/internal/service"
)

type messageMocks struct {
	groupRepo   *mocks.GroupRepositoryMock
	messageRepo *mocks.MessageRepositoryMock
	userRepo    *mocks.UserRepositoryMock
	broadcaster *mocks.ChatBroadcasterMock
}

func setupMessageRouter() (*gin.Engine, messageMocks) {
	gin.SetMode(gin.TestMode)

	m := messageMocks{
		groupRepo:   new(mocks.GroupRepositoryMock),
		messageRepo: new(mocks.MessageRepositoryMock),
		userRepo:    new(mocks.UserRepositoryMock),
		broadcaster: new(mocks.ChatBroadcasterMock),
	}
	chatService := service.NewChatService(m.messageRepo, m.groupRepo, m.userRepo, m.broadcaster)
	handler := NewMessageHandler(chatService, m.groupRepo, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/groups/:group_id/messages", handler.GetMessagePage)
	r.POST("/groups/:group_id/messages", handler.PostMessage)
	return r, m
}

func TestGetMessagePageSuccess(t *testing.T) {
	router, m := setupMessageRouter()

	m.groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()
	m.messageRepo.On("CountMessages", mock.Anything, 9).Return(25, nil).Once()
	m.messageRepo.On("ListNewestFirst", mock.Anything, 9, 0, 10).Return([]models.Message{
		{ID: 25, Texto: "newest"},
		{ID: 24, Texto: "older"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/9/messages?skip=0&take=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var page models.MessagePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.True(t, page.HayMas)
	require.Len(t, page.Mensajes, 2)
	// ascending order on the wire
	require.Equal(t, "older", page.Mensajes[0].Texto)
	require.Equal(t, "newest", page.Mensajes[1].Texto)
	m.groupRepo.AssertExpectations(t)
	m.messageRepo.AssertExpectations(t)
}

func TestGetMessagePageInvalidWindow(t *testing.T) {
	router, m := setupMessageRouter()

	m.groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/9/messages?skip=-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMessagePageForbiddenForNonMember(t *testing.T) {
	router, m := setupMessageRouter()

	m.groupRepo.On("IsMember", mock.Anything, 9, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/9/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	m.groupRepo.AssertExpectations(t)
}

func TestPostMessageTextSuccess(t *testing.T) {
	router, m := setupMessageRouter()

	stored := models.Message{ID: 3, GroupID: 9, SenderID: 1, Texto: "hola", TipoMensaje: models.TipoTexto}
	m.groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()
	m.messageRepo.On("CreateMessage", mock.Anything, 9, 1, "hola", models.TipoTexto).Return(stored, nil).Once()
	m.userRepo.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Nombre: "ana"}, nil).Once()
	m.groupRepo.On("GetGroup", mock.Anything, 9).Return(models.Group{ID: 9, Nombre: "Padel Thursdays"}, nil).Once()
	m.broadcaster.On("EmitNewMessage", 9, mock.MatchedBy(func(msg models.Message) bool {
		return msg.Texto == "hola" && msg.Usuario.Nombre == "ana" && msg.Grupo != nil && msg.Grupo.ID == 9
	})).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/9/messages", bytes.NewBufferString(`{"texto":"hola"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	m.messageRepo.AssertExpectations(t)
	m.broadcaster.AssertExpectations(t)
}

func TestPostMessageImageSuccess(t *testing.T) {
	router, m := setupMessageRouter()

	url := "https://cdn.example.com/pic.jpg"
	stored := models.Message{ID: 4, GroupID: 9, SenderID: 1, Texto: url, TipoMensaje: models.TipoImagen}
	m.groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()
	m.messageRepo.On("CreateMessage", mock.Anything, 9, 1, url, models.TipoImagen).Return(stored, nil).Once()
	m.userRepo.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1}, nil).Once()
	m.groupRepo.On("GetGroup", mock.Anything, 9).Return(models.Group{ID: 9}, nil).Once()
	m.broadcaster.On("EmitNewMessage", 9, mock.Anything).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/9/messages", bytes.NewBufferString(`{"fotoUrl":"`+url+`"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	m.messageRepo.AssertExpectations(t)
}

func TestPostMessageEmptyBody(t *testing.T) {
	router, m := setupMessageRouter()

	m.groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/9/messages", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageInvalidGroupID(t *testing.T) {
	router, _ := setupMessageRouter()

	req := httptest.NewRequest(http.MethodPost, "/groups/abc/messages", bytes.NewBufferString(`{"texto":"hola"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
