package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"meetup-chat/internal/models"
	"meetup-chat/internal/repositories"
)

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, nombre, descripcion string, memberIDs []int) (models.Group, error) {
	args := m.Called(ctx, nombre, descripcion, memberIDs)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) GetGroupAggregate(ctx context.Context, groupID int) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	var groups []models.Group
	if val := args.Get(0); val != nil {
		groups = val.([]models.Group)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) UpdateName(ctx context.Context, groupID int, nombre string) error {
	args := m.Called(ctx, groupID, nombre)
	return args.Error(0)
}

func (m *GroupRepositoryMock) UpdateDescription(ctx context.Context, groupID int, descripcion string) error {
	args := m.Called(ctx, groupID, descripcion)
	return args.Error(0)
}

func (m *GroupRepositoryMock) UpdatePhoto(ctx context.Context, groupID int, fotoURL string) error {
	args := m.Called(ctx, groupID, fotoURL)
	return args.Error(0)
}

func (m *GroupRepositoryMock) AddMember(ctx context.Context, groupID, userID int) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) RemoveMember(ctx context.Context, groupID, userID int) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, groupID, senderID int, texto string, tipoMensaje int) (models.Message, error) {
	args := m.Called(ctx, groupID, senderID, texto, tipoMensaje)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListNewestFirst(ctx context.Context, groupID, skip, take int) ([]models.Message, error) {
	args := m.Called(ctx, groupID, skip, take)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) CountMessages(ctx context.Context, groupID int) (int, error) {
	args := m.Called(ctx, groupID)
	return args.Int(0), args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

type ChatBroadcasterMock struct {
	mock.Mock
}

func (m *ChatBroadcasterMock) EmitNewMessage(groupID int, msg models.Message) {
	m.Called(groupID, msg)
}

type GroupBroadcasterMock struct {
	mock.Mock
}

func (m *GroupBroadcasterMock) EmitNewGroup(group models.Group) {
	m.Called(group)
}

func (m *GroupBroadcasterMock) EmitUpdatedGroup(group models.Group) {
	m.Called(group)
}

func (m *GroupBroadcasterMock) EmitDeletedGroup(groupID int) {
	m.Called(groupID)
}

var _ repositories.GroupRepository = (*GroupRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
