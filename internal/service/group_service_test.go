package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meetup-chat/internal/mocks"
	"meetup-chat/internal/models"
)

func newGroupService() (*GroupService, *mocks.GroupRepositoryMock, *mocks.GroupBroadcasterMock) {
	groupRepo := new(mocks.GroupRepositoryMock)
	broadcaster := new(mocks.GroupBroadcasterMock)
	return NewGroupService(groupRepo, broadcaster), groupRepo, broadcaster
}

func TestCreateBroadcastsFullAggregate(t *testing.T) {
	svc, groupRepo, broadcaster := newGroupService()

	aggregate := models.Group{ID: 5, Nombre: "Padel Thursdays", Members: []models.Membership{
		{ID: 1, Usuario: models.User{ID: 1, Nombre: "ana"}},
		{ID: 2, Usuario: models.User{ID: 2, Nombre: "bob"}},
	}}
	groupRepo.On("CreateGroup", mock.Anything, "Padel Thursdays", "", []int{1, 2}).Return(models.Group{ID: 5, Nombre: "Padel Thursdays"}, nil).Once()
	groupRepo.On("GetGroupAggregate", mock.Anything, 5).Return(aggregate, nil).Once()
	broadcaster.On("EmitNewGroup", aggregate).Once()

	group, err := svc.Create(context.Background(), "Padel Thursdays", "", []int{1, 2})
	require.NoError(t, err)
	require.Len(t, group.Members, 2)
	broadcaster.AssertExpectations(t)
}

func TestCreatePersistFailure(t *testing.T) {
	svc, groupRepo, broadcaster := newGroupService()

	groupRepo.On("CreateGroup", mock.Anything, "x", "", []int{1}).Return(nil, errors.New("db down")).Once()

	_, err := svc.Create(context.Background(), "x", "", []int{1})
	require.Error(t, err)
	broadcaster.AssertNotCalled(t, "EmitNewGroup", mock.Anything)
}

func TestCreateReloadFailureReturnsBareGroup(t *testing.T) {
	svc, groupRepo, broadcaster := newGroupService()

	groupRepo.On("CreateGroup", mock.Anything, "x", "", []int{1}).Return(models.Group{ID: 5, Nombre: "x"}, nil).Once()
	groupRepo.On("GetGroupAggregate", mock.Anything, 5).Return(nil, errors.New("db down")).Once()

	group, err := svc.Create(context.Background(), "x", "", []int{1})
	require.NoError(t, err)
	require.Equal(t, 5, group.ID)
	broadcaster.AssertNotCalled(t, "EmitNewGroup", mock.Anything)
}

func TestRenamePersistsThenBroadcasts(t *testing.T) {
	svc, groupRepo, broadcaster := newGroupService()

	aggregate := models.Group{ID: 9, Nombre: "Padel Fridays"}
	groupRepo.On("UpdateName", mock.Anything, 9, "Padel Fridays").Return(nil).Once()
	groupRepo.On("GetGroupAggregate", mock.Anything, 9).Return(aggregate, nil).Once()
	broadcaster.On("EmitUpdatedGroup", aggregate).Once()

	group, err := svc.Rename(context.Background(), 9, "Padel Fridays")
	require.NoError(t, err)
	require.Equal(t, "Padel Fridays", group.Nombre)
	broadcaster.AssertExpectations(t)
}

func TestRenamePersistFailureSkipsBroadcast(t *testing.T) {
	svc, groupRepo, broadcaster := newGroupService()

	groupRepo.On("UpdateName", mock.Anything, 9, "x").Return(errors.New("db down")).Once()

	_, err := svc.Rename(context.Background(), 9, "x")
	require.Error(t, err)
	broadcaster.AssertNotCalled(t, "EmitUpdatedGroup", mock.Anything)
}

func TestRemoveMemberOfNonMemberStillBroadcasts(t *testing.T) {
	svc, groupRepo, broadcaster := newGroupService()

	// repository treats removing a non-member as a no-op success
	aggregate := models.Group{ID: 9, Nombre: "Padel Thursdays"}
	groupRepo.On("RemoveMember", mock.Anything, 9, 42).Return(nil).Once()
	groupRepo.On("GetGroupAggregate", mock.Anything, 9).Return(aggregate, nil).Once()
	broadcaster.On("EmitUpdatedGroup", aggregate).Once()

	group, err := svc.RemoveMember(context.Background(), 9, 42)
	require.NoError(t, err)
	require.Equal(t, aggregate, group)
	broadcaster.AssertExpectations(t)
}

func TestMutationReloadFailureDegradesSilently(t *testing.T) {
	svc, groupRepo, broadcaster := newGroupService()

	groupRepo.On("AddMember", mock.Anything, 9, 3).Return(nil).Once()
	groupRepo.On("GetGroupAggregate", mock.Anything, 9).Return(nil, errors.New("db down")).Once()

	group, err := svc.AddMember(context.Background(), 9, 3)
	require.NoError(t, err)
	require.Equal(t, models.Group{ID: 9}, group)
	broadcaster.AssertNotCalled(t, "EmitUpdatedGroup", mock.Anything)
}
