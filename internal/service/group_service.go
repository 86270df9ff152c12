package service

import (
	"context"
	"log"

	"meetup-chat/internal/models"
	"meetup-chat/internal/repositories"
)

// GroupBroadcaster is the fan-out side of group mutations.
type GroupBroadcaster interface {
	EmitNewGroup(group models.Group)
	EmitUpdatedGroup(group models.Group)
	EmitDeletedGroup(groupID int)
}

// GroupService orchestrates group mutations: persist, reload the full
// aggregate, broadcast. The three steps are not wrapped in one transaction;
// a concurrent mutation between persist and reload can surface in the
// broadcast, which clients tolerate because every event carries the whole
// aggregate. When the reload fails after a successful persist, the mutation
// stands and the broadcast is skipped; clients catch up on their next fetch.
type GroupService struct {
	groups    repositories.GroupRepository
	broadcast GroupBroadcaster
}

// NewGroupService constructs a GroupService.
func NewGroupService(groups repositories.GroupRepository, broadcast GroupBroadcaster) *GroupService {
	return &GroupService{groups: groups, broadcast: broadcast}
}

// Create persists a group with its initial members and broadcasts the new
// aggregate. memberIDs must include the creator.
func (s *GroupService) Create(ctx context.Context, nombre, descripcion string, memberIDs []int) (models.Group, error) {
	group, err := s.groups.CreateGroup(ctx, nombre, descripcion, memberIDs)
	if err != nil {
		return models.Group{}, err
	}

	aggregate, err := s.groups.GetGroupAggregate(ctx, group.ID)
	if err != nil {
		log.Printf("group: reload after create of %d failed: %v", group.ID, err)
		return group, nil
	}

	s.broadcast.EmitNewGroup(aggregate)
	return aggregate, nil
}

// Rename updates the group name.
func (s *GroupService) Rename(ctx context.Context, groupID int, nombre string) (models.Group, error) {
	if err := s.groups.UpdateName(ctx, groupID, nombre); err != nil {
		return models.Group{}, err
	}
	return s.reloadAndEmit(ctx, groupID), nil
}

// Redescribe updates the group description.
func (s *GroupService) Redescribe(ctx context.Context, groupID int, descripcion string) (models.Group, error) {
	if err := s.groups.UpdateDescription(ctx, groupID, descripcion); err != nil {
		return models.Group{}, err
	}
	return s.reloadAndEmit(ctx, groupID), nil
}

// Rephoto updates the group photo URL.
func (s *GroupService) Rephoto(ctx context.Context, groupID int, fotoURL string) (models.Group, error) {
	if err := s.groups.UpdatePhoto(ctx, groupID, fotoURL); err != nil {
		return models.Group{}, err
	}
	return s.reloadAndEmit(ctx, groupID), nil
}

// AddMember adds a user to the group.
func (s *GroupService) AddMember(ctx context.Context, groupID, userID int) (models.Group, error) {
	if err := s.groups.AddMember(ctx, groupID, userID); err != nil {
		return models.Group{}, err
	}
	return s.reloadAndEmit(ctx, groupID), nil
}

// RemoveMember removes a user from the group. Removing a user who is not a
// member is a silent no-op; the reload and broadcast still happen.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID int) (models.Group, error) {
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return models.Group{}, err
	}
	return s.reloadAndEmit(ctx, groupID), nil
}

// reloadAndEmit fetches the aggregate and broadcasts it as updatedGroup.
// A failed reload degrades silently: the bare group id comes back so the
// HTTP caller still sees its mutation acknowledged.
func (s *GroupService) reloadAndEmit(ctx context.Context, groupID int) models.Group {
	aggregate, err := s.groups.GetGroupAggregate(ctx, groupID)
	if err != nil {
		log.Printf("group: reload after mutation of %d failed: %v", groupID, err)
		return models.Group{ID: groupID}
	}
	s.broadcast.EmitUpdatedGroup(aggregate)
	return aggregate
}
