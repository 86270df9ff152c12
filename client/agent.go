// Package client is the device-side half of the chat protocol: it keeps a
// local cache of groups and per-group message history consistent with the
// server's broadcasts, deduplicates events delivered more than once, and
// reconciles the user's own membership changes.
package client

import (
	"context"
	"fmt"
	"sync"

	"meetup-chat/internal/models"
)

// PageFetcher retrieves one page of message history over HTTP.
type PageFetcher interface {
	FetchPage(ctx context.Context, groupID, skip, take int) (models.MessagePage, error)
}

// Agent applies server events to the local cache. All methods serialize on
// an internal mutex; each event runs to completion before the next, so the
// cache never observes partial updates.
type Agent struct {
	mu            sync.Mutex
	userID        int
	pageSize      int
	fetcher       PageFetcher
	onForcedExit  func(groupID int)
	groups        []models.Group
	knownGroupIDs map[int]struct{}
	histories     map[int]*history
	activeGroupID int
}

// history is the per-open-chat message state. fetched counts only messages
// retrieved through pagination; live broadcasts do not move the pagination
// window.
type history struct {
	messages []models.Message
	seen     map[int]struct{}
	fetched  int
	loading  bool
	hasMore  bool
}

// NewAgent constructs an Agent for the given user. onForcedExit fires when
// an updatedGroup event removes the user from the group currently open in
// chat; the handler must leave the room before discarding its view.
func NewAgent(userID, pageSize int, fetcher PageFetcher, onForcedExit func(groupID int)) *Agent {
	return &Agent{
		userID:        userID,
		pageSize:      pageSize,
		fetcher:       fetcher,
		onForcedExit:  onForcedExit,
		knownGroupIDs: make(map[int]struct{}),
		histories:     make(map[int]*history),
	}
}

// SeedGroups installs the initial group list from a full fetch. Seeded ids
// are marked processed so a racing newGroup broadcast is not applied twice.
func (a *Agent) SeedGroups(groups []models.Group) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.groups = append([]models.Group(nil), groups...)
	a.knownGroupIDs = make(map[int]struct{}, len(groups))
	for _, g := range groups {
		a.knownGroupIDs[g.ID] = struct{}{}
	}
}

// Groups returns a copy of the local group list.
func (a *Agent) Groups() []models.Group {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Group(nil), a.groups...)
}

// Messages returns a copy of the ordered history of an open chat.
func (a *Agent) Messages(groupID int) []models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	h, ok := a.histories[groupID]
	if !ok {
		return nil
	}
	return append([]models.Message(nil), h.messages...)
}

// ActiveGroup returns the id of the group open in chat view, or zero.
func (a *Agent) ActiveGroup() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeGroupID
}

// OpenChat marks the group as the currently viewed chat and resets its
// history state. The caller joins the room and loads the first page.
func (a *Agent) OpenChat(groupID int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activeGroupID = groupID
	a.histories[groupID] = &history{seen: make(map[int]struct{}), hasMore: true}
}

// CloseChat leaves the chat view, discarding its history state. The caller
// leaves the room before calling this.
func (a *Agent) CloseChat() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeGroupID != 0 {
		delete(a.histories, a.activeGroupID)
		a.activeGroupID = 0
	}
}

// Apply processes one decoded server event.
func (a *Agent) Apply(ev models.ServerEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.Name {
	case models.EventNewMessage:
		a.applyNewMessage(*ev.Message)
	case models.EventNewGroup:
		a.applyNewGroup(*ev.Group)
	case models.EventUpdatedGroup:
		a.applyUpdatedGroup(*ev.Group)
	case models.EventDeletedGroup:
		a.applyDeletedGroup(ev.DeletedGroup.ID)
	default:
		return fmt.Errorf("unhandled event %q", ev.Name)
	}
	return nil
}

// applyNewMessage appends to the open chat's history unless the id was
// already seen. The same message can arrive via the initial page fetch and
// the broadcast that raced it.
func (a *Agent) applyNewMessage(msg models.Message) {
	groupID := msg.GroupID
	if msg.Grupo != nil {
		groupID = msg.Grupo.ID
	}
	h, ok := a.histories[groupID]
	if !ok {
		return
	}
	if _, dup := h.seen[msg.ID]; dup {
		return
	}
	h.seen[msg.ID] = struct{}{}
	h.messages = append(h.messages, msg)
}

// applyNewGroup appends a group the local user belongs to. The server
// broadcasts every creation to every registered user; events for other
// people's groups are dropped here.
func (a *Agent) applyNewGroup(group models.Group) {
	if !group.HasMember(a.userID) {
		return
	}
	if _, known := a.knownGroupIDs[group.ID]; known {
		return
	}
	a.knownGroupIDs[group.ID] = struct{}{}
	a.groups = append(a.groups, group)
}

// applyUpdatedGroup upserts the aggregate while the local user remains a
// member and removes it otherwise. Removal of the group currently open in
// chat forces the view closed, exactly once.
func (a *Agent) applyUpdatedGroup(group models.Group) {
	if group.HasMember(a.userID) {
		for i := range a.groups {
			if a.groups[i].ID == group.ID {
				a.groups[i] = group
				return
			}
		}
		a.knownGroupIDs[group.ID] = struct{}{}
		a.groups = append(a.groups, group)
		return
	}

	a.removeGroup(group.ID)
	if a.activeGroupID == group.ID {
		delete(a.histories, group.ID)
		a.activeGroupID = 0
		if a.onForcedExit != nil {
			a.onForcedExit(group.ID)
		}
	}
}

func (a *Agent) applyDeletedGroup(groupID int) {
	a.removeGroup(groupID)
	if a.activeGroupID == groupID {
		delete(a.histories, groupID)
		a.activeGroupID = 0
		if a.onForcedExit != nil {
			a.onForcedExit(groupID)
		}
	}
}

func (a *Agent) removeGroup(groupID int) {
	delete(a.knownGroupIDs, groupID)
	for i := range a.groups {
		if a.groups[i].ID == groupID {
			a.groups = append(a.groups[:i], a.groups[i+1:]...)
			return
		}
	}
}

// LoadMore fetches the next-older page for an open chat and prepends it to
// the local history. The call is ignored when a fetch is already in flight
// for the group or the last page reported no older messages; it reports
// whether a fetch was performed.
func (a *Agent) LoadMore(ctx context.Context, groupID int) (bool, error) {
	a.mu.Lock()
	h, ok := a.histories[groupID]
	if !ok || h.loading || !h.hasMore {
		a.mu.Unlock()
		return false, nil
	}
	h.loading = true
	skip := h.fetched
	a.mu.Unlock()

	page, err := a.fetcher.FetchPage(ctx, groupID, skip, a.pageSize)

	a.mu.Lock()
	defer a.mu.Unlock()
	h.loading = false
	if err != nil {
		return false, err
	}

	// The page arrives ascending; keep order while dropping ids already
	// delivered by broadcast.
	fresh := make([]models.Message, 0, len(page.Mensajes))
	for _, msg := range page.Mensajes {
		if _, dup := h.seen[msg.ID]; dup {
			continue
		}
		h.seen[msg.ID] = struct{}{}
		fresh = append(fresh, msg)
	}
	h.messages = append(fresh, h.messages...)
	h.fetched += len(page.Mensajes)
	h.hasMore = page.HayMas
	return true, nil
}
