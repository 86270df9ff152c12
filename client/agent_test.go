package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"meetup-chat/internal/models"
)

type fakeFetcher struct {
	pages []models.MessagePage
	calls [][2]int // recorded (skip, take)
	err   error
}

func (f *fakeFetcher) FetchPage(_ context.Context, groupID, skip, take int) (models.MessagePage, error) {
	f.calls = append(f.calls, [2]int{skip, take})
	if f.err != nil {
		return models.MessagePage{}, f.err
	}
	if len(f.pages) == 0 {
		return models.MessagePage{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func memberGroup(id, userID int) models.Group {
	return models.Group{ID: id, Nombre: "g", Members: []models.Membership{
		{ID: id*10 + userID, GroupID: id, UserID: userID, Usuario: models.User{ID: userID}},
	}}
}

func newMessageEvent(msg models.Message) models.ServerEvent {
	return models.ServerEvent{Name: models.EventNewMessage, Message: &msg}
}

func TestApplyNewMessageDeduplicates(t *testing.T) {
	agent := NewAgent(1, 10, &fakeFetcher{}, nil)
	agent.OpenChat(9)

	msg := models.Message{ID: 3, GroupID: 9, Texto: "hola"}
	require.NoError(t, agent.Apply(newMessageEvent(msg)))
	require.NoError(t, agent.Apply(newMessageEvent(msg)))

	require.Len(t, agent.Messages(9), 1)
}

func TestApplyNewMessageIgnoresClosedChats(t *testing.T) {
	agent := NewAgent(1, 10, &fakeFetcher{}, nil)

	msg := models.Message{ID: 3, GroupID: 9, Texto: "hola"}
	require.NoError(t, agent.Apply(newMessageEvent(msg)))

	require.Empty(t, agent.Messages(9))
}

func TestApplyNewMessageRoutesByEmbeddedGroup(t *testing.T) {
	agent := NewAgent(1, 10, &fakeFetcher{}, nil)
	agent.OpenChat(9)

	msg := models.Message{ID: 3, Texto: "hola", Grupo: &models.GroupRef{ID: 9}}
	require.NoError(t, agent.Apply(newMessageEvent(msg)))

	require.Len(t, agent.Messages(9), 1)
}

func TestApplyNewGroupFiltersByMembership(t *testing.T) {
	agent := NewAgent(1, 10, &fakeFetcher{}, nil)

	// a creation the local user is part of
	require.NoError(t, agent.Apply(models.ServerEvent{Name: models.EventNewGroup, Group: ptr(memberGroup(5, 1))}))
	// a creation for somebody else
	require.NoError(t, agent.Apply(models.ServerEvent{Name: models.EventNewGroup, Group: ptr(memberGroup(6, 2))}))
	// the same creation delivered again
	require.NoError(t, agent.Apply(models.ServerEvent{Name: models.EventNewGroup, Group: ptr(memberGroup(5, 1))}))

	groups := agent.Groups()
	require.Len(t, groups, 1)
	require.Equal(t, 5, groups[0].ID)
}

func TestSeedGroupsSuppressesRacingNewGroup(t *testing.T) {
	agent := NewAgent(1, 10, &fakeFetcher{}, nil)
	agent.SeedGroups([]models.Group{memberGroup(5, 1)})

	require.NoError(t, agent.Apply(models.ServerEvent{Name: models.EventNewGroup, Group: ptr(memberGroup(5, 1))}))

	require.Len(t, agent.Groups(), 1)
}

func TestApplyUpdatedGroupUpserts(t *testing.T) {
	agent := NewAgent(1, 10, &fakeFetcher{}, nil)
	agent.SeedGroups([]models.Group{memberGroup(5, 1)})

	updated := memberGroup(5, 1)
	updated.Nombre = "renamed"
	require.NoError(t, agent.Apply(models.ServerEvent{Name: models.EventUpdatedGroup, Group: &updated}))
	require.Equal(t, "renamed", agent.Groups()[0].Nombre)

	// an update for a group not seen before is adopted when the user belongs
	require.NoError(t, agent.Apply(models.ServerEvent{Name: models.EventUpdatedGroup, Group: ptr(memberGroup(6, 1))}))
	require.Len(t, agent.Groups(), 2)
}

func TestApplyUpdatedGroupRemovalForcesExitOnce(t *testing.T) {
	var exits []int
	agent := NewAgent(1, 10, &fakeFetcher{}, func(groupID int) {
		exits = append(exits, groupID)
	})
	agent.SeedGroups([]models.Group{memberGroup(5, 1)})
	agent.OpenChat(5)

	// an aggregate that no longer lists user 1
	removed := memberGroup(5, 2)
	require.NoError(t, agent.Apply(models.ServerEvent{Name: models.EventUpdatedGroup, Group: &removed}))
	require.NoError(t, agent.Apply(models.ServerEvent{Name: models.EventUpdatedGroup, Group: &removed}))

	require.Empty(t, agent.Groups())
	require.Zero(t, agent.ActiveGroup())
	require.Equal(t, []int{5}, exits)
}

func TestApplyUpdatedGroupRemovalOfClosedChat(t *testing.T) {
	called := false
	agent := NewAgent(1, 10, &fakeFetcher{}, func(int) { called = true })
	agent.SeedGroups([]models.Group{memberGroup(5, 1)})

	removed := memberGroup(5, 2)
	require.NoError(t, agent.Apply(models.ServerEvent{Name: models.EventUpdatedGroup, Group: &removed}))

	require.Empty(t, agent.Groups())
	require.False(t, called)
}

func TestApplyDeletedGroupForcesExit(t *testing.T) {
	var exits []int
	agent := NewAgent(1, 10, &fakeFetcher{}, func(groupID int) {
		exits = append(exits, groupID)
	})
	agent.SeedGroups([]models.Group{memberGroup(5, 1)})
	agent.OpenChat(5)

	require.NoError(t, agent.Apply(models.ServerEvent{Name: models.EventDeletedGroup, DeletedGroup: &models.DeletedGroup{ID: 5}}))

	require.Empty(t, agent.Groups())
	require.Zero(t, agent.ActiveGroup())
	require.Equal(t, []int{5}, exits)
}

func TestApplyUnknownEvent(t *testing.T) {
	agent := NewAgent(1, 10, &fakeFetcher{}, nil)
	require.Error(t, agent.Apply(models.ServerEvent{Name: "mystery"}))
}

func TestLoadMorePrependsOlderPages(t *testing.T) {
	fetcher := &fakeFetcher{pages: []models.MessagePage{
		{Mensajes: []models.Message{{ID: 16, Texto: "m16"}, {ID: 17, Texto: "m17"}}, HayMas: true},
		{Mensajes: []models.Message{{ID: 14, Texto: "m14"}, {ID: 15, Texto: "m15"}}, HayMas: false},
	}}
	agent := NewAgent(1, 2, fetcher, nil)
	agent.OpenChat(9)

	fetched, err := agent.LoadMore(context.Background(), 9)
	require.NoError(t, err)
	require.True(t, fetched)

	fetched, err = agent.LoadMore(context.Background(), 9)
	require.NoError(t, err)
	require.True(t, fetched)

	msgs := agent.Messages(9)
	require.Equal(t, []int{14, 15, 16, 17}, []int{msgs[0].ID, msgs[1].ID, msgs[2].ID, msgs[3].ID})
	// skip follows the fetched count, not list length
	require.Equal(t, [][2]int{{0, 2}, {2, 2}}, fetcher.calls)

	// the second page said no more history
	fetched, err = agent.LoadMore(context.Background(), 9)
	require.NoError(t, err)
	require.False(t, fetched)
	require.Len(t, fetcher.calls, 2)
}

func TestLoadMoreIgnoresUnopenedChat(t *testing.T) {
	fetcher := &fakeFetcher{}
	agent := NewAgent(1, 2, fetcher, nil)

	fetched, err := agent.LoadMore(context.Background(), 9)
	require.NoError(t, err)
	require.False(t, fetched)
	require.Empty(t, fetcher.calls)
}

func TestLoadMoreSkipUnaffectedByLiveBroadcasts(t *testing.T) {
	fetcher := &fakeFetcher{pages: []models.MessagePage{
		{Mensajes: []models.Message{{ID: 16, Texto: "m16"}, {ID: 17, Texto: "m17"}}, HayMas: true},
		{Mensajes: []models.Message{{ID: 14, Texto: "m14"}, {ID: 15, Texto: "m15"}}, HayMas: true},
	}}
	agent := NewAgent(1, 2, fetcher, nil)
	agent.OpenChat(9)

	_, err := agent.LoadMore(context.Background(), 9)
	require.NoError(t, err)

	// a live message lands between page loads
	require.NoError(t, agent.Apply(newMessageEvent(models.Message{ID: 18, GroupID: 9, Texto: "live"})))

	_, err = agent.LoadMore(context.Background(), 9)
	require.NoError(t, err)

	require.Equal(t, [][2]int{{0, 2}, {2, 2}}, fetcher.calls)

	msgs := agent.Messages(9)
	require.Equal(t, 14, msgs[0].ID)
	require.Equal(t, 18, msgs[len(msgs)-1].ID)
}

func TestLoadMoreDropsMessagesAlreadyBroadcast(t *testing.T) {
	fetcher := &fakeFetcher{pages: []models.MessagePage{
		{Mensajes: []models.Message{{ID: 16, Texto: "m16"}, {ID: 17, Texto: "m17"}}, HayMas: false},
	}}
	agent := NewAgent(1, 2, fetcher, nil)
	agent.OpenChat(9)

	// the newest message arrived over the socket before the page fetch
	require.NoError(t, agent.Apply(newMessageEvent(models.Message{ID: 17, GroupID: 9, Texto: "m17"})))

	_, err := agent.LoadMore(context.Background(), 9)
	require.NoError(t, err)

	msgs := agent.Messages(9)
	require.Len(t, msgs, 2)
	require.Equal(t, 16, msgs[0].ID)
	require.Equal(t, 17, msgs[1].ID)
}

func ptr[T any](v T) *T { return &v }
