package service

import (
	"context"
	"log"

	"meetup-chat/internal/models"
	"meetup-chat/internal/repositories"
)

// ChatBroadcaster is the fan-out side of message sending.
type ChatBroadcaster interface {
	EmitNewMessage(groupID int, msg models.Message)
}

// ChatService orchestrates message send and paginated retrieval: persist
// first, broadcast after. Broadcast failures never undo or fail a persisted
// send.
type ChatService struct {
	messages  repositories.MessageRepository
	groups    repositories.GroupRepository
	users     repositories.UserRepository
	broadcast ChatBroadcaster
}

// NewChatService constructs a ChatService.
func NewChatService(messages repositories.MessageRepository, groups repositories.GroupRepository, users repositories.UserRepository, broadcast ChatBroadcaster) *ChatService {
	return &ChatService{messages: messages, groups: groups, users: users, broadcast: broadcast}
}

// Send persists a message and fans it out to the group's room. An image sent
// out-of-band to blob storage arrives here as its URL, which becomes the
// message text with the image type. The returned message is the insert
// result; the broadcast payload additionally carries the resolved sender and
// group.
func (s *ChatService) Send(ctx context.Context, groupID, senderID int, texto, imageURL string) (models.Message, error) {
	content := texto
	tipo := models.TipoTexto
	if imageURL != "" {
		content = imageURL
		tipo = models.TipoImagen
	}

	msg, err := s.messages.CreateMessage(ctx, groupID, senderID, content, tipo)
	if err != nil {
		return models.Message{}, err
	}

	hydrated := msg
	if user, err := s.users.GetUser(ctx, senderID); err == nil {
		hydrated.Usuario = user
	} else {
		log.Printf("chat: resolve sender %d failed: %v", senderID, err)
	}
	// The broadcast payload always carries the group ref: clients route the
	// event by it, not by the unserialized grupo_id column. A failed name
	// lookup degrades to a bare ref, never a missing one.
	hydrated.Grupo = &models.GroupRef{ID: groupID}
	if group, err := s.groups.GetGroup(ctx, groupID); err == nil {
		hydrated.Grupo.Nombre = group.Nombre
	} else {
		log.Printf("chat: resolve group %d failed: %v", groupID, err)
	}

	s.broadcast.EmitNewMessage(groupID, hydrated)
	return msg, nil
}

// ListPage returns one page of history. Pagination is back-to-front: skip
// counts from the newest message, and each page comes back in ascending
// chronological order so the client can prepend it to what it already has.
// HayMas reports whether older messages remain beyond this page.
func (s *ChatService) ListPage(ctx context.Context, groupID, skip, take int) (models.MessagePage, error) {
	total, err := s.messages.CountMessages(ctx, groupID)
	if err != nil {
		return models.MessagePage{}, err
	}

	msgs, err := s.messages.ListNewestFirst(ctx, groupID, skip, take)
	if err != nil {
		return models.MessagePage{}, err
	}

	// Newest-first window, flipped ascending.
	page := make([]models.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		page = append(page, msgs[i])
	}

	return models.MessagePage{
		Mensajes: page,
		HayMas:   total > skip+take,
	}, nil
}
