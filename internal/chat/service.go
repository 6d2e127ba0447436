// Package chat keeps one support thread per user and announces every change
// to the user's realtime room.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"liveacademy/internal/logging"
	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

// UpdatedPayload is broadcast to every client after a new message
type UpdatedPayload struct {
	UserID string             `json:"userId"`
	Last   *types.ChatMessage `json:"last"`
}

// Service implements chat threads over the store
// ARCHITECTURAL DISCOVERY: Persist-then-emit; a frame is only sent for a
// write the store accepted, and emit failures never fail the request
type Service struct {
	store       interfaces.ChatStore
	users       interfaces.UserDirectory
	broadcaster interfaces.Broadcaster
	now         func() time.Time
}

// NewService wires the chat service. users may be nil, in which case chats
// are returned without the embedded user summary.
func NewService(store interfaces.ChatStore, users interfaces.UserDirectory, broadcaster interfaces.Broadcaster) *Service {
	return &Service{
		store:       store,
		users:       users,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// List returns every chat, most recently updated first
func (s *Service) List(ctx context.Context) ([]*types.Chat, error) {
	chats, err := s.store.ListChats(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range chats {
		s.populate(ctx, c)
	}
	return chats, nil
}

// Get returns an existing chat
func (s *Service) Get(ctx context.Context, userID string) (*types.Chat, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	chat, err := s.store.GetChatByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, chat)
	return chat, nil
}

// GetOrCreate returns the user's chat, creating an empty one on first access
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*types.Chat, error) {
	chat, err := s.Get(ctx, userID)
	if !errors.Is(err, ErrChatNotFound) {
		return chat, err
	}

	chat, err = s.store.MutateChat(ctx, userID, true, func(*types.Chat) error { return nil })
	if err != nil {
		return nil, err
	}
	s.populate(ctx, chat)
	return chat, nil
}

// PostMessage appends a message, creating the chat if needed, then emits
// chat:message to the owner's room and chat:updated to everyone
func (s *Service) PostMessage(ctx context.Context, userID, sender, text string, attachments []string) (*types.Chat, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if sender != types.SenderUser && sender != types.SenderAdmin {
		return nil, ErrInvalidSender
	}
	if attachments == nil {
		attachments = []string{}
	}

	msg := types.ChatMessage{
		Sender:      sender,
		Text:        text,
		Attachments: attachments,
		CreatedAt:   s.now().UTC(),
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	chat, err := s.store.MutateChat(ctx, userID, true, func(c *types.Chat) error {
		c.Messages = append(c.Messages, msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.populate(ctx, chat)

	s.emitRoom(ctx, chat)
	if err := s.broadcaster.EmitBroadcast(types.EventChatUpdated, UpdatedPayload{UserID: userID, Last: chat.Last()}); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("failed to broadcast chat update")
	}
	return chat, nil
}

// EditMessage replaces the text of message idx
func (s *Service) EditMessage(ctx context.Context, userID string, idx int, text string, actor *types.User) (*types.Chat, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	return s.modify(ctx, userID, idx, actor, func(c *types.Chat) {
		c.Messages[idx].Text = text
	})
}

// DeleteMessage removes message idx, shifting later messages down
func (s *Service) DeleteMessage(ctx context.Context, userID string, idx int, actor *types.User) (*types.Chat, error) {
	return s.modify(ctx, userID, idx, actor, func(c *types.Chat) {
		c.Messages = append(c.Messages[:idx], c.Messages[idx+1:]...)
	})
}

// modify runs the permission checks inside the store write so the message at
// idx cannot change between the check and the update
// FUNCTIONAL DISCOVERY: admins may touch any message; other users may only
// touch their own messages in their own chat
func (s *Service) modify(ctx context.Context, userID string, idx int, actor *types.User, apply func(*types.Chat)) (*types.Chat, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if actor == nil || (!actor.IsAdmin() && actor.ID != userID) {
		return nil, ErrForbidden
	}

	chat, err := s.store.MutateChat(ctx, userID, false, func(c *types.Chat) error {
		if idx < 0 || idx >= len(c.Messages) {
			return ErrMessageNotFound
		}
		if !actor.IsAdmin() && c.Messages[idx].Sender != types.SenderUser {
			return ErrForbidden
		}
		apply(c)
		return nil
	})
	if errors.Is(err, ErrChatNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	s.populate(ctx, chat)
	s.emitRoom(ctx, chat)
	return chat, nil
}

func (s *Service) emitRoom(ctx context.Context, chat *types.Chat) {
	if err := s.broadcaster.EmitToRoom(chat.UserID, types.EventChatMessage, chat); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("room", chat.UserID).Msg("failed to emit chat message")
	}
}

// populate embeds the owner's directory summary; a missing user leaves it nil
func (s *Service) populate(ctx context.Context, chat *types.Chat) {
	if s.users == nil || chat == nil {
		return
	}
	u, err := s.users.GetUser(ctx, chat.UserID)
	if err != nil {
		if !errors.Is(err, interfaces.ErrUserNotFound) {
			logging.Ctx(ctx).Debug().Err(err).Str("user_id", chat.UserID).Msg("chat user lookup failed")
		}
		return
	}
	chat.User = u.Summary()
}
