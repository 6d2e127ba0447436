package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"liveacademy/pkg/interfaces"
	"liveacademy/pkg/types"
)

var chatColumns = []string{"id", "user_id", "messages", "updated_at"}

// GetChatByUser returns the chat thread owned by userID
func (m *Manager) GetChatByUser(ctx context.Context, userID string) (*types.Chat, error) {
	return m.getChat(ctx, m.db, userID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (m *Manager) getChat(ctx context.Context, q queryRower, userID string) (*types.Chat, error) {
	query, args, err := m.psq.Select(chatColumns...).
		From("chats").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build chat query: %w", err)
	}

	chat, err := scanChat(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to query chat: %w", err)
	}
	return chat, nil
}

// ListChats returns every chat, most recently updated first
func (m *Manager) ListChats(ctx context.Context) ([]*types.Chat, error) {
	query, args, err := m.psq.Select(chatColumns...).
		From("chats").
		OrderBy("updated_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build chat list: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	chats := []*types.Chat{}
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// MutateChat applies fn to the user's chat and persists the result as one row
func (m *Manager) MutateChat(ctx context.Context, userID string, create bool, fn func(*types.Chat) error) (*types.Chat, error) {
	var out *types.Chat
	err := m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		chat, err := m.getChat(ctx, db, userID)
		isNew := false
		switch {
		case errors.Is(err, interfaces.ErrChatNotFound) && create:
			chat = &types.Chat{ID: uuid.New().String(), UserID: userID, Messages: []types.ChatMessage{}}
			isNew = true
		case err != nil:
			return err
		}

		if err := fn(chat); err != nil {
			return err
		}
		chat.UpdatedAt = time.Now().UTC()

		messagesJSON, err := json.Marshal(chat.Messages)
		if err != nil {
			return fmt.Errorf("failed to marshal chat messages: %w", err)
		}

		var query string
		var args []interface{}
		if isNew {
			query, args, err = m.psq.Insert("chats").
				Columns(chatColumns...).
				Values(chat.ID, chat.UserID, string(messagesJSON), chat.UpdatedAt).
				ToSql()
		} else {
			query, args, err = m.psq.Update("chats").
				Set("messages", string(messagesJSON)).
				Set("updated_at", chat.UpdatedAt).
				Where(sq.Eq{"id": chat.ID}).
				ToSql()
		}
		if err != nil {
			return fmt.Errorf("failed to build chat write: %w", err)
		}
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to write chat: %w", err)
		}

		out = chat
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanChat(row rowScanner) (*types.Chat, error) {
	var chat types.Chat
	var messagesJSON string

	if err := row.Scan(&chat.ID, &chat.UserID, &messagesJSON, &chat.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(messagesJSON), &chat.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat messages: %w", err)
	}
	if chat.Messages == nil {
		chat.Messages = []types.ChatMessage{}
	}
	chat.UpdatedAt = chat.UpdatedAt.UTC()
	return &chat, nil
}
