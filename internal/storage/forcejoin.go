package storage

import (
	"context"
	"fmt"
	"time"
)

type ForceJoinChat struct {
	ChatID    int64
	ChatType  string
	Title     string
	InviteRef string // @username or an exported invite link
	AddedBy   int64
	AddedAt   time.Time
}

// AddForceJoinChat registers a required chat. Adding an already registered
// chat refreshes its details but keeps its position in the registry.
func (s *Storage) AddForceJoinChat(ctx context.Context, c *ForceJoinChat) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO force_join (chat_id, chat_type, chat_title, invite_ref, added_by, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			chat_type = excluded.chat_type,
			chat_title = excluded.chat_title,
			invite_ref = excluded.invite_ref
	`, c.ChatID, c.ChatType, c.Title, c.InviteRef, c.AddedBy, s.now())
	if err != nil {
		return fmt.Errorf("failed to add force-join chat: %w", err)
	}
	return nil
}

// RemoveForceJoinChat reports whether a chat was actually removed.
func (s *Storage) RemoveForceJoinChat(ctx context.Context, chatID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM force_join WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to remove force-join chat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// ListForceJoinChats returns the registry in insertion order.
func (s *Storage) ListForceJoinChats(ctx context.Context) ([]*ForceJoinChat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chat_id, chat_type, chat_title, invite_ref, added_by, added_at
		FROM force_join
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list force-join chats: %w", err)
	}
	defer rows.Close()

	var chats []*ForceJoinChat
	for rows.Next() {
		var c ForceJoinChat
		if err := rows.Scan(&c.ChatID, &c.ChatType, &c.Title, &c.InviteRef, &c.AddedBy, &c.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan force-join chat: %w", err)
		}
		chats = append(chats, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating force-join chats: %w", err)
	}
	return chats, nil
}
