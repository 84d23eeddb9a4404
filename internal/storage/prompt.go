package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PendingPrompt is the single outstanding join prompt shown to a user.
type PendingPrompt struct {
	UserID    int64
	ChatID    int64
	MessageID int
	CreatedAt time.Time
}

// SavePendingPrompt stores the prompt for p.UserID, replacing any previous one.
func (s *Storage) SavePendingPrompt(ctx context.Context, p *PendingPrompt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO pending_prompts (uid, message_id, chat_id, created_at)
		VALUES (?, ?, ?, ?)
	`, p.UserID, p.MessageID, p.ChatID, s.now())
	if err != nil {
		return fmt.Errorf("failed to save pending prompt: %w", err)
	}
	return nil
}

func (s *Storage) GetPendingPrompt(ctx context.Context, uid int64) (*PendingPrompt, error) {
	var p PendingPrompt
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, message_id, chat_id, created_at
		FROM pending_prompts
		WHERE uid = ?
	`, uid).Scan(&p.UserID, &p.MessageID, &p.ChatID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending prompt: %w", err)
	}
	return &p, nil
}

func (s *Storage) DeletePendingPrompt(ctx context.Context, uid int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_prompts WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("failed to delete pending prompt: %w", err)
	}
	return nil
}

// DeletePendingPromptIf removes the user's prompt only while it still refers
// to messageID. It reports whether a row was deleted.
func (s *Storage) DeletePendingPromptIf(ctx context.Context, uid int64, messageID int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_prompts WHERE uid = ? AND message_id = ?`, uid, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to delete pending prompt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// ListStalePrompts returns prompts created before the cutoff, oldest first.
func (s *Storage) ListStalePrompts(ctx context.Context, before time.Time) ([]*PendingPrompt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uid, message_id, chat_id, created_at
		FROM pending_prompts
		WHERE created_at < ?
		ORDER BY created_at
	`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list stale prompts: %w", err)
	}
	defer rows.Close()

	var prompts []*PendingPrompt
	for rows.Next() {
		var p PendingPrompt
		if err := rows.Scan(&p.UserID, &p.MessageID, &p.ChatID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending prompt: %w", err)
		}
		prompts = append(prompts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending prompts: %w", err)
	}
	return prompts, nil
}
