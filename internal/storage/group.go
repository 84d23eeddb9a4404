package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Group struct {
	ID       int64
	Title    string
	Username string
	AddedAt  time.Time
	ChatOn   bool
}

// AddGroup registers a group the bot was added to. Re-adding keeps the
// original row and its chat mode.
func (s *Storage) AddGroup(ctx context.Context, gid int64, title, username string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO chat_groups (gid, title, username, added_at, chat_on)
		VALUES (?, ?, ?, ?, 1)
	`, gid, title, username, s.now())
	if err != nil {
		return fmt.Errorf("failed to add group: %w", err)
	}
	return nil
}

func (s *Storage) SetChatStatus(ctx context.Context, gid int64, on bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE chat_groups SET chat_on = ? WHERE gid = ?`, on, gid)
	if err != nil {
		return fmt.Errorf("failed to set chat status: %w", err)
	}
	return nil
}

// GetChatStatus reports whether free chat is enabled; unknown groups default to on.
func (s *Storage) GetChatStatus(ctx context.Context, gid int64) (bool, error) {
	var on bool
	err := s.db.QueryRowContext(ctx, `SELECT chat_on FROM chat_groups WHERE gid = ?`, gid).Scan(&on)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get chat status: %w", err)
	}
	return on, nil
}

func (s *Storage) ListGroups(ctx context.Context) ([]*Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT gid, title, username, added_at, chat_on
		FROM chat_groups
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Title, &g.Username, &g.AddedAt, &g.ChatOn); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}
	return groups, nil
}

// ListGroupIDs returns every known group in insertion (rowid) order.
func (s *Storage) ListGroupIDs(ctx context.Context) ([]int64, error) {
	return s.listIDs(ctx, `SELECT gid FROM chat_groups ORDER BY rowid`, "groups")
}
