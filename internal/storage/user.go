package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const DefaultLanguage = "hindi"

type User struct {
	ID             int64
	Username       string
	FirstName      string
	LastName       string
	LastSeen       time.Time
	TotalQuestions int
	JoinedAt       time.Time
	Language       string
}

// UpsertUser records a user interaction, creating the row on first contact.
func (s *Storage) UpsertUser(ctx context.Context, uid int64, username, firstName, lastName string) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (uid, username, first_name, last_name, last_seen, joined_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			last_seen = excluded.last_seen
	`, uid, username, firstName, lastName, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, uid int64) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, username, first_name, last_name, last_seen, total_questions, joined_at, language
		FROM users
		WHERE uid = ?
	`, uid).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.LastSeen, &u.TotalQuestions, &u.JoinedAt, &u.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *Storage) IncrementUserQuestions(ctx context.Context, uid int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET total_questions = total_questions + 1 WHERE uid = ?
	`, uid)
	if err != nil {
		return fmt.Errorf("failed to increment user questions: %w", err)
	}
	return nil
}

func (s *Storage) SetUserLanguage(ctx context.Context, uid int64, language string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET language = ? WHERE uid = ?`, language, uid)
	if err != nil {
		return fmt.Errorf("failed to set user language: %w", err)
	}
	return nil
}

// GetUserLanguage returns the stored language or DefaultLanguage for unknown users.
func (s *Storage) GetUserLanguage(ctx context.Context, uid int64) (string, error) {
	var lang string
	err := s.db.QueryRowContext(ctx, `SELECT language FROM users WHERE uid = ?`, uid).Scan(&lang)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && lang == "") {
		return DefaultLanguage, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user language: %w", err)
	}
	return lang, nil
}

// ListUserIDs returns every known user in insertion (rowid) order.
func (s *Storage) ListUserIDs(ctx context.Context) ([]int64, error) {
	return s.listIDs(ctx, `SELECT uid FROM users ORDER BY rowid`, "users")
}

func (s *Storage) listIDs(ctx context.Context, query, table string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id sql.NullInt64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w", table, err)
		}
		// A NULL id surfaces as 0 and is reported as a failed recipient.
		ids = append(ids, id.Int64)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}
	return ids, nil
}
