package storage

import (
	"context"
	"fmt"
	"time"
)

type Admin struct {
	UserID     int64
	PromotedBy int64
	PromotedAt time.Time
	Username   string
	FirstName  string
}

func (s *Storage) AddAdmin(ctx context.Context, uid, promotedBy int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO admins (uid, promoted_by, promoted_at)
		VALUES (?, ?, ?)
	`, uid, promotedBy, s.now())
	if err != nil {
		return fmt.Errorf("failed to add admin: %w", err)
	}
	return nil
}

// RemoveAdmin deletes the grant. Removing an unknown admin is not an error.
func (s *Storage) RemoveAdmin(ctx context.Context, uid int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("failed to remove admin: %w", err)
	}
	return nil
}

func (s *Storage) IsAdmin(ctx context.Context, uid int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM admins WHERE uid = ?)`, uid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return exists, nil
}

// ListAdmins returns admins in promotion order joined with whatever profile
// data the users table holds for them.
func (s *Storage) ListAdmins(ctx context.Context) ([]*Admin, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.uid, a.promoted_by, a.promoted_at,
			COALESCE(u.username, ''), COALESCE(u.first_name, '')
		FROM admins a
		LEFT JOIN users u ON u.uid = a.uid
		ORDER BY a.promoted_at, a.uid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var admins []*Admin
	for rows.Next() {
		var a Admin
		if err := rows.Scan(&a.UserID, &a.PromotedBy, &a.PromotedAt, &a.Username, &a.FirstName); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admins: %w", err)
	}
	return admins, nil
}
