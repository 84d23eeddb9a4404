package storage

import (
	"context"
	"fmt"
	"time"
)

type UsageLog struct {
	UserID  int64
	GroupID *int64
	Command string
	Query   string
}

type Stats struct {
	TotalUsers       int
	TotalGroups      int
	TotalQueries     int
	DailyActiveUsers int
}

func (s *Storage) LogUsage(ctx context.Context, entry UsageLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_logs (uid, gid, cmd, qtext, ts)
		VALUES (?, ?, ?, ?, ?)
	`, entry.UserID, entry.GroupID, entry.Command, entry.Query, s.now())
	if err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}
	return nil
}

// GetStats aggregates counters for /stats. Daily active users are distinct
// users with a usage log entry in the last 24 hours.
func (s *Storage) GetStats(ctx context.Context) (*Stats, error) {
	since := s.now().Add(-24 * time.Hour)

	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM chat_groups),
			(SELECT COUNT(*) FROM usage_logs),
			(SELECT COUNT(DISTINCT uid) FROM usage_logs WHERE ts >= ?)
	`, since).Scan(&st.TotalUsers, &st.TotalGroups, &st.TotalQueries, &st.DailyActiveUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &st, nil
}
