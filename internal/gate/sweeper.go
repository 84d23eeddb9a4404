package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rg/neetbot/internal/metrics"
	"github.com/rg/neetbot/internal/storage"
)

type SweepStore interface {
	ListStalePrompts(ctx context.Context, before time.Time) ([]*storage.PendingPrompt, error)
	DeletePendingPromptIf(ctx context.Context, uid int64, messageID int) (bool, error)
}

type MessageDeleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Sweeper removes join prompts that outlived their TTL, e.g. because the
// process stopped between sending a prompt and the user returning.
type Sweeper struct {
	store    SweepStore
	deleter  MessageDeleter
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(store SweepStore, deleter MessageDeleter, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		deleter:  deleter,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Starting prompt sweeper", "interval", s.interval, "ttl", s.ttl)

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				slog.Error("Error during prompt sweep", "error", err)
			}
		case <-ctx.Done():
			slog.Info("Prompt sweeper stopped")
			return
		}
	}
}

// Sweep deletes every stale prompt and returns how many records were removed.
// A record is only removed while it still points at the stale message, so a
// prompt the gate sent in the meantime stays tracked.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	stale, err := s.store.ListStalePrompts(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale prompts: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	slog.Info("Found stale join prompts to clean up", "count", len(stale))

	removed := 0
	for _, p := range stale {
		if err := s.deleter.DeleteMessage(ctx, p.ChatID, p.MessageID); err != nil {
			slog.Debug("Failed to delete stale prompt message", "user_id", p.UserID, "error", err)
		}
		deleted, err := s.store.DeletePendingPromptIf(ctx, p.UserID, p.MessageID)
		if err != nil {
			slog.Warn("Failed to delete stale prompt", "user_id", p.UserID, "error", err)
			continue
		}
		if !deleted {
			slog.Debug("Stale prompt was replaced before sweep", "user_id", p.UserID)
			continue
		}
		removed++
	}

	metrics.PromptsSwept.Add(float64(removed))
	return removed, nil
}
