package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rg/neetbot/internal/messaging"
	"github.com/rg/neetbot/internal/metrics"
)

// RateLimiter is a per-user sliding window limiter.
type RateLimiter struct {
	requests map[int64][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	valid := rl.requests[userID][:0]
	for _, t := range rl.requests[userID] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[userID] = valid
		return false
	}

	rl.requests[userID] = append(valid, now)
	return true
}

// Cleanup forgets users with no requests inside the window.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)

	for userID, requests := range rl.requests {
		if len(requests) == 0 || !requests[len(requests)-1].After(cutoff) {
			delete(rl.requests, userID)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

type Middleware struct {
	rateLimiter *RateLimiter
	exempt      func(userID int64) bool
	onLimited   messaging.MessageHandler
}

// NewMiddleware builds the update middleware. Users for which exempt returns
// true are never rate limited. onLimited, when set, is called instead of the
// wrapped handler for a rejected message.
func NewMiddleware(rateLimit int, window time.Duration, exempt func(userID int64) bool, onLimited messaging.MessageHandler) *Middleware {
	if exempt == nil {
		exempt = func(int64) bool { return false }
	}
	return &Middleware{
		rateLimiter: NewRateLimiter(rateLimit, window),
		exempt:      exempt,
		onLimited:   onLimited,
	}
}

func (m *Middleware) RateLimit(handler messaging.MessageHandler) messaging.MessageHandler {
	return func(ctx context.Context, msg *messaging.IncomingMessage) error {
		if !m.exempt(msg.From.ID) && !m.rateLimiter.Allow(msg.From.ID) {
			slog.Warn("Rate limit exceeded", "user_id", msg.From.ID, "chat_id", msg.ChatID)
			metrics.UpdatesHandled.WithLabelValues("message", "rate_limited").Inc()
			if m.onLimited != nil {
				return m.onLimited(ctx, msg)
			}
			return nil
		}
		return handler(ctx, msg)
	}
}

func (m *Middleware) Logger(handler messaging.MessageHandler) messaging.MessageHandler {
	return func(ctx context.Context, msg *messaging.IncomingMessage) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic handling message: %v", r)
			}
			logResult("message", msg.ChatID, msg.From.ID, time.Since(start), err)
		}()
		return handler(ctx, msg)
	}
}

func (m *Middleware) CallbackLogger(handler messaging.CallbackHandler) messaging.CallbackHandler {
	return func(ctx context.Context, cb *messaging.Callback) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic handling callback: %v", r)
			}
			logResult("callback", cb.ChatID, cb.From.ID, time.Since(start), err)
		}()
		return handler(ctx, cb)
	}
}

func logResult(kind string, chatID, userID int64, duration time.Duration, err error) {
	if err != nil {
		metrics.UpdatesHandled.WithLabelValues(kind, "error").Inc()
		slog.Error("Update failed", "kind", kind, "chat_id", chatID, "user_id", userID, "duration", duration, "error", err)
		return
	}
	metrics.UpdatesHandled.WithLabelValues(kind, "ok").Inc()
	slog.Debug("Update handled", "kind", kind, "chat_id", chatID, "user_id", userID, "duration", duration)
}

func (m *Middleware) StartCleanupWorker(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.rateLimiter.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}
