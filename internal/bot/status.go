package bot

import (
	"context"

	"github.com/rg/neetbot/internal/broadcast"
	"github.com/rg/neetbot/internal/messaging"
)

// statusSink reports broadcast progress by editing one status message.
type statusSink struct {
	platform    messaging.Platform
	chatID      int64
	messageID   int
	botUsername string
}

func newStatusSink(platform messaging.Platform, chatID int64, messageID int, botUsername string) *statusSink {
	return &statusSink{
		platform:    platform,
		chatID:      chatID,
		messageID:   messageID,
		botUsername: botUsername,
	}
}

func (s *statusSink) Progress(ctx context.Context, snap broadcast.Snapshot) error {
	return s.platform.EditMessage(ctx, s.chatID, s.messageID, formatBroadcastProgress(snap))
}

func (s *statusSink) Complete(ctx context.Context, r broadcast.Report) error {
	return s.platform.EditMessage(ctx, s.chatID, s.messageID, formatBroadcastReport(r, s.botUsername))
}
