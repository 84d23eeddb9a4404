package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rg/neetbot/internal/admin"
	"github.com/rg/neetbot/internal/broadcast"
	"github.com/rg/neetbot/internal/messaging"
	"github.com/rg/neetbot/internal/storage"
)

const unauthorizedText = "❌ आप authorized नहीं हैं।"

// requireAdmin replies with a refusal when the sender is neither owner nor
// admin.
func (h *Handler) requireAdmin(ctx context.Context, msg *messaging.IncomingMessage) (bool, error) {
	ok, err := h.auth.IsAuthorized(ctx, msg.From.ID)
	if err != nil {
		return false, h.fail(ctx, msg, fmt.Errorf("failed to check admin status: %w", err))
	}
	if !ok {
		return false, h.reply(ctx, msg, unauthorizedText)
	}
	return true, nil
}

func (h *Handler) handleBroadcast(ctx context.Context, msg *messaging.IncomingMessage) error {
	if ok, err := h.requireAdmin(ctx, msg); !ok {
		return err
	}
	if msg.ReplyTo == nil {
		return h.reply(ctx, msg, "❌ Broadcast करने के लिए किसी message को reply करके /broadcast लिखें।")
	}

	recipients, err := broadcast.Enumerate(ctx, h.store)
	if err != nil {
		return h.fail(ctx, msg, fmt.Errorf("failed to enumerate recipients: %w", err))
	}

	statusID, err := h.platform.SendMessage(ctx, &messaging.OutgoingMessage{
		ChatID: msg.ChatID,
		Text:   formatBroadcastStart(recipients.Len()),
	})
	if err != nil {
		return h.fail(ctx, msg, fmt.Errorf("failed to send broadcast status: %w", err))
	}

	_, err = h.dispatcher.Broadcast(ctx, broadcast.Request{
		AdminID:    msg.From.ID,
		Source:     broadcast.Source{ChatID: msg.ReplyTo.ChatID, MessageID: msg.ReplyTo.MessageID},
		Recipients: recipients,
		Sink:       newStatusSink(h.platform, msg.ChatID, statusID, h.opts.BotUsername),
	})
	if err != nil {
		return h.fail(ctx, msg, err)
	}
	return nil
}

func (h *Handler) handlePromote(ctx context.Context, msg *messaging.IncomingMessage) error {
	target, ok := parseUserID(msg.CommandArgs)
	if !ok {
		return h.reply(ctx, msg, "Usage: /promote <user_id>")
	}

	err := h.auth.Promote(ctx, msg.From.ID, target)
	if errors.Is(err, admin.ErrUnauthorized) {
		return h.reply(ctx, msg, "❌ सिर्फ owner admins promote कर सकता है।")
	}
	if err != nil {
		return h.fail(ctx, msg, err)
	}

	h.logUsage(ctx, msg, "/promote", strconv.FormatInt(target, 10))

	_, notifyErr := h.platform.SendMessage(ctx, &messaging.OutgoingMessage{
		ChatID: target,
		Text:   "🎉 आपको NEET AI Bot का admin बना दिया गया है!\n\n/help से admin commands देखें।",
	})
	if notifyErr != nil {
		slog.Info("Could not notify promoted admin", "user_id", target, "error", notifyErr)
	}

	return h.reply(ctx, msg, fmt.Sprintf("✅ User `%d` को admin बना दिया गया।", target))
}

func (h *Handler) handleRemove(ctx context.Context, msg *messaging.IncomingMessage) error {
	target, ok := parseUserID(msg.CommandArgs)
	if !ok {
		return h.reply(ctx, msg, "Usage: /remove <user_id>")
	}

	err := h.auth.Remove(ctx, msg.From.ID, target)
	switch {
	case errors.Is(err, admin.ErrUnauthorized):
		return h.reply(ctx, msg, "❌ सिर्फ owner admins हटा सकता है।")
	case errors.Is(err, admin.ErrOwnerProtected):
		return h.reply(ctx, msg, "❌ Owner को हटाया नहीं जा सकता।")
	case err != nil:
		return h.fail(ctx, msg, err)
	}

	h.logUsage(ctx, msg, "/remove", strconv.FormatInt(target, 10))
	return h.reply(ctx, msg, fmt.Sprintf("✅ User `%d` अब admin नहीं है।", target))
}

func (h *Handler) handleAdminList(ctx context.Context, msg *messaging.IncomingMessage) error {
	admins, err := h.auth.List(ctx, msg.From.ID)
	if errors.Is(err, admin.ErrUnauthorized) {
		return h.reply(ctx, msg, unauthorizedText)
	}
	if err != nil {
		return h.fail(ctx, msg, err)
	}

	h.logUsage(ctx, msg, "/adminlist", "")
	return h.reply(ctx, msg, formatAdminList(h.auth.OwnerID(), admins))
}

func (h *Handler) handleGroupList(ctx context.Context, msg *messaging.IncomingMessage) error {
	if ok, err := h.requireAdmin(ctx, msg); !ok {
		return err
	}

	groups, err := h.store.ListGroups(ctx)
	if err != nil {
		return h.fail(ctx, msg, fmt.Errorf("failed to list groups: %w", err))
	}

	h.logUsage(ctx, msg, "/grouplist", "")
	return h.reply(ctx, msg, formatGroupList(groups))
}

// handleStats is open to everyone in groups and admin-only in private chats.
func (h *Handler) handleStats(ctx context.Context, msg *messaging.IncomingMessage) error {
	if msg.ChatType == messaging.ChatTypePrivate {
		if ok, err := h.requireAdmin(ctx, msg); !ok {
			return err
		}
	}

	stats, err := h.store.GetStats(ctx)
	if err != nil {
		return h.fail(ctx, msg, fmt.Errorf("failed to get stats: %w", err))
	}

	h.logUsage(ctx, msg, "/stats", "")
	return h.reply(ctx, msg, formatStats(stats, time.Since(h.startedAt)))
}

func (h *Handler) handleRefresh(ctx context.Context, msg *messaging.IncomingMessage) error {
	var allowed bool
	var err error
	if msg.ChatType.IsGroup() {
		allowed, err = h.canManageGroup(ctx, msg)
	} else {
		allowed, err = h.auth.IsAuthorized(ctx, msg.From.ID)
	}
	if err != nil {
		return h.fail(ctx, msg, err)
	}
	if !allowed {
		return h.reply(ctx, msg, unauthorizedText)
	}

	h.answers.Reset()
	h.logUsage(ctx, msg, "/refresh", "")
	return h.reply(ctx, msg, "🔄 Bot refresh हो गया!")
}

func (h *Handler) handleForceJoinAdd(ctx context.Context, msg *messaging.IncomingMessage) error {
	if ok, err := h.requireAdmin(ctx, msg); !ok {
		return err
	}

	ref := strings.TrimSpace(msg.CommandArgs)
	if ref == "" {
		return h.reply(ctx, msg, "Usage: /fjoin <@username | chat_id>")
	}

	chat, err := h.platform.GetChat(ctx, ref)
	if err != nil {
		slog.Warn("Failed to resolve force-join chat", "ref", ref, "error", err)
		return h.reply(ctx, msg, "❌ Chat नहीं मिला। पक्का करें कि bot उस chat में admin है।")
	}

	entry := &storage.ForceJoinChat{
		ChatID:   chat.ID,
		ChatType: chat.Type.String(),
		Title:    chat.Title,
		AddedBy:  msg.From.ID,
	}
	switch {
	case chat.Username != "":
		entry.InviteRef = "@" + chat.Username
	case chat.InviteLink != "":
		entry.InviteRef = chat.InviteLink
	default:
		link, err := h.platform.InviteLink(ctx, chat.ID)
		if err != nil {
			slog.Warn("Failed to export invite link", "chat_id", chat.ID, "error", err)
		}
		entry.InviteRef = link
	}

	if err := h.store.AddForceJoinChat(ctx, entry); err != nil {
		return h.fail(ctx, msg, fmt.Errorf("failed to add force-join chat: %w", err))
	}

	h.logUsage(ctx, msg, "/fjoin", ref)
	return h.reply(ctx, msg, fmt.Sprintf("✅ Force-join chat added: %s (`%d`)", chat.Title, chat.ID))
}

func (h *Handler) handleForceJoinRemove(ctx context.Context, msg *messaging.IncomingMessage) error {
	if ok, err := h.requireAdmin(ctx, msg); !ok {
		return err
	}

	ref := strings.TrimSpace(msg.CommandArgs)
	if ref == "" {
		return h.reply(ctx, msg, "Usage: /removefjoin <@username | chat_id>")
	}

	chatID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		chat, err := h.platform.GetChat(ctx, ref)
		if err != nil {
			slog.Warn("Failed to resolve force-join chat", "ref", ref, "error", err)
			return h.reply(ctx, msg, "❌ Chat नहीं मिला।")
		}
		chatID = chat.ID
	}

	removed, err := h.store.RemoveForceJoinChat(ctx, chatID)
	if err != nil {
		return h.fail(ctx, msg, fmt.Errorf("failed to remove force-join chat: %w", err))
	}
	if !removed {
		return h.reply(ctx, msg, fmt.Sprintf("ℹ️ Chat `%d` force-join list में नहीं है।", chatID))
	}

	h.logUsage(ctx, msg, "/removefjoin", ref)
	return h.reply(ctx, msg, fmt.Sprintf("✅ Chat `%d` force-join list से हटा दिया गया।", chatID))
}

func (h *Handler) handleDumpDB(ctx context.Context, msg *messaging.IncomingMessage) error {
	if !h.auth.IsOwner(msg.From.ID) {
		return h.reply(ctx, msg, "❌ यह command सिर्फ owner के लिए है।")
	}

	if err := h.store.Checkpoint(ctx); err != nil {
		slog.Warn("Checkpoint before dump failed", "error", err)
	}

	caption := fmt.Sprintf("🗄 Database dump %s", time.Now().UTC().Format("2006-01-02 15:04 MST"))
	if err := h.platform.SendDocument(ctx, msg.ChatID, h.store.Path(), caption); err != nil {
		return h.fail(ctx, msg, fmt.Errorf("failed to send database dump: %w", err))
	}

	h.logUsage(ctx, msg, "/dumpdb", "")
	return nil
}

func parseUserID(args string) (int64, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
