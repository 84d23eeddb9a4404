package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rg/neetbot/internal/i18n"
	"github.com/rg/neetbot/internal/messaging"
)

const groupWelcome = `🎉 **धन्यवाद मुझे group में add करने के लिए!**

मैं इस group में NEET/JEE के सवालों का जवाब दूंगा।

**📌 कैसे इस्तेमाल करें:**
• किसी सवाल वाले message को reply करके /sol लिखें
• Group admins /chaton या /chatoff से auto-reply चालू/बंद कर सकते हैं

— NEET AI Bot ✨`

func (h *Handler) handleNewMembers(ctx context.Context, msg *messaging.IncomingMessage) error {
	self := h.platform.Self()
	for _, member := range msg.NewMembers {
		if member.ID != self.ID {
			continue
		}

		if err := h.store.AddGroup(ctx, msg.ChatID, msg.ChatTitle, msg.ChatUsername); err != nil {
			return fmt.Errorf("failed to register group: %w", err)
		}
		slog.Info("Added to group", "chat_id", msg.ChatID, "title", msg.ChatTitle, "added_by", msg.From.ID)

		_, err := h.platform.SendMessage(ctx, &messaging.OutgoingMessage{
			ChatID: msg.ChatID,
			Text:   groupWelcome,
		})
		if err != nil {
			return fmt.Errorf("failed to send group welcome: %w", err)
		}
		return nil
	}
	return nil
}

func (h *Handler) handleSol(ctx context.Context, msg *messaging.IncomingMessage) error {
	if msg.ReplyTo == nil {
		return h.reply(ctx, msg, "❌ कृपया किसी सवाल वाले message को reply करके /sol लिखें।")
	}

	question := strings.TrimSpace(msg.ReplyTo.Content())
	if question == "" {
		return h.reply(ctx, msg, "❌ Reply किए गए message में कोई text नहीं है।")
	}

	lang := h.userLanguage(ctx, msg.From.ID)
	if questionTooLong(question, h.opts.MaxQuestionLen) {
		return h.reply(ctx, msg, i18n.Get(lang, i18n.QuestionTooLong, h.opts.MaxQuestionLen))
	}

	answered, err := h.answerQuestion(ctx, msg, msg.ReplyTo, question, lang)
	if err != nil || !answered {
		return err
	}

	h.logUsage(ctx, msg, "/sol", question)
	return nil
}

func (h *Handler) handleChatMode(ctx context.Context, msg *messaging.IncomingMessage, on bool) error {
	allowed, err := h.canManageGroup(ctx, msg)
	if err != nil {
		return h.fail(ctx, msg, err)
	}
	if !allowed {
		return h.reply(ctx, msg, "❌ सिर्फ group admins यह command use कर सकते हैं।")
	}

	if err := h.store.SetChatStatus(ctx, msg.ChatID, on); err != nil {
		return h.fail(ctx, msg, fmt.Errorf("failed to set chat mode: %w", err))
	}

	command, text := "/chatoff", "🔕 Auto-reply बंद कर दिया गया। सवाल पूछने के लिए /sol use करें।"
	if on {
		command, text = "/chaton", "🔔 Auto-reply चालू कर दिया गया! अब मैं group के सवालों का जवाब दूंगा।"
	}

	h.logUsage(ctx, msg, command, "")
	return h.reply(ctx, msg, text)
}

// canManageGroup reports whether the sender administers the group or the bot.
func (h *Handler) canManageGroup(ctx context.Context, msg *messaging.IncomingMessage) (bool, error) {
	status, err := h.platform.GetMembership(ctx, msg.ChatID, msg.From.ID)
	if err != nil {
		slog.Warn("Failed to check group admin status", "chat_id", msg.ChatID, "user_id", msg.From.ID, "error", err)
	} else if status.IsChatAdmin() {
		return true, nil
	}

	authorized, err := h.auth.IsAuthorized(ctx, msg.From.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check admin status: %w", err)
	}
	return authorized, nil
}

// handleGroupText answers plain group messages that look like questions when
// auto-reply is on for the group.
func (h *Handler) handleGroupText(ctx context.Context, msg *messaging.IncomingMessage) error {
	on, err := h.store.GetChatStatus(ctx, msg.ChatID)
	if err != nil {
		return fmt.Errorf("failed to get chat mode: %w", err)
	}
	if !on {
		return nil
	}

	question := strings.TrimSpace(msg.Text)
	if !h.questions.IsQuestion(question) || questionTooLong(question, h.opts.MaxQuestionLen) {
		return nil
	}

	lang := h.userLanguage(ctx, msg.From.ID)
	answered, err := h.answerQuestion(ctx, msg, msg, question, lang)
	if err != nil || !answered {
		return err
	}

	h.logUsage(ctx, msg, "group_question", question)
	return nil
}
