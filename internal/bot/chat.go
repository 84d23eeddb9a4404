package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rg/neetbot/internal/i18n"
	"github.com/rg/neetbot/internal/messaging"
)

func (h *Handler) handleStart(ctx context.Context, msg *messaging.IncomingMessage) error {
	lang, ok, err := h.admitPrivate(ctx, msg)
	if err != nil || !ok {
		return err
	}

	_, err = h.platform.SendMessage(ctx, &messaging.OutgoingMessage{
		ChatID:  msg.ChatID,
		Text:    i18n.Get(lang, i18n.Start),
		Buttons: h.startButtons(),
	})
	if err != nil {
		return fmt.Errorf("failed to send welcome: %w", err)
	}

	h.logUsage(ctx, msg, "/start", "")
	return nil
}

func (h *Handler) handleHelp(ctx context.Context, msg *messaging.IncomingMessage) error {
	authorized, err := h.auth.IsAuthorized(ctx, msg.From.ID)
	if err != nil {
		slog.Warn("Failed to check admin status", "user_id", msg.From.ID, "error", err)
	}
	h.logUsage(ctx, msg, "/help", "")
	return h.reply(ctx, msg, helpText(authorized, h.auth.IsOwner(msg.From.ID)))
}

func (h *Handler) handleLang(ctx context.Context, msg *messaging.IncomingMessage) error {
	if err := h.touchUser(ctx, msg.From); err != nil {
		return err
	}
	current := h.userLanguage(ctx, msg.From.ID)

	_, err := h.platform.SendMessage(ctx, &messaging.OutgoingMessage{
		ChatID:  msg.ChatID,
		Text:    fmt.Sprintf("🌐 **Select Language / भाषा चुनें:**\n\nCurrent: %s", i18n.Title(current)),
		Buttons: languageButtons(),
	})
	if err != nil {
		return fmt.Errorf("failed to send language menu: %w", err)
	}

	h.logUsage(ctx, msg, "/lang", "")
	return nil
}

func (h *Handler) handleLangCallback(ctx context.Context, cb *messaging.Callback, lang string) error {
	if !i18n.Supported(lang) {
		return h.platform.AnswerCallback(ctx, cb.ID, "❌ Unknown language", true)
	}

	u := cb.From
	if err := h.store.UpsertUser(ctx, u.ID, u.Username, u.FirstName, u.LastName); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	if err := h.store.SetUserLanguage(ctx, u.ID, lang); err != nil {
		return fmt.Errorf("failed to set language: %w", err)
	}

	if err := h.platform.AnswerCallback(ctx, cb.ID, i18n.Get(lang, i18n.LanguageChanged), true); err != nil {
		slog.Warn("Failed to answer callback", "callback_id", cb.ID, "error", err)
	}

	text := i18n.Get(lang, i18n.LanguageChanged) + "\n\nType /start to see changes."
	if err := h.platform.EditMessage(ctx, cb.ChatID, cb.MessageID, text); err != nil {
		return fmt.Errorf("failed to edit language menu: %w", err)
	}
	return nil
}

func (h *Handler) handleQuestion(ctx context.Context, msg *messaging.IncomingMessage) error {
	lang, ok, err := h.admitPrivate(ctx, msg)
	if err != nil || !ok {
		return err
	}

	question := strings.TrimSpace(msg.Text)
	if question == "" {
		return nil
	}
	if questionTooLong(question, h.opts.MaxQuestionLen) {
		return h.reply(ctx, msg, i18n.Get(lang, i18n.QuestionTooLong, h.opts.MaxQuestionLen))
	}

	answered, err := h.answerQuestion(ctx, msg, msg, question, lang)
	if err != nil || !answered {
		return err
	}

	h.logUsage(ctx, msg, "question", question)
	if err := h.store.IncrementUserQuestions(ctx, msg.From.ID); err != nil {
		slog.Warn("Failed to count question", "user_id", msg.From.ID, "error", err)
	}
	return nil
}

func (h *Handler) handlePhoto(ctx context.Context, msg *messaging.IncomingMessage) error {
	lang, ok, err := h.admitPrivate(ctx, msg)
	if err != nil || !ok {
		return err
	}

	progressID, err := h.platform.SendMessage(ctx, &messaging.OutgoingMessage{
		ChatID:           msg.ChatID,
		Text:             i18n.Get(lang, i18n.ProcessingImage),
		ReplyToMessageID: msg.MessageID,
	})
	if err != nil {
		return fmt.Errorf("failed to send progress message: %w", err)
	}

	fileURL, err := h.platform.FileURL(ctx, msg.PhotoFileID)
	if err != nil {
		h.deleteQuietly(ctx, msg.ChatID, progressID)
		slog.Error("Failed to resolve photo", "user_id", msg.From.ID, "error", err)
		return h.reply(ctx, msg, i18n.Get(lang, i18n.ImageError))
	}

	result, err := h.answers.ImageAnswer(ctx, fileURL, msg.From.ID)
	h.deleteQuietly(ctx, msg.ChatID, progressID)
	if err != nil || result == nil || !result.Success {
		if err != nil {
			slog.Error("Image answer failed", "user_id", msg.From.ID, "error", err)
		}
		return h.reply(ctx, msg, i18n.Get(lang, i18n.ImageError))
	}

	question := "Image Question"
	if caption := strings.TrimSpace(msg.Caption); caption != "" {
		question = caption
	}
	if err := h.sendAnswer(ctx, msg, question, result, lang); err != nil {
		return err
	}

	h.logUsage(ctx, msg, "image_question", "Image uploaded")
	if err := h.store.IncrementUserQuestions(ctx, msg.From.ID); err != nil {
		slog.Warn("Failed to count question", "user_id", msg.From.ID, "error", err)
	}
	return nil
}

func (h *Handler) startButtons() [][]messaging.Button {
	var rows [][]messaging.Button
	if h.opts.BotUsername != "" {
		rows = append(rows, []messaging.Button{{
			Text: "➕ Add me to your Group",
			URL:  fmt.Sprintf("https://t.me/%s?startgroup=true", h.opts.BotUsername),
		}})
	}

	var contact []messaging.Button
	if owner := strings.TrimPrefix(h.opts.OwnerUsername, "@"); owner != "" {
		contact = append(contact, messaging.Button{Text: "👨‍💻 Owner", URL: "https://t.me/" + owner})
	}
	if channel := strings.TrimPrefix(h.opts.UpdatesChannel, "@"); channel != "" {
		contact = append(contact, messaging.Button{Text: "📢 Updates", URL: "https://t.me/" + channel})
	}
	if len(contact) > 0 {
		rows = append(rows, contact)
	}
	return rows
}

func languageButtons() [][]messaging.Button {
	row := make([]messaging.Button, 0, len(i18n.Languages))
	for _, lang := range i18n.Languages {
		row = append(row, messaging.Button{Text: i18n.Title(lang), Data: "lang_" + lang})
	}
	return [][]messaging.Button{row}
}

func solutionButtons(url string) [][]messaging.Button {
	return [][]messaging.Button{{
		{Text: "📖 विस्तृत समाधान देखें | See Detailed Solution", URL: url},
	}}
}

// NotifyRateLimited tells a private chat user to slow down. Group messages
// over the limit are dropped without a reply.
func (h *Handler) NotifyRateLimited(ctx context.Context, msg *messaging.IncomingMessage) error {
	if msg.ChatType != messaging.ChatTypePrivate {
		return nil
	}
	return h.reply(ctx, msg, i18n.Get(h.userLanguage(ctx, msg.From.ID), i18n.RateLimited))
}
