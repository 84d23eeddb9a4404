package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rg/neetbot/internal/admin"
	"github.com/rg/neetbot/internal/answer"
	"github.com/rg/neetbot/internal/broadcast"
	"github.com/rg/neetbot/internal/gate"
	"github.com/rg/neetbot/internal/i18n"
	"github.com/rg/neetbot/internal/messaging"
	"github.com/rg/neetbot/internal/security"
	"github.com/rg/neetbot/internal/storage"
)

const (
	// maxLoggedQuestionLen bounds question text stored in usage logs
	maxLoggedQuestionLen = 200
	// maxDisplayedQuestionLen bounds the question echoed above an answer
	maxDisplayedQuestionLen = 100
)

type Answerer interface {
	Answer(ctx context.Context, question string, uid int64, mode string) (*answer.Result, error)
	ImageAnswer(ctx context.Context, fileURL string, uid int64) (*answer.Result, error)
	Reset()
}

type Options struct {
	BotUsername    string
	OwnerUsername  string
	UpdatesChannel string
	MaxQuestionLen int
}

type Handler struct {
	platform   messaging.Platform
	store      *storage.Storage
	gate       *gate.Evaluator
	auth       *admin.Authorizer
	dispatcher *broadcast.Dispatcher
	answers    Answerer
	sanitizer  *security.Sanitizer
	questions  *QuestionDetector
	formatter  *ResponseFormatter
	opts       Options
	startedAt  time.Time
}

func NewHandler(
	platform messaging.Platform,
	store *storage.Storage,
	evaluator *gate.Evaluator,
	auth *admin.Authorizer,
	dispatcher *broadcast.Dispatcher,
	answers Answerer,
	sanitizer *security.Sanitizer,
	opts Options,
) *Handler {
	if opts.MaxQuestionLen <= 0 {
		opts.MaxQuestionLen = 2000
	}
	opts.BotUsername = strings.TrimPrefix(opts.BotUsername, "@")

	return &Handler{
		platform:   platform,
		store:      store,
		gate:       evaluator,
		auth:       auth,
		dispatcher: dispatcher,
		answers:    answers,
		sanitizer:  sanitizer,
		questions:  NewQuestionDetector(),
		formatter:  NewResponseFormatter(maxDisplayedQuestionLen),
		opts:       opts,
		startedAt:  time.Now(),
	}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *messaging.IncomingMessage) error {
	slog.Info("Received message",
		"chat_id", msg.ChatID,
		"user_id", msg.From.ID,
		"command", msg.Command,
		"text", truncateText(msg.Content(), 100))

	if msg.From.IsBot {
		return nil
	}

	if len(msg.NewMembers) > 0 {
		return h.handleNewMembers(ctx, msg)
	}

	if msg.IsCommand() {
		if msg.CommandMention != "" && !strings.EqualFold(msg.CommandMention, h.opts.BotUsername) {
			return nil
		}
		return h.handleCommand(ctx, msg)
	}

	switch {
	case msg.ChatType == messaging.ChatTypePrivate && msg.PhotoFileID != "":
		return h.handlePhoto(ctx, msg)
	case msg.ChatType == messaging.ChatTypePrivate && msg.Text != "":
		return h.handleQuestion(ctx, msg)
	case msg.ChatType.IsGroup() && msg.Text != "":
		return h.handleGroupText(ctx, msg)
	}
	return nil
}

func (h *Handler) handleCommand(ctx context.Context, msg *messaging.IncomingMessage) error {
	private := msg.ChatType == messaging.ChatTypePrivate
	group := msg.ChatType.IsGroup()

	switch msg.Command {
	case "start":
		if private {
			return h.handleStart(ctx, msg)
		}
	case "help":
		return h.handleHelp(ctx, msg)
	case "lang":
		if private {
			return h.handleLang(ctx, msg)
		}
	case "sol":
		if group {
			return h.handleSol(ctx, msg)
		}
	case "chaton":
		if group {
			return h.handleChatMode(ctx, msg, true)
		}
	case "chatoff":
		if group {
			return h.handleChatMode(ctx, msg, false)
		}
	case "broadcast":
		return h.handleBroadcast(ctx, msg)
	case "promote":
		return h.handlePromote(ctx, msg)
	case "remove":
		return h.handleRemove(ctx, msg)
	case "adminlist":
		return h.handleAdminList(ctx, msg)
	case "grouplist":
		return h.handleGroupList(ctx, msg)
	case "stats":
		return h.handleStats(ctx, msg)
	case "refresh":
		return h.handleRefresh(ctx, msg)
	case "fjoin":
		return h.handleForceJoinAdd(ctx, msg)
	case "removefjoin":
		return h.handleForceJoinRemove(ctx, msg)
	case "dumpdb":
		return h.handleDumpDB(ctx, msg)
	default:
		if private {
			return h.reply(ctx, msg, fmt.Sprintf("❓ Unknown command: /%s\n\n/help से सभी commands देखें।", msg.Command))
		}
	}
	return nil
}

func (h *Handler) HandleCallback(ctx context.Context, cb *messaging.Callback) error {
	slog.Info("Received callback", "user_id", cb.From.ID, "data", cb.Data)

	if lang, ok := strings.CutPrefix(cb.Data, "lang_"); ok {
		return h.handleLangCallback(ctx, cb, lang)
	}
	return h.platform.AnswerCallback(ctx, cb.ID, "", false)
}

// admitPrivate registers the user and runs the force-join gate. It returns
// the user's language and whether the interaction may proceed.
func (h *Handler) admitPrivate(ctx context.Context, msg *messaging.IncomingMessage) (string, bool, error) {
	if err := h.touchUser(ctx, msg.From); err != nil {
		return i18n.DefaultLanguage, false, err
	}

	lang := h.userLanguage(ctx, msg.From.ID)

	decision, err := h.gate.Evaluate(ctx, gate.Interaction{
		User:      msg.From,
		ChatID:    msg.ChatID,
		MessageID: msg.MessageID,
		Language:  lang,
	})
	if err != nil {
		return lang, false, h.fail(ctx, msg, fmt.Errorf("force-join gate failed: %w", err))
	}
	return lang, decision == gate.Admit, nil
}

// fail tells the sender that their request could not be completed and
// returns err unchanged.
func (h *Handler) fail(ctx context.Context, msg *messaging.IncomingMessage, err error) error {
	lang := h.userLanguage(ctx, msg.From.ID)
	if sendErr := h.reply(ctx, msg, i18n.Get(lang, i18n.ErrorOccurred)); sendErr != nil {
		slog.Warn("Failed to send error reply", "chat_id", msg.ChatID, "error", sendErr)
	}
	return err
}

func (h *Handler) touchUser(ctx context.Context, u messaging.User) error {
	if err := h.store.UpsertUser(ctx, u.ID, u.Username, u.FirstName, u.LastName); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

func (h *Handler) userLanguage(ctx context.Context, uid int64) string {
	lang, err := h.store.GetUserLanguage(ctx, uid)
	if err != nil {
		slog.Warn("Failed to get user language", "user_id", uid, "error", err)
		return i18n.DefaultLanguage
	}
	return i18n.Normalize(lang)
}

func (h *Handler) logUsage(ctx context.Context, msg *messaging.IncomingMessage, command, query string) {
	entry := storage.UsageLog{UserID: msg.From.ID, Command: command}
	if msg.ChatType.IsGroup() {
		gid := msg.ChatID
		entry.GroupID = &gid
	}
	if query != "" {
		entry.Query = h.sanitizer.ForLog(query, maxLoggedQuestionLen)
	}
	if err := h.store.LogUsage(ctx, entry); err != nil {
		slog.Warn("Failed to log usage", "user_id", msg.From.ID, "command", command, "error", err)
	}
}

func (h *Handler) reply(ctx context.Context, msg *messaging.IncomingMessage, text string) error {
	_, err := h.platform.SendMessage(ctx, &messaging.OutgoingMessage{
		ChatID:           msg.ChatID,
		Text:             text,
		ReplyToMessageID: msg.MessageID,
	})
	return err
}

// answerQuestion runs one answer lookup and replies to target with the
// answer. It reports whether an answer was delivered.
func (h *Handler) answerQuestion(ctx context.Context, origin, target *messaging.IncomingMessage, question, lang string) (bool, error) {
	progressID, err := h.platform.SendMessage(ctx, &messaging.OutgoingMessage{
		ChatID:           origin.ChatID,
		Text:             i18n.Get(lang, i18n.FindingAnswer),
		ReplyToMessageID: origin.MessageID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to send progress message: %w", err)
	}

	result, err := h.answers.Answer(ctx, question, origin.From.ID, answer.ModeShort)
	h.deleteQuietly(ctx, origin.ChatID, progressID)

	if err != nil || result == nil || !result.Success {
		if err != nil {
			slog.Error("Answer lookup failed", "user_id", origin.From.ID, "error", err)
		}
		return false, h.reply(ctx, origin, i18n.Get(lang, i18n.ErrorOccurred))
	}

	return true, h.sendAnswer(ctx, target, question, result, lang)
}

func (h *Handler) sendAnswer(ctx context.Context, target *messaging.IncomingMessage, question string, result *answer.Result, lang string) error {
	out := &messaging.OutgoingMessage{
		ChatID:           target.ChatID,
		Text:             h.formatter.FormatAnswer(question, result.ShortAnswer, lang),
		ReplyToMessageID: target.MessageID,
	}
	if result.DetailedURL != "" {
		out.Buttons = solutionButtons(result.DetailedURL)
	}
	if _, err := h.platform.SendMessage(ctx, out); err != nil {
		return fmt.Errorf("failed to send answer: %w", err)
	}
	return nil
}

func (h *Handler) deleteQuietly(ctx context.Context, chatID int64, messageID int) {
	if err := h.platform.DeleteMessage(ctx, chatID, messageID); err != nil {
		slog.Debug("Failed to delete message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func questionTooLong(text string, limit int) bool {
	return utf8.RuneCountInString(text) > limit
}

func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	for maxLen > 0 && !utf8.RuneStart(text[maxLen]) {
		maxLen--
	}
	return text[:maxLen] + "..."
}
