package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rg/neetbot/internal/messaging"
)

type Client struct {
	bot     *tgbotapi.BotAPI
	workers int
	wg      sync.WaitGroup
}

func NewClient(token string, workers int) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot.Debug = false
	slog.Info("Authorized on Telegram account", "username", bot.Self.UserName)

	if workers <= 0 {
		workers = 1
	}

	return &Client{
		bot:     bot,
		workers: workers,
	}, nil
}

// SetDebug toggles tgbotapi's logging of raw API requests.
func (c *Client) SetDebug(debug bool) {
	c.bot.Debug = debug
}

func (c *Client) Self() messaging.User {
	return convertUser(&c.bot.Self)
}

func (c *Client) SendMessage(ctx context.Context, msg *messaging.OutgoingMessage) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	chunks := SplitMessage(msg.Text, MaxMessageLength)
	var lastID int
	for i, chunk := range chunks {
		cfg := tgbotapi.NewMessage(msg.ChatID, chunk)
		cfg.ParseMode = tgbotapi.ModeMarkdown
		if i == 0 {
			cfg.ReplyToMessageID = msg.ReplyToMessageID
		}
		if i == len(chunks)-1 && len(msg.Buttons) > 0 {
			cfg.ReplyMarkup = buildKeyboard(msg.Buttons)
		}

		sent, err := c.bot.Send(cfg)
		if isParseError(err) {
			// user-supplied text often breaks the Markdown parser
			cfg.ParseMode = ""
			sent, err = c.bot.Send(cfg)
		}
		if err != nil {
			return 0, classifyError(fmt.Errorf("failed to send message: %w", err))
		}
		lastID = sent.MessageID
	}

	return lastID, nil
}

func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	cfg.ParseMode = tgbotapi.ModeMarkdown
	_, err := c.bot.Request(cfg)
	if isParseError(err) {
		cfg.ParseMode = ""
		_, err = c.bot.Request(cfg)
	}
	if err != nil && !isNotModified(err) {
		return classifyError(fmt.Errorf("failed to edit message: %w", err))
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return classifyError(fmt.Errorf("failed to delete message: %w", err))
	}
	return nil
}

func (c *Client) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.bot.CopyMessage(tgbotapi.NewCopyMessage(toChatID, fromChatID, messageID)); err != nil {
		return classifyError(fmt.Errorf("failed to copy message: %w", err))
	}
	return nil
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	if _, err := c.bot.Send(doc); err != nil {
		return classifyError(fmt.Errorf("failed to send document: %w", err))
	}
	return nil
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = alert
	if _, err := c.bot.Request(cfg); err != nil {
		return classifyError(fmt.Errorf("failed to answer callback: %w", err))
	}
	return nil
}

func (c *Client) GetMembership(ctx context.Context, chatID, userID int64) (messaging.MemberStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	member, err := c.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return "", classifyError(fmt.Errorf("failed to get chat member: %w", err))
	}

	return convertMemberStatus(member.Status, member.IsMember), nil
}

// GetChat resolves a chat by numeric ID or @username.
func (c *Client) GetChat(ctx context.Context, ref string) (*messaging.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chat, err := c.bot.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: chatConfigFor(ref)})
	if err != nil {
		return nil, classifyError(fmt.Errorf("failed to get chat %q: %w", ref, err))
	}

	return &messaging.Chat{
		ID:         chat.ID,
		Type:       convertChatType(chat.Type),
		Title:      chat.Title,
		Username:   chat.UserName,
		InviteLink: chat.InviteLink,
	}, nil
}

func (c *Client) InviteLink(ctx context.Context, chatID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	link, err := c.bot.GetInviteLink(tgbotapi.ChatInviteLinkConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return "", classifyError(fmt.Errorf("failed to export invite link: %w", err))
	}
	return link, nil
}

func (c *Client) FileURL(ctx context.Context, fileID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	url, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", classifyError(fmt.Errorf("failed to get file url: %w", err))
	}
	return url, nil
}

// Start polls for updates until ctx is cancelled. Each update runs on its own
// goroutine so a long broadcast does not stall other chats; at most c.workers
// updates are in flight.
func (c *Client) Start(ctx context.Context, onMessage messaging.MessageHandler, onCallback messaging.CallbackHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := c.bot.GetUpdatesChan(u)
	sem := make(chan struct{}, c.workers)

	slog.Info("Telegram bot started, listening for messages", "workers", c.workers)

	go func() {
		<-ctx.Done()
		c.bot.StopReceivingUpdates()
	}()

	for update := range updates {
		handle := c.routeUpdate(update, onMessage, onCallback)
		if handle == nil {
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			c.wg.Wait()
			return nil
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Panic while handling update", "update_id", update.UpdateID, "panic", r)
				}
			}()

			if err := handle(ctx); err != nil {
				slog.Error("Error handling update", "update_id", update.UpdateID, "error", err)
			}
		}()
	}

	c.wg.Wait()
	return nil
}

func (c *Client) routeUpdate(update tgbotapi.Update, onMessage messaging.MessageHandler, onCallback messaging.CallbackHandler) func(context.Context) error {
	switch {
	case update.Message != nil && update.Message.From != nil:
		msg := convertMessage(update.Message)
		return func(ctx context.Context) error { return onMessage(ctx, msg) }
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		cb := convertCallback(update.CallbackQuery)
		return func(ctx context.Context) error { return onCallback(ctx, cb) }
	default:
		return nil
	}
}

func convertMessage(tgMsg *tgbotapi.Message) *messaging.IncomingMessage {
	msg := &messaging.IncomingMessage{
		MessageID: tgMsg.MessageID,
		Text:      tgMsg.Text,
		Caption:   tgMsg.Caption,
		Timestamp: time.Unix(int64(tgMsg.Date), 0),
	}

	if tgMsg.From != nil {
		msg.From = convertUser(tgMsg.From)
	}
	if tgMsg.Chat != nil {
		msg.ChatID = tgMsg.Chat.ID
		msg.ChatType = convertChatType(tgMsg.Chat.Type)
		msg.ChatTitle = tgMsg.Chat.Title
		msg.ChatUsername = tgMsg.Chat.UserName
	}
	if tgMsg.IsCommand() {
		msg.Command = strings.ToLower(tgMsg.Command())
		if _, mention, ok := strings.Cut(tgMsg.CommandWithAt(), "@"); ok {
			msg.CommandMention = mention
		}
		msg.CommandArgs = strings.TrimSpace(tgMsg.CommandArguments())
	}
	if n := len(tgMsg.Photo); n > 0 {
		// Telegram lists sizes smallest first
		msg.PhotoFileID = tgMsg.Photo[n-1].FileID
	}
	for i := range tgMsg.NewChatMembers {
		msg.NewMembers = append(msg.NewMembers, convertUser(&tgMsg.NewChatMembers[i]))
	}
	if tgMsg.ReplyToMessage != nil {
		msg.ReplyTo = convertMessage(tgMsg.ReplyToMessage)
	}

	return msg
}

func convertCallback(q *tgbotapi.CallbackQuery) *messaging.Callback {
	cb := &messaging.Callback{
		ID:   q.ID,
		Data: q.Data,
	}
	if q.From != nil {
		cb.From = convertUser(q.From)
	}
	if q.Message != nil {
		cb.MessageID = q.Message.MessageID
		if q.Message.Chat != nil {
			cb.ChatID = q.Message.Chat.ID
		}
	}
	return cb
}

func convertUser(u *tgbotapi.User) messaging.User {
	return messaging.User{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsBot:     u.IsBot,
	}
}

func convertChatType(tgType string) messaging.ChatType {
	switch tgType {
	case "private":
		return messaging.ChatTypePrivate
	case "group":
		return messaging.ChatTypeGroup
	case "supergroup":
		return messaging.ChatTypeSupergroup
	case "channel":
		return messaging.ChatTypeChannel
	default:
		return messaging.ChatTypePrivate
	}
}

func convertMemberStatus(status string, isMember bool) messaging.MemberStatus {
	switch status {
	case "creator":
		return messaging.MemberStatusCreator
	case "administrator":
		return messaging.MemberStatusAdministrator
	case "member":
		return messaging.MemberStatusMember
	case "restricted":
		// A restricted user may have already left the chat.
		if !isMember {
			return messaging.MemberStatusLeft
		}
		return messaging.MemberStatusRestricted
	case "kicked":
		return messaging.MemberStatusKicked
	default:
		return messaging.MemberStatusLeft
	}
}

func chatConfigFor(ref string) tgbotapi.ChatConfig {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return tgbotapi.ChatConfig{ChatID: id}
	}
	ref = strings.TrimPrefix(ref, "https://t.me/")
	if !strings.HasPrefix(ref, "@") {
		ref = "@" + ref
	}
	return tgbotapi.ChatConfig{SuperGroupUsername: ref}
}

func buildKeyboard(rows [][]messaging.Button) tgbotapi.InlineKeyboardMarkup {
	var kbRows [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var kbRow []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			if b.URL != "" {
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		if len(kbRow) > 0 {
			kbRows = append(kbRows, tgbotapi.NewInlineKeyboardRow(kbRow...))
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}

var unreachableDescriptions = []string{
	"chat not found",
	"user not found",
	"peer_id_invalid",
	"user is deactivated",
	"group chat was deactivated",
	"have no rights to send a message",
}

// classifyError wraps err in a messaging.DeliveryError according to the
// Bot API error code and description.
func classifyError(err error) error {
	apiErr := asAPIError(err)
	if apiErr == nil {
		return &messaging.DeliveryError{Kind: messaging.KindOther, Err: err}
	}

	switch {
	case apiErr.Code == 429:
		return messaging.RateLimited(time.Duration(apiErr.RetryAfter)*time.Second, err)
	case apiErr.Code == 403:
		return messaging.PeerUnreachable(err)
	case apiErr.Code == 400:
		desc := strings.ToLower(apiErr.Message)
		for _, d := range unreachableDescriptions {
			if strings.Contains(desc, d) {
				return messaging.PeerUnreachable(err)
			}
		}
	}
	return &messaging.DeliveryError{Kind: messaging.KindOther, Err: err}
}

func asAPIError(err error) *tgbotapi.Error {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) {
		return ptr
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return &val
	}
	return nil
}

// isParseError reports whether Telegram rejected the message's Markdown.
func isParseError(err error) bool {
	apiErr := asAPIError(err)
	return apiErr != nil && apiErr.Code == 400 &&
		strings.Contains(strings.ToLower(apiErr.Message), "can't parse entities")
}

func isNotModified(err error) bool {
	apiErr := asAPIError(err)
	return apiErr != nil && strings.Contains(apiErr.Message, "message is not modified")
}
