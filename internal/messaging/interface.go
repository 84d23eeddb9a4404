package messaging

import (
	"context"
	"time"
)

type Platform interface {
	Self() User
	SendMessage(ctx context.Context, msg *OutgoingMessage) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error
	SendDocument(ctx context.Context, chatID int64, path, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	GetMembership(ctx context.Context, chatID, userID int64) (MemberStatus, error)
	GetChat(ctx context.Context, ref string) (*Chat, error)
	InviteLink(ctx context.Context, chatID int64) (string, error)
	FileURL(ctx context.Context, fileID string) (string, error)
	Start(ctx context.Context, onMessage MessageHandler, onCallback CallbackHandler) error
}

type MessageHandler func(ctx context.Context, msg *IncomingMessage) error

type CallbackHandler func(ctx context.Context, cb *Callback) error

type IncomingMessage struct {
	ChatID    int64
	MessageID int
	From      User
	Text      string
	Caption   string
	Timestamp time.Time

	ChatType     ChatType
	ChatTitle    string
	ChatUsername string

	// Command is the slash command without the leading "/" or bot suffix.
	Command     string
	CommandArgs string
	// CommandMention is the bot username a command was addressed to
	// ("/sol@neetbot"), empty for bare commands.
	CommandMention string

	PhotoFileID string
	NewMembers  []User
	ReplyTo     *IncomingMessage
}

// Content returns the text of the message, falling back to a media caption.
func (m *IncomingMessage) Content() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

func (m *IncomingMessage) IsCommand() bool {
	return m.Command != ""
}

type Callback struct {
	ID        string
	From      User
	Data      string
	ChatID    int64
	MessageID int
}

// OutgoingMessage represents a message to be sent by the bot
type OutgoingMessage struct {
	ChatID           int64
	Text             string
	ReplyToMessageID int // Optional: 0 = no reply
	Buttons          [][]Button
}

// Button is an inline keyboard button. Exactly one of URL or Data is set.
type Button struct {
	Text string
	URL  string
	Data string
}

type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	IsBot     bool
}

func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return ""
}

type Chat struct {
	ID         int64
	Type       ChatType
	Title      string
	Username   string
	InviteLink string
}

type ChatType string

const (
	ChatTypePrivate    ChatType = "private"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
)

func (ct ChatType) String() string {
	return string(ct)
}

func (ct ChatType) IsGroup() bool {
	return ct == ChatTypeGroup || ct == ChatTypeSupergroup
}

type MemberStatus string

const (
	MemberStatusCreator       MemberStatus = "creator"
	MemberStatusAdministrator MemberStatus = "administrator"
	MemberStatusMember        MemberStatus = "member"
	MemberStatusRestricted    MemberStatus = "restricted"
	MemberStatusLeft          MemberStatus = "left"
	MemberStatusKicked        MemberStatus = "kicked"
)

// IsMember reports whether the status counts as current membership.
func (s MemberStatus) IsMember() bool {
	return s != MemberStatusLeft && s != MemberStatusKicked
}

func (s MemberStatus) IsChatAdmin() bool {
	return s == MemberStatusCreator || s == MemberStatusAdministrator
}
