package gate

import (
	"strings"

	"github.com/rg/neetbot/internal/i18n"
	"github.com/rg/neetbot/internal/messaging"
	"github.com/rg/neetbot/internal/storage"
)

// PromptBuilder renders join prompts. The bot username is the fallback join
// target when a chat has no public link.
type PromptBuilder struct {
	botUsername string
}

func NewPromptBuilder(botUsername string) *PromptBuilder {
	return &PromptBuilder{botUsername: strings.TrimPrefix(botUsername, "@")}
}

func (b *PromptBuilder) Build(in Interaction, chat *storage.ForceJoinChat) *messaging.OutgoingMessage {
	title := chat.Title
	if title == "" {
		title = "Required Group"
	}
	return &messaging.OutgoingMessage{
		ChatID:           in.ChatID,
		Text:             i18n.ForceJoinPrompt(in.Language, in.User.FirstName, title),
		ReplyToMessageID: in.MessageID,
		Buttons: [][]messaging.Button{
			{{Text: "✅ " + title + " Join करें", URL: b.JoinURL(chat)}},
		},
	}
}

// JoinURL returns the link behind the join button.
func (b *PromptBuilder) JoinURL(chat *storage.ForceJoinChat) string {
	ref := strings.TrimSpace(chat.InviteRef)
	switch {
	case strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "http://"):
		return ref
	case ref != "":
		return "https://t.me/" + strings.TrimPrefix(ref, "@")
	default:
		return "https://t.me/" + b.botUsername
	}
}
