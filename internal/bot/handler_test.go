package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	testOwnerID = int64(1)
	testBotID   = int64(1000)
	testUserID  = int64(5)
	testGroupID = int64(-100)
)

type edit struct {
	chatID    int64
	messageID int
	text      string
}

type copied struct {
	toChatID   int64
	fromChatID int64
	messageID  int
}

type document struct {
	chatID  int64
	path    string
	caption string
}

var _ messaging.Platform = (*fakePlatform)(nil)

type fakePlatform struct {
	mu         sync.Mutex
	nextID     int
	sent       []*messaging.OutgoingMessage
	edits      []edit
	deleted    []int
	copies     []copied
	documents  []document
	callbacks  []string
	membership map[int64]messaging.MemberStatus
	chats      map[string]*messaging.Chat
	inviteLink string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID:     100,
		membership: map[int64]messaging.MemberStatus{},
		chats:      map[string]*messaging.Chat{},
	}
}

func (p *fakePlatform) Self() messaging.User {
	return messaging.User{ID: testBotID, Username: "neetbot", IsBot: true}
}

func (p *fakePlatform) SendMessage(_ context.Context, msg *messaging.OutgoingMessage) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.sent = append(p.sent, msg)
	return p.nextID, nil
}

func (p *fakePlatform) EditMessage(_ context.Context, chatID int64, messageID int, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edits = append(p.edits, edit{chatID, messageID, text})
	return nil
}

func (p *fakePlatform) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, messageID)
	return nil
}

func (p *fakePlatform) CopyMessage(_ context.Context, toChatID, fromChatID int64, messageID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.copies = append(p.copies, copied{toChatID, fromChatID, messageID})
	if toChatID == 13 {
		return messaging.PeerUnreachable(errors.New("bot was blocked by the user"))
	}
	return nil
}

func (p *fakePlatform) SendDocument(_ context.Context, chatID int64, path, caption string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.documents = append(p.documents, document{chatID, path, caption})
	return nil
}

func (p *fakePlatform) AnswerCallback(_ context.Context, _ string, text string, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, text)
	return nil
}

func (p *fakePlatform) GetMembership(_ context.Context, chatID, userID int64) (messaging.MemberStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status, ok := p.membership[chatID*10000+userID]; ok {
		return status, nil
	}
	return messaging.MemberStatusMember, nil
}

func (p *fakePlatform) GetChat(_ context.Context, ref string) (*messaging.Chat, error) {
	if chat, ok := p.chats[ref]; ok {
		return chat, nil
	}
	return nil, errors.New("chat not found")
}

func (p *fakePlatform) InviteLink(context.Context, int64) (string, error) {
	return p.inviteLink, nil
}

func (p *fakePlatform) FileURL(_ context.Context, fileID string) (string, error) {
	return "https://files.example/" + fileID, nil
}

func (p *fakePlatform) Start(context.Context, messaging.MessageHandler, messaging.CallbackHandler) error {
	return nil
}

func (p *fakePlatform) setMembership(chatID, userID int64, status messaging.MemberStatus) {
	p.membership[chatID*10000+userID] = status
}

func (p *fakePlatform) lastSent(t *testing.T) *messaging.OutgoingMessage {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.sent, "nothing was sent")
	return p.sent[len(p.sent)-1]
}

type fakeAnswerer struct {
	questions []string
	images    []string
	resets    int
	err       error
}

func (a *fakeAnswerer) Answer(_ context.Context, question string, _ int64, _ string) (*answer.Result, error) {
	a.questions = append(a.questions, question)
	if a.err != nil {
		return nil, a.err
	}
	return &answer.Result{Success: true, ShortAnswer: "Mitochondria", DetailedURL: "https://neet.example/s/1"}, nil
}

func (a *fakeAnswerer) ImageAnswer(_ context.Context, fileURL string, _ int64) (*answer.Result, error) {
	a.images = append(a.images, fileURL)
	return &answer.Result{Success: true, ShortAnswer: "Newton's third law", DetailedURL: "https://neet.example/s/2"}, nil
}

func (a *fakeAnswerer) Reset() {
	a.resets++
}

type testEnv struct {
	handler  *Handler
	platform *fakePlatform
	store    *storage.Storage
	answers  *fakeAnswerer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sanitizer, err := security.NewSanitizer(nil)
	require.NoError(t, err)

	platform := newFakePlatform()
	answers := &fakeAnswerer{}

	h := NewHandler(
		platform,
		store,
		gate.NewEvaluator(store, platform, gate.NewPromptBuilder("neetbot"), testOwnerID),
		admin.NewAuthorizer(store, testOwnerID),
		broadcast.NewDispatcher(platform, store, broadcast.Options{}),
		answers,
		sanitizer,
		Options{BotUsername: "neetbot", OwnerUsername: "@owner", UpdatesChannel: "neetupdates", MaxQuestionLen: 50},
	)

	return &testEnv{handler: h, platform: platform, store: store, answers: answers}
}

func privateMsg(uid int64, text string) *messaging.IncomingMessage {
	return &messaging.IncomingMessage{
		ChatID:    uid,
		MessageID: 7,
		From:      messaging.User{ID: uid, Username: "student", FirstName: "Asha"},
		Text:      text,
		ChatType:  messaging.ChatTypePrivate,
	}
}

func command(msg *messaging.IncomingMessage, name, args string) *messaging.IncomingMessage {
	msg.Command = name
	msg.CommandArgs = args
	msg.Text = "/" + name
	if args != "" {
		msg.Text += " " + args
	}
	return msg
}

func groupMsg(uid int64, text string) *messaging.IncomingMessage {
	return &messaging.IncomingMessage{
		ChatID:    testGroupID,
		MessageID: 20,
		From:      messaging.User{ID: uid, FirstName: "Ravi"},
		Text:      text,
		ChatType:  messaging.ChatTypeSupergroup,
		ChatTitle: "NEET 2025",
	}
}

func TestHandleQuestion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.handler.HandleMessage(ctx, privateMsg(testUserID, "What is the powerhouse of the cell?")))

	assert.Equal(t, []string{"What is the powerhouse of the cell?"}, env.answers.questions)

	reply := env.platform.lastSent(t)
	assert.Equal(t, 7, reply.ReplyToMessageID)
	assert.Contains(t, reply.Text, "Mitochondria")
	require.Len(t, reply.Buttons, 1)
	assert.Equal(t, "https://neet.example/s/1", reply.Buttons[0][0].URL)
	assert.Len(t, env.platform.deleted, 1, "progress message should be removed")

	user, err := env.store.GetUser(ctx, testUserID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, 1, user.TotalQuestions)

	stats, err := env.store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalQueries)
}

func TestHandleQuestion_TooLong(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.handler.HandleMessage(context.Background(), privateMsg(testUserID, strings.Repeat("क", 51))))

	assert.Empty(t, env.answers.questions)
	assert.Contains(t, env.platform.lastSent(t).Text, "50")
}

func TestHandleQuestion_AnswerFailure(t *testing.T) {
	env := newTestEnv(t)
	env.answers.err = errors.New("upstream down")

	require.NoError(t, env.handler.HandleMessage(context.Background(), privateMsg(testUserID, "Define osmosis")))

	assert.Equal(t, i18n.Get(i18n.Hindi, i18n.ErrorOccurred), env.platform.lastSent(t).Text)
	user, err := env.store.GetUser(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Zero(t, user.TotalQuestions)
}

func TestHandleQuestion_BlockedByGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.AddForceJoinChat(ctx, &storage.ForceJoinChat{
		ChatID: -200, ChatType: "channel", Title: "NEET Prep", InviteRef: "@neetprep", AddedBy: testOwnerID,
	}))
	env.platform.setMembership(-200, testUserID, messaging.MemberStatusLeft)

	require.NoError(t, env.handler.HandleMessage(ctx, privateMsg(testUserID, "What is osmosis?")))

	assert.Empty(t, env.answers.questions, "blocked users must not reach the answer service")

	prompt := env.platform.lastSent(t)
	require.Len(t, prompt.Buttons, 1)
	assert.Equal(t, "https://t.me/neetprep", prompt.Buttons[0][0].URL)

	pending, err := env.store.GetPendingPrompt(ctx, testUserID)
	require.NoError(t, err)
	require.NotNil(t, pending)

	// joining admits the next message and clears the prompt
	env.platform.setMembership(-200, testUserID, messaging.MemberStatusMember)
	require.NoError(t, env.handler.HandleMessage(ctx, privateMsg(testUserID, "What is osmosis?")))

	assert.Len(t, env.answers.questions, 1)
	pending, err = env.store.GetPendingPrompt(ctx, testUserID)
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestHandlePhoto(t *testing.T) {
	env := newTestEnv(t)
	msg := privateMsg(testUserID, "")
	msg.PhotoFileID = "photo-1"

	require.NoError(t, env.handler.HandleMessage(context.Background(), msg))

	assert.Equal(t, []string{"https://files.example/photo-1"}, env.answers.images)
	reply := env.platform.lastSent(t)
	assert.Contains(t, reply.Text, "Image Question")
	assert.Contains(t, reply.Text, "Newton's third law")
}

func TestHandleCommand_MentionOfOtherBot(t *testing.T) {
	env := newTestEnv(t)
	msg := command(privateMsg(testUserID, ""), "start", "")
	msg.CommandMention = "otherbot"

	require.NoError(t, env.handler.HandleMessage(context.Background(), msg))
	assert.Empty(t, env.platform.sent)

	msg.CommandMention = "NeetBot"
	require.NoError(t, env.handler.HandleMessage(context.Background(), msg))
	assert.Len(t, env.platform.sent, 1)
}

func TestHandleStart(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.handler.HandleMessage(context.Background(), command(privateMsg(testUserID, ""), "start", "")))

	welcome := env.platform.lastSent(t)
	assert.Contains(t, welcome.Text, "NEET AI Bot")
	require.Len(t, welcome.Buttons, 2)
	assert.Equal(t, "https://t.me/neetbot?startgroup=true", welcome.Buttons[0][0].URL)
	assert.Equal(t, "https://t.me/owner", welcome.Buttons[1][0].URL)
	assert.Equal(t, "https://t.me/neetupdates", welcome.Buttons[1][1].URL)
}

func TestHandleUnknownCommand(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.handler.HandleMessage(context.Background(), command(privateMsg(testUserID, ""), "nope", "")))
	assert.Contains(t, env.platform.lastSent(t).Text, "Unknown command")

	require.NoError(t, env.handler.HandleMessage(context.Background(), command(groupMsg(testUserID, ""), "nope", "")))
	assert.Len(t, env.platform.sent, 1, "unknown group commands are ignored")
}

func TestLanguageSelection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testUserID, ""), "lang", "")))
	menu := env.platform.lastSent(t)
	require.Len(t, menu.Buttons, 1)
	assert.Len(t, menu.Buttons[0], 3)
	assert.Equal(t, "lang_english", menu.Buttons[0][1].Data)

	err := env.handler.HandleCallback(ctx, &messaging.Callback{
		ID: "cb1", From: messaging.User{ID: testUserID}, Data: "lang_english", ChatID: testUserID, MessageID: 101,
	})
	require.NoError(t, err)

	lang, err := env.store.GetUserLanguage(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, "english", lang)
	require.Len(t, env.platform.edits, 1)
	assert.Contains(t, env.platform.edits[0].text, "/start")

	err = env.handler.HandleCallback(ctx, &messaging.Callback{ID: "cb2", From: messaging.User{ID: testUserID}, Data: "lang_klingon"})
	require.NoError(t, err)
	lang, err = env.store.GetUserLanguage(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, "english", lang, "unknown languages are rejected")
}

func TestHandleNewMembers_RegistersGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg := groupMsg(testUserID, "")
	msg.NewMembers = []messaging.User{{ID: 77}, {ID: testBotID, IsBot: true}}
	require.NoError(t, env.handler.HandleMessage(ctx, msg))

	groups, err := env.store.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "NEET 2025", groups[0].Title)
	assert.True(t, groups[0].ChatOn)
}

func TestHandleSol(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.handler.HandleMessage(ctx, command(groupMsg(testUserID, ""), "sol", "")))
	assert.Contains(t, env.platform.lastSent(t).Text, "reply")
	assert.Empty(t, env.answers.questions)

	msg := command(groupMsg(testUserID, ""), "sol", "")
	msg.ReplyTo = &messaging.IncomingMessage{ChatID: testGroupID, MessageID: 15, Caption: "Why is the sky blue?"}
	require.NoError(t, env.handler.HandleMessage(ctx, msg))

	assert.Equal(t, []string{"Why is the sky blue?"}, env.answers.questions)
	assert.Equal(t, 15, env.platform.lastSent(t).ReplyToMessageID, "answer goes under the original question")
}

func TestHandleChatMode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.AddGroup(ctx, testGroupID, "NEET 2025", ""))

	require.NoError(t, env.handler.HandleMessage(ctx, command(groupMsg(testUserID, ""), "chatoff", "")))
	on, err := env.store.GetChatStatus(ctx, testGroupID)
	require.NoError(t, err)
	assert.True(t, on, "plain members cannot change the mode")

	env.platform.setMembership(testGroupID, testUserID, messaging.MemberStatusAdministrator)
	require.NoError(t, env.handler.HandleMessage(ctx, command(groupMsg(testUserID, ""), "chatoff", "")))
	on, err = env.store.GetChatStatus(ctx, testGroupID)
	require.NoError(t, err)
	assert.False(t, on)

	// the bot owner may switch it back without being a group admin
	require.NoError(t, env.handler.HandleMessage(ctx, command(groupMsg(testOwnerID, ""), "chaton", "")))
	on, err = env.store.GetChatStatus(ctx, testGroupID)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestHandleGroupText(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.AddGroup(ctx, testGroupID, "NEET 2025", ""))

	require.NoError(t, env.handler.HandleMessage(ctx, groupMsg(testUserID, "good morning everyone")))
	assert.Empty(t, env.answers.questions, "chatter is not answered")

	require.NoError(t, env.handler.HandleMessage(ctx, groupMsg(testUserID, "What is Avogadro's number?")))
	assert.Len(t, env.answers.questions, 1)

	require.NoError(t, env.store.SetChatStatus(ctx, testGroupID, false))
	require.NoError(t, env.handler.HandleMessage(ctx, groupMsg(testUserID, "How does osmosis work?")))
	assert.Len(t, env.answers.questions, 1, "auto-reply is off")
}

func TestHandleBroadcast(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, uid := range []int64{10, 11, 13} {
		require.NoError(t, env.store.UpsertUser(ctx, uid, "", "", ""))
	}
	require.NoError(t, env.store.AddGroup(ctx, testGroupID, "NEET 2025", ""))

	msg := command(privateMsg(testOwnerID, ""), "broadcast", "")
	msg.ReplyTo = &messaging.IncomingMessage{ChatID: testOwnerID, MessageID: 3}
	require.NoError(t, env.handler.HandleMessage(ctx, msg))

	require.Len(t, env.platform.copies, 4)
	assert.Equal(t, copied{10, testOwnerID, 3}, env.platform.copies[0])
	assert.Equal(t, int64(testGroupID), env.platform.copies[3].toChatID, "groups come after users")

	require.NotEmpty(t, env.platform.edits)
	final := env.platform.edits[len(env.platform.edits)-1]
	assert.Contains(t, final.text, "Broadcast Complete")
	assert.Contains(t, final.text, "Success: 3")
	assert.Contains(t, final.text, "Failed: 1")
}

func TestHandleBroadcast_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	msg := command(privateMsg(testUserID, ""), "broadcast", "")
	msg.ReplyTo = &messaging.IncomingMessage{ChatID: testUserID, MessageID: 3}
	require.NoError(t, env.handler.HandleMessage(context.Background(), msg))

	assert.Empty(t, env.platform.copies)
	assert.Equal(t, unauthorizedText, env.platform.lastSent(t).Text)
}

func TestAdminCommands_StorageFailureRepliesWithError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.store.DB().ExecContext(ctx, `DROP TABLE chat_groups`)
	require.NoError(t, err)

	failure := i18n.Get(i18n.Hindi, i18n.ErrorOccurred)

	msg := command(privateMsg(testOwnerID, ""), "broadcast", "")
	msg.ReplyTo = &messaging.IncomingMessage{ChatID: testOwnerID, MessageID: 3}
	require.Error(t, env.handler.HandleMessage(ctx, msg))
	assert.Empty(t, env.platform.copies)
	assert.Equal(t, failure, env.platform.lastSent(t).Text)

	sent := len(env.platform.sent)
	require.Error(t, env.handler.HandleMessage(ctx, command(privateMsg(testOwnerID, ""), "grouplist", "")))
	require.Len(t, env.platform.sent, sent+1)
	assert.Equal(t, failure, env.platform.lastSent(t).Text)

	require.Error(t, env.handler.HandleMessage(ctx, command(privateMsg(testOwnerID, ""), "stats", "")))
	require.Len(t, env.platform.sent, sent+2)
	assert.Equal(t, failure, env.platform.lastSent(t).Text)
}

func TestPromoteAndRemove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testUserID, ""), "promote", "42")))
	isAdmin, err := env.store.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.False(t, isAdmin, "only the owner promotes")

	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testOwnerID, ""), "promote", "42")))
	isAdmin, err = env.store.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testOwnerID, ""), "remove", "1")))
	assert.Contains(t, env.platform.lastSent(t).Text, "Owner")

	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testOwnerID, ""), "remove", "42")))
	isAdmin, err = env.store.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testOwnerID, ""), "promote", "abc")))
	assert.Contains(t, env.platform.lastSent(t).Text, "Usage")
}

func TestForceJoinCommands(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.platform.chats["@neetprep"] = &messaging.Chat{ID: -300, Type: messaging.ChatTypeChannel, Title: "NEET Prep", Username: "neetprep"}
	env.platform.chats["-400"] = &messaging.Chat{ID: -400, Type: messaging.ChatTypeSupergroup, Title: "Private Batch"}
	env.platform.inviteLink = "https://t.me/+abc"

	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testOwnerID, ""), "fjoin", "@neetprep")))
	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testOwnerID, ""), "fjoin", "-400")))

	chats, err := env.store.ListForceJoinChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "@neetprep", chats[0].InviteRef)
	assert.Equal(t, "https://t.me/+abc", chats[1].InviteRef)

	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testOwnerID, ""), "removefjoin", "-999")))
	assert.Contains(t, env.platform.lastSent(t).Text, "नहीं है")

	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testOwnerID, ""), "removefjoin", "@neetprep")))
	chats, err = env.store.ListForceJoinChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, int64(-400), chats[0].ChatID)
}

func TestHandleDumpDB(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.AddAdmin(ctx, testUserID, testOwnerID))
	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testUserID, ""), "dumpdb", "")))
	assert.Empty(t, env.platform.documents, "admins cannot export the database")

	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testOwnerID, ""), "dumpdb", "")))
	require.Len(t, env.platform.documents, 1)
	assert.Equal(t, env.store.Path(), env.platform.documents[0].path)
}

func TestHandleStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.handler.HandleMessage(ctx, command(privateMsg(testUserID, ""), "stats", "")))
	assert.Equal(t, unauthorizedText, env.platform.lastSent(t).Text)

	require.NoError(t, env.handler.HandleMessage(ctx, command(groupMsg(testUserID, ""), "stats", "")))
	assert.Contains(t, env.platform.lastSent(t).Text, "Uptime: 0d 0h 0m")
}

func TestHandleRefresh(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.handler.HandleMessage(context.Background(), command(privateMsg(testOwnerID, ""), "refresh", "")))
	assert.Equal(t, 1, env.answers.resets)
}

func TestNotifyRateLimited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.handler.NotifyRateLimited(ctx, groupMsg(testUserID, "spam")))
	assert.Empty(t, env.platform.sent)

	require.NoError(t, env.handler.NotifyRateLimited(ctx, privateMsg(testUserID, "spam")))
	assert.Len(t, env.platform.sent, 1)
}

func TestIgnoresBots(t *testing.T) {
	env := newTestEnv(t)
	msg := privateMsg(testUserID, "What is osmosis?")
	msg.From.IsBot = true

	require.NoError(t, env.handler.HandleMessage(context.Background(), msg))
	assert.Empty(t, env.platform.sent)
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   string
	}{
		{"short text", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello wo..."},
		{"empty", "", 10, ""},
		{"multi-byte boundary", "सवाल", 4, "स..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateText(tt.text, tt.maxLen))
		})
	}
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0d 0h 0m", formatUptime(30*time.Second))
	assert.Equal(t, "1d 2h 3m", formatUptime(26*time.Hour+3*time.Minute+59*time.Second))
}

func TestResponseFormatter(t *testing.T) {
	rf := NewResponseFormatter(5)

	assert.Equal(t, "a\n\nb", rf.Format("\n\n  a\r\n\r\nb  \n\n"))
	assert.Equal(t, "abcde...", rf.Truncate("abcdefgh"))
	assert.Equal(t, "सवाल", rf.Truncate("सवाल"), "limit counts characters, not bytes")

	text := rf.FormatAnswer("What is DNA made of?", "Nucleotides", "english")
	assert.Contains(t, text, "What ...")
	assert.Contains(t, text, "Nucleotides")
}

func TestQuestionDetector(t *testing.T) {
	d := NewQuestionDetector()

	tests := []struct {
		text string
		want bool
	}{
		{"What is the SI unit of force", true},
		{"प्रकाश संश्लेषण क्या है", true},
		{"photosynthesis kaise hota hai", true},
		{"is this right?", true},
		{"good morning all", false},
		{"why?", false},
		{"/sol what is this", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, d.IsQuestion(tt.text))
		})
	}
}
