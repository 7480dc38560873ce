package relay

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LepisevKalisey/tgproxy/internal/models"
	"github.com/LepisevKalisey/tgproxy/internal/storage"
)

const (
	testGroupID = int64(-100)
	adminID     = int64(99)
	userID      = int64(42)
	threadID    = int64(7)
)

type sentText struct {
	chatID   int64
	threadID int64
	text     string
}

type sentContent struct {
	chatID   int64
	threadID int64
	content  models.Content
}

type renameCall struct {
	chatID   int64
	threadID int64
	name     string
}

type fakeDeliverer struct {
	mu       sync.Mutex
	texts    []sentText
	contents []sentContent
	copies   int
	renames  []renameCall

	textErr    error
	contentErr error
	copyErr    error
	renameErr  error
}

func (f *fakeDeliverer) SendText(chatID, threadID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.textErr != nil {
		return f.textErr
	}
	f.texts = append(f.texts, sentText{chatID, threadID, text})
	return nil
}

func (f *fakeDeliverer) SendContent(chatID, threadID int64, content models.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contentErr != nil {
		return f.contentErr
	}
	f.contents = append(f.contents, sentContent{chatID, threadID, content})
	return nil
}

func (f *fakeDeliverer) Copy(chatID, threadID, fromChatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return f.copyErr
	}
	f.copies++
	return nil
}

func (f *fakeDeliverer) RenameTopic(chatID, threadID int64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renames = append(f.renames, renameCall{chatID, threadID, name})
	return nil
}

type stubResolver struct {
	thread *models.Thread
	err    error
	calls  int
}

func (s *stubResolver) ResolveOrCreate(ctx context.Context, user *models.User) (*models.Thread, error) {
	s.calls++
	return s.thread, s.err
}

type routerFixture struct {
	router    *Router
	store     *storage.MemoryStorage
	deliverer *fakeDeliverer
	resolver  *stubResolver
}

func newFixture(t *testing.T) *routerFixture {
	t.Helper()
	store := storage.NewMemoryStorage()
	deliverer := &fakeDeliverer{}
	res := &stubResolver{thread: &models.Thread{
		ThreadID: threadID,
		GroupID:  testGroupID,
		UserID:   userID,
		Title:    "Alice (42)",
	}}
	router := NewRouter(store, res, deliverer, NewCardThrottle(),
		testGroupID, []int64{adminID}, 128, zap.NewNop())
	return &routerFixture{router: router, store: store, deliverer: deliverer, resolver: res}
}

func (f *routerFixture) saveThread(t *testing.T, thread *models.Thread) {
	t.Helper()
	require.NoError(t, f.store.SaveThread(context.Background(), thread))
}

func privateMessage(text string) *models.Message {
	return &models.Message{
		MessageID: 1001,
		Chat:      models.Chat{ID: userID, Type: "private"},
		From:      &models.From{ID: userID, FirstName: "Alice", Username: "alice"},
		Text:      text,
	}
}

func topicMessage(from int64, text string) *models.Message {
	return &models.Message{
		MessageID:      2001,
		ThreadID:       threadID,
		IsTopicMessage: true,
		Chat:           models.Chat{ID: testGroupID, Type: "supergroup"},
		From:           &models.From{ID: from, FirstName: "Staff"},
		Text:           text,
	}
}

func TestPrivateMessageCopiedIntoThread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.HandleMessage(ctx, privateMessage("hello"))

	assert.Equal(t, 1, f.deliverer.copies)
	assert.Equal(t, 1, f.resolver.calls)

	// The user identity is persisted on every private message.
	user, err := f.store.GetUser(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Alice", user.FirstName)
}

func TestUserCardSentOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f.router.now = func() time.Time { return now }

	f.router.HandleMessage(ctx, privateMessage("first"))
	f.router.HandleMessage(ctx, privateMessage("second"))

	var cards []sentText
	for _, text := range f.deliverer.texts {
		if strings.HasPrefix(text.text, "👤") {
			cards = append(cards, text)
		}
	}
	require.Len(t, cards, 1)
	assert.Equal(t, testGroupID, cards[0].chatID)
	assert.Equal(t, threadID, cards[0].threadID)
	assert.Contains(t, cards[0].text, "id=42")

	// The following day produces exactly one more.
	now = now.Add(24 * time.Hour)
	f.router.HandleMessage(ctx, privateMessage("third"))

	cards = cards[:0]
	for _, text := range f.deliverer.texts {
		if strings.HasPrefix(text.text, "👤") {
			cards = append(cards, text)
		}
	}
	assert.Len(t, cards, 2)
}

func TestCopyFailureFallsBackByContentType(t *testing.T) {
	f := newFixture(t)
	f.deliverer.copyErr = &tgbotapi.Error{Code: 400, Message: "Bad Request: message can't be copied"}

	msg := privateMessage("")
	msg.Photo = []models.PhotoSize{{FileID: "small"}, {FileID: "big"}}
	msg.Caption = "cap"

	f.router.HandleMessage(context.Background(), msg)

	require.Len(t, f.deliverer.contents, 1)
	sent := f.deliverer.contents[0]
	assert.Equal(t, testGroupID, sent.chatID)
	assert.Equal(t, threadID, sent.threadID)
	assert.Equal(t, models.PhotoContent, sent.content.Kind)
	assert.Equal(t, "big", sent.content.FileID)
	assert.Equal(t, "cap", sent.content.Caption)
}

func TestCascadeFailureSendsNotice(t *testing.T) {
	f := newFixture(t)
	f.deliverer.copyErr = &tgbotapi.Error{Code: 400, Message: "Bad Request: message can't be copied"}
	f.deliverer.contentErr = &tgbotapi.Error{Code: 400, Message: "Bad Request: wrong file id"}

	msg := privateMessage("")
	msg.Sticker = &models.File{FileID: "s1"}

	f.router.HandleMessage(context.Background(), msg)

	// The user card goes out first; the failure notice is the last text.
	require.NotEmpty(t, f.deliverer.texts)
	notice := f.deliverer.texts[len(f.deliverer.texts)-1]
	assert.Contains(t, notice.text, "42")
	assert.True(t, strings.HasPrefix(notice.text, "❌"))
	assert.Equal(t, threadID, notice.threadID)
}

func TestStartCommandRepliesWithoutRelay(t *testing.T) {
	f := newFixture(t)

	f.router.HandleMessage(context.Background(), privateMessage("/start"))

	require.Len(t, f.deliverer.texts, 1)
	assert.Equal(t, userID, f.deliverer.texts[0].chatID)
	assert.Zero(t, f.deliverer.texts[0].threadID)
	assert.Equal(t, 0, f.deliverer.copies)
	assert.Equal(t, 0, f.resolver.calls)
}

func TestGroupMessageRelayedToOwner(t *testing.T) {
	f := newFixture(t)
	f.saveThread(t, &models.Thread{ThreadID: threadID, GroupID: testGroupID, UserID: userID})

	f.router.HandleMessage(context.Background(), topicMessage(adminID, "how can we help?"))

	require.Len(t, f.deliverer.contents, 1)
	sent := f.deliverer.contents[0]
	assert.Equal(t, userID, sent.chatID)
	assert.Zero(t, sent.threadID)
	assert.Equal(t, models.TextContent, sent.content.Kind)
	assert.Equal(t, "how can we help?", sent.content.Text)
}

func TestArchivedThreadDoesNotRelay(t *testing.T) {
	f := newFixture(t)
	f.saveThread(t, &models.Thread{ThreadID: threadID, GroupID: testGroupID, UserID: userID, IsArchived: true})

	f.router.HandleMessage(context.Background(), topicMessage(adminID, "anyone there?"))

	assert.Empty(t, f.deliverer.contents)
	assert.Empty(t, f.deliverer.texts)
}

func TestUnknownThreadDoesNotRelay(t *testing.T) {
	f := newFixture(t)

	f.router.HandleMessage(context.Background(), topicMessage(adminID, "hello"))

	assert.Empty(t, f.deliverer.contents)
}

func TestBotMessagesIgnored(t *testing.T) {
	f := newFixture(t)
	f.saveThread(t, &models.Thread{ThreadID: threadID, GroupID: testGroupID, UserID: userID})

	msg := topicMessage(adminID, "automated")
	msg.From.IsBot = true
	f.router.HandleMessage(context.Background(), msg)

	assert.Empty(t, f.deliverer.contents)
}

func TestUnreachableUserWarnsStaff(t *testing.T) {
	f := newFixture(t)
	f.saveThread(t, &models.Thread{ThreadID: threadID, GroupID: testGroupID, UserID: userID})
	f.deliverer.contentErr = &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}

	f.router.HandleMessage(context.Background(), topicMessage(adminID, "hello?"))

	require.Len(t, f.deliverer.texts, 1)
	assert.Equal(t, threadID, f.deliverer.texts[0].threadID)
	assert.Contains(t, f.deliverer.texts[0].text, "/start")
}

func TestOtherDeliveryFailuresAreSilent(t *testing.T) {
	f := newFixture(t)
	f.saveThread(t, &models.Thread{ThreadID: threadID, GroupID: testGroupID, UserID: userID})
	f.deliverer.contentErr = &tgbotapi.Error{Code: 400, Message: "Bad Request: message is too long"}

	f.router.HandleMessage(context.Background(), topicMessage(adminID, "hello?"))

	assert.Empty(t, f.deliverer.texts)
}

func TestIDCommandRepliesWithOwner(t *testing.T) {
	f := newFixture(t)
	f.saveThread(t, &models.Thread{ThreadID: threadID, GroupID: testGroupID, UserID: userID})

	f.router.HandleMessage(context.Background(), topicMessage(adminID, "/id"))

	require.Len(t, f.deliverer.texts, 1)
	assert.Contains(t, f.deliverer.texts[0].text, "id=42")
	assert.Empty(t, f.deliverer.contents)
}

func TestCommandsFromNonAdminsIgnored(t *testing.T) {
	f := newFixture(t)
	f.saveThread(t, &models.Thread{ThreadID: threadID, GroupID: testGroupID, UserID: userID})

	f.router.HandleMessage(context.Background(), topicMessage(12345, "/id"))

	// Ignored entirely: no reply and no relay of the command text.
	assert.Empty(t, f.deliverer.texts)
	assert.Empty(t, f.deliverer.contents)
}

func TestRenameCommandUpdatesTopicAndStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.saveThread(t, &models.Thread{ThreadID: threadID, GroupID: testGroupID, UserID: userID, Title: "Alice (42)"})

	f.router.HandleMessage(ctx, topicMessage(adminID, "/rename VIP customer"))

	require.Len(t, f.deliverer.renames, 1)
	assert.Equal(t, "VIP customer", f.deliverer.renames[0].name)

	thread, err := f.store.GetThreadByID(ctx, threadID)
	require.NoError(t, err)
	assert.Equal(t, "VIP customer", thread.Title)
}

func TestRenameWithWhitespaceIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.saveThread(t, &models.Thread{ThreadID: threadID, GroupID: testGroupID, UserID: userID, Title: "Alice (42)"})

	f.router.HandleMessage(ctx, topicMessage(adminID, "/rename    "))

	assert.Empty(t, f.deliverer.renames)

	thread, err := f.store.GetThreadByID(ctx, threadID)
	require.NoError(t, err)
	assert.Equal(t, "Alice (42)", thread.Title)
}

func TestRenameTruncatesToTitleLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.saveThread(t, &models.Thread{ThreadID: threadID, GroupID: testGroupID, UserID: userID})

	f.router.HandleMessage(ctx, topicMessage(adminID, "/rename "+strings.Repeat("x", 200)))

	require.Len(t, f.deliverer.renames, 1)
	assert.Len(t, f.deliverer.renames[0].name, 128)
}

func TestCloseCommandArchivesThread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.saveThread(t, &models.Thread{ThreadID: threadID, GroupID: testGroupID, UserID: userID})

	f.router.HandleMessage(ctx, topicMessage(adminID, "/close"))

	thread, err := f.store.GetThreadByID(ctx, threadID)
	require.NoError(t, err)
	assert.True(t, thread.IsArchived)

	require.Len(t, f.deliverer.texts, 1)
	assert.Equal(t, "Тема закрыта.", f.deliverer.texts[0].text)

	// Once archived, staff messages in the thread stop relaying.
	f.deliverer.texts = nil
	f.router.HandleMessage(ctx, topicMessage(adminID, "any update?"))
	assert.Empty(t, f.deliverer.contents)
}

func TestMessagesOutsideGroupAndTopicsIgnored(t *testing.T) {
	f := newFixture(t)

	// Group message without a topic.
	msg := topicMessage(adminID, "general chatter")
	msg.IsTopicMessage = false
	msg.ThreadID = 0
	f.router.HandleMessage(context.Background(), msg)

	// Message from an unrelated group.
	other := topicMessage(adminID, "hello")
	other.Chat.ID = -200
	f.router.HandleMessage(context.Background(), other)

	assert.Empty(t, f.deliverer.contents)
	assert.Empty(t, f.deliverer.texts)
	assert.Equal(t, 0, f.deliverer.copies)
}
